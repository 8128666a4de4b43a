package models

import "time"

// ComplaintView is the read model handed to callers. Creator identity fields
// are blanked for anonymous complaints unless the viewer is the owner.
type ComplaintView struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	Priority      Priority   `json:"priority"`
	PriorityLevel int        `json:"priorityLevel"`
	AssignedDept  string     `json:"assignedDept"`
	Status        Status     `json:"status"`
	IsEscalated   bool       `json:"isEscalated"`
	IsAnonymous   bool       `json:"isAnonymous"`
	Rating        *int       `json:"rating"`
	RatingComment string     `json:"ratingComment"`
	AttachmentURL string     `json:"attachmentURL,omitempty"`
	UserID        string     `json:"userId,omitempty"`
	UserName      string     `json:"userName,omitempty"`
	UserEmail     string     `json:"userEmail,omitempty"`
	UserRollNo    string     `json:"userRollNo,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	ResolvedAt    *time.Time `json:"resolvedAt"`

	Replies       []Reply        `json:"replies,omitempty"`
	InternalNotes []InternalNote `json:"internalNotes,omitempty"`
}

// NewComplaintView projects c for the given viewer.
func NewComplaintView(c Complaint, viewerID string, viewerRole Role) ComplaintView {
	v := ComplaintView{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		Category:      c.Category,
		Priority:      c.Priority,
		PriorityLevel: c.PriorityLevel,
		AssignedDept:  c.AssignedDept,
		Status:        c.Status,
		IsEscalated:   c.IsEscalated,
		IsAnonymous:   c.IsAnonymous,
		Rating:        c.Rating,
		RatingComment: c.RatingComment,
		AttachmentURL: c.AttachmentURL,
		CreatedAt:     c.CreatedAt,
		ResolvedAt:    c.ResolvedAt,
		Replies:       c.Replies,
	}

	owner := viewerID != "" && viewerID == c.UserID
	if !c.IsAnonymous || owner {
		v.UserID = c.UserID
		v.UserName = c.UserName
		v.UserEmail = c.UserEmail
		v.UserRollNo = c.UserRollNo
	}
	if viewerRole.IsStaff() {
		v.InternalNotes = c.InternalNotes
	}
	if c.IsAnonymous && !owner {
		// Replies written by the anonymous owner would leak the name.
		v.Replies = make([]Reply, len(c.Replies))
		for i, r := range c.Replies {
			if r.AuthorID == c.UserID {
				r.AuthorID = ""
				r.AuthorName = "Anonymous"
			}
			v.Replies[i] = r
		}
	}
	return v
}
