package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is a complaint's lifecycle state.
type Status string

const (
	StatusPending       Status = "Pending"
	StatusInProgress    Status = "In Progress"
	StatusResponded     Status = "Responded"
	StatusUserResponded Status = "User Responded"
	StatusResolved      Status = "Resolved"
	StatusReopened      Status = "Re-opened"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusResponded,
	StatusUserResponded,
	StatusResolved,
	StatusReopened,
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Priority is the urgency assigned at submission.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Level maps a priority to its sortable integer (1 = most urgent).
func (p Priority) Level() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// Valid reports whether p is one of the defined priorities.
func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Complaint is the central entity. The store assigns ID and CreatedAt.
type Complaint struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title       string `gorm:"type:text;not null" json:"title"`
	Description string `gorm:"type:text;not null" json:"description"`
	Category    string `gorm:"type:text;not null" json:"category"`

	Priority      Priority `gorm:"type:varchar(16);not null" json:"priority"`
	PriorityLevel int      `gorm:"not null" json:"priorityLevel"`

	AssignedDept string `gorm:"type:varchar(64);not null;index:idx_dept_created" json:"assignedDept"`
	Status       Status `gorm:"type:varchar(32);not null;index" json:"status"`
	IsEscalated  bool   `gorm:"not null;default:false" json:"isEscalated"`
	IsAnonymous  bool   `gorm:"not null;default:false" json:"isAnonymous"`

	Rating        *int   `json:"rating"`
	RatingComment string `gorm:"type:text" json:"ratingComment"`
	AttachmentURL string `gorm:"type:text" json:"attachmentURL,omitempty"`

	// Creator identity. UserID never changes after creation.
	UserID     string `gorm:"type:varchar(64);not null;index:idx_owner_created" json:"userId"`
	UserName   string `json:"userName"`
	UserEmail  string `json:"userEmail"`
	UserRollNo string `json:"userRollNo"`

	CreatedAt  time.Time  `gorm:"not null;index:idx_owner_created;index:idx_dept_created;index" json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	ResolvedAt *time.Time `json:"resolvedAt"`

	Replies       []Reply        `gorm:"foreignKey:ComplaintID" json:"replies,omitempty"`
	InternalNotes []InternalNote `gorm:"foreignKey:ComplaintID" json:"-"`
}

// BeforeCreate assigns a UUID when the caller did not supply one.
func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// SetPriority keeps PriorityLevel in step with Priority.
func (c *Complaint) SetPriority(p Priority) {
	if !p.Valid() {
		p = PriorityMedium
	}
	c.Priority = p
	c.PriorityLevel = p.Level()
}
