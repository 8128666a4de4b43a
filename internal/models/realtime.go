package models

import "time"

// ChangeType names what happened to a complaint in a live event.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// ComplaintEvent is pushed on the live channel after every committed write.
// Complaint carries the post-write document, without replies or notes; it is
// nil for deletes.
type ComplaintEvent struct {
	Type        ChangeType `json:"type"`
	ComplaintID string     `json:"complaint_id"`
	Complaint   *Complaint `json:"complaint,omitempty"`
	At          time.Time  `json:"at"`
}
