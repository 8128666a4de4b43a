// Package notify carries best-effort notifications out of the complaint core.
// The core emits typed events onto a buffered channel and never waits; a
// Consumer delivers them to sinks with retry.
package notify

import (
	"time"

	"kiitcms/backend/internal/models"
)

type Kind string

const (
	KindStatusChanged Kind = "status_changed"
	KindEscalated     Kind = "escalated"
	KindReopened      Kind = "reopened"
	KindRepliedTo     Kind = "replied_to"
	KindAssigned      Kind = "assigned"
)

// Recipient addresses one user, every holder of a role, or a department. Exactly one field is set.
// Email is an optional delivery hint for user recipients.
type Recipient struct {
	UserID string      `json:"userId,omitempty"`
	Role   models.Role `json:"role,omitempty"`
	Dept   string      `json:"dept,omitempty"`
	Email  string      `json:"email,omitempty"`
}

func ToUser(id string) Recipient        { return Recipient{UserID: id} }
func ToRole(role models.Role) Recipient { return Recipient{Role: role} }
func ToDept(name string) Recipient      { return Recipient{Dept: name} }

func (r Recipient) WithEmail(email string) Recipient {
	r.Email = email
	return r
}

func (r Recipient) String() string {
	switch {
	case r.UserID != "":
		return "user:" + r.UserID
	case r.Role != "":
		return "role:" + string(r.Role)
	case r.Dept != "":
		return "dept:" + r.Dept
	}
	return "nobody"
}

// Event is one thing that happened to a complaint that someone should hear about.
type Event struct {
	Kind           Kind          `json:"kind"`
	Recipient      Recipient     `json:"recipient"`
	ComplaintID    string        `json:"complaintId"`
	ComplaintTitle string        `json:"complaintTitle"`
	Status         models.Status `json:"status,omitempty"`
	Dept           string        `json:"dept,omitempty"`
	Actor          string        `json:"actor,omitempty"`
	At             time.Time     `json:"at"`
}

// Emitter is what the core depends on. Emit must not block.
type Emitter interface {
	Emit(ev Event) bool
}
