package complaint

import (
	"time"

	"kiitcms/backend/internal/access"
	"kiitcms/backend/internal/apperr"
	"kiitcms/backend/internal/config"
	"kiitcms/backend/internal/models"
)

// CheckReopen explains why rc may not reopen c at now, or returns nil.
// Exactly ReopenWindow after resolution is still inside the window.
func CheckReopen(c models.Complaint, rc access.RoleContext, now time.Time) error {
	if !rc.IsOwner(c) {
		return apperr.AccessDenied("only the student who filed this complaint can reopen it")
	}
	if c.Status != models.StatusResolved || c.ResolvedAt == nil {
		return apperr.Validation("only resolved complaints can be reopened")
	}
	if now.Sub(*c.ResolvedAt) > config.ReopenWindow {
		return apperr.Validation("complaints can only be reopened within 7 days of resolution")
	}
	return nil
}

// CheckEscalate explains why rc may not escalate c at now, or returns nil.
// Exactly EscalationWindow after creation is already escalatable.
func CheckEscalate(c models.Complaint, rc access.RoleContext, now time.Time) error {
	if !rc.IsOwner(c) {
		return apperr.AccessDenied("only the student who filed this complaint can escalate it")
	}
	if c.Status == models.StatusResolved {
		return apperr.Validation("resolved complaints cannot be escalated")
	}
	if c.IsEscalated {
		return apperr.Validation("complaint is already escalated")
	}
	if now.Sub(c.CreatedAt) < config.EscalationWindow {
		return apperr.Validation("complaints can be escalated after 3 days without resolution")
	}
	return nil
}

func CanReopen(c models.Complaint, rc access.RoleContext, now time.Time) bool {
	return CheckReopen(c, rc, now) == nil
}

func CanEscalate(c models.Complaint, rc access.RoleContext, now time.Time) bool {
	return CheckEscalate(c, rc, now) == nil
}

// CheckRate validates a rating by the owner of a resolved complaint.
func CheckRate(c models.Complaint, rc access.RoleContext, rating int) error {
	if !rc.IsOwner(c) {
		return apperr.AccessDenied("only the student who filed this complaint can rate it")
	}
	if c.Status != models.StatusResolved {
		return apperr.Validation("only resolved complaints can be rated")
	}
	if rating < 1 || rating > 5 {
		return apperr.Validation("rating must be between 1 and 5")
	}
	return nil
}
