package complaint

import (
	"kiitcms/backend/internal/apperr"
	"kiitcms/backend/internal/models"
)

// ReplyStatus is the status a reply moves an active complaint to. It depends
// only on who replied, never on a previously read status, so concurrent
// replies settle on the most recent replier.
func ReplyStatus(replier models.Role) models.Status {
	if replier.IsStaff() {
		return models.StatusResponded
	}
	return models.StatusUserResponded
}

// Active reports whether replies still drive the status.
func Active(s models.Status) bool {
	return s != models.StatusResolved
}

// NextOnReply applies a reply to current. Resolved complaints keep their status.
func NextOnReply(current models.Status, replier models.Role) models.Status {
	if !Active(current) {
		return current
	}
	return ReplyStatus(replier)
}

// EntersResolved reports whether moving from -> to stamps resolvedAt.
func EntersResolved(from, to models.Status) bool {
	return to == models.StatusResolved && from != models.StatusResolved
}

// ValidateEdit checks a staff status edit. Any defined status is allowed.
func ValidateEdit(to models.Status) error {
	if !to.Valid() {
		return apperr.Validation("unknown status: " + string(to))
	}
	return nil
}
