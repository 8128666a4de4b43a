package access

import (
	"context"
	"errors"
	"strings"

	"kiitcms/backend/internal/apperr"
	"kiitcms/backend/internal/config"
	"kiitcms/backend/internal/models"
)

// ErrProfileNotFound is returned by ProfileLookup implementations when no profile exists.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileLookup reads profile documents.
type ProfileLookup interface {
	GetProfile(ctx context.Context, id string) (*models.UserProfile, error)
}

// DepartmentFromEmail applies the mailbox-prefix heuristic: "hostel@kiit.ac.in",
// "it.support@kiit.ac.in" and "mess_office@kiit.ac.in" name their departments.
func DepartmentFromEmail(email string) (string, bool) {
	local, _, ok := strings.Cut(strings.ToLower(strings.TrimSpace(email)), "@")
	if !ok || local == "" {
		return "", false
	}
	if name, ok := config.Departments[local]; ok {
		return name, true
	}
	token := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(token) == 0 {
		return "", false
	}
	name, ok := config.Departments[token[0]]
	return name, ok
}

// BoundDepartment is the department a staff account is bound to: the mailbox
// prefix first, the profile document second. Resolve and the store guards
// both go through it, so they never disagree.
func BoundDepartment(profile *models.UserProfile, email string) string {
	if name, ok := DepartmentFromEmail(email); ok {
		return name
	}
	if profile != nil && config.IsDepartment(profile.Department) {
		return profile.Department
	}
	return ""
}

// Resolver completes a RoleContext for an identity.
type Resolver struct {
	Profiles ProfileLookup
}

// NewResolver creates a resolver over the given profile store.
func NewResolver(p ProfileLookup) *Resolver {
	return &Resolver{Profiles: p}
}

// Resolve builds the RoleContext for id. Department names come from the email
// prefix first and the profile document second; if neither names a catalogued
// department the context ends Failed. A lookup failure leaves it Unresolved and
// returns a transient error, so the caller can retry instead of querying.
func (r *Resolver) Resolve(ctx context.Context, id Identity) (RoleContext, error) {
	rc := NewRoleContext(id)
	if rc.Role != models.RoleDepartment {
		return rc, nil
	}

	if name, ok := DepartmentFromEmail(id.Email); ok {
		return rc.WithDepartment(name), nil
	}

	if r.Profiles == nil {
		return rc.WithDepartmentFailed(), nil
	}
	profile, err := r.Profiles.GetProfile(ctx, id.ID)
	if errors.Is(err, ErrProfileNotFound) {
		return rc.WithDepartmentFailed(), nil
	}
	if err != nil {
		return rc, apperr.Wrap(apperr.KindTransientIO, "department lookup failed", err)
	}
	name := BoundDepartment(profile, id.Email)
	if name == "" {
		return rc.WithDepartmentFailed(), nil
	}
	return rc.WithDepartment(name), nil
}
