package storage

import (
	"context"
	"errors"

	"kiitcms/backend/internal/access"
	"kiitcms/backend/internal/models"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// pqInsufficientPrivilege is raised by row-level security policies.
const pqInsufficientPrivilege = "42501"

// authorizeQuery is the store-side read guard. It is evaluated against the
// query itself, so a student query without its own owner filter is refused
// even when every matching row would belong to the caller.
func (s *Service) authorizeQuery(ctx context.Context, rc access.RoleContext, filters []access.Filter) error {
	profile, err := s.callerProfile(ctx, s.DB.WithContext(ctx), rc)
	if err != nil {
		return err
	}

	switch rc.Role {
	case models.RoleStudent:
		if rc.UserID == "" || !hasFilter(filters, access.FieldOwner, rc.UserID) {
			return ErrPermissionDenied
		}
		return nil

	case models.RoleDepartment:
		bound := access.BoundDepartment(profile, rc.Email)
		if bound == "" || !hasFilter(filters, access.FieldDept, bound) {
			return ErrPermissionDenied
		}
		return nil

	case models.RoleAdmin:
		return nil
	}
	return ErrPermissionDenied
}

func (s *Service) authorizeDocument(ctx context.Context, rc access.RoleContext, c models.Complaint) error {
	return s.authorizeDocumentTx(ctx, s.DB.WithContext(ctx), rc, c)
}

// authorizeDocumentTx is the per-document guard used for single reads and for writes inside a transaction.
func (s *Service) authorizeDocumentTx(ctx context.Context, db *gorm.DB, rc access.RoleContext, c models.Complaint) error {
	profile, err := s.callerProfile(ctx, db, rc)
	if err != nil {
		return err
	}

	switch rc.Role {
	case models.RoleStudent:
		if rc.UserID != "" && c.UserID == rc.UserID {
			return nil
		}
	case models.RoleDepartment:
		if bound := access.BoundDepartment(profile, rc.Email); bound != "" && c.AssignedDept == bound {
			return nil
		}
	case models.RoleAdmin:
		return nil
	}
	return ErrPermissionDenied
}

// callerProfile loads the caller's profile. A stored profile whose role
// disagrees with the token is refused; a missing profile trusts the token.
func (s *Service) callerProfile(ctx context.Context, db *gorm.DB, rc access.RoleContext) (*models.UserProfile, error) {
	if rc.UserID == "" || rc.Role == models.RoleStudent {
		return nil, nil
	}
	var p models.UserProfile
	err := db.WithContext(ctx).Where("id = ?", rc.UserID).Limit(1).Find(&p).Error
	if err != nil {
		return nil, mapDBError(err)
	}
	if p.ID == "" {
		return nil, nil
	}
	if p.Role != "" && p.Role != rc.Role {
		return nil, ErrPermissionDenied
	}
	return &p, nil
}

func hasFilter(filters []access.Filter, field access.Field, value string) bool {
	for _, f := range filters {
		if f.Field == field && f.Op == access.OpEq && f.Value == value {
			return true
		}
	}
	return false
}

// mapDBError folds driver errors into the package sentinels.
func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqInsufficientPrivilege {
		return ErrPermissionDenied
	}
	return err
}
