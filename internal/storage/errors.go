package storage

import (
	"errors"

	"kiitcms/backend/internal/apperr"
)

// AppError translates a store error into the shared taxonomy. op names the
// failed operation for transient errors.
func AppError(err error, op string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return apperr.Wrap(apperr.KindAccessDenied, "you do not have access to this complaint", err)
	case errors.Is(err, ErrNotFound):
		return apperr.Wrap(apperr.KindNotFound, "not found", err)
	case errors.Is(err, ErrConflict):
		return apperr.Wrap(apperr.KindValidation, "the complaint changed meanwhile, refresh and try again", err)
	case errors.Is(err, ErrInvalidFilter):
		return apperr.Wrap(apperr.KindValidation, "invalid filter", err)
	}
	return apperr.Wrap(apperr.KindTransientIO, op, err)
}
