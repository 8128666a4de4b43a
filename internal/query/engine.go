// Package query reads complaint lists and stats under a caller's scope.
// Engine runs single page fetches; ListState keeps one list view consistent
// across pages, filter switches and live changes; StatsAggregator counts.
package query

import (
	"context"

	"kiitcms/backend/internal/access"
	"kiitcms/backend/internal/apperr"
	"kiitcms/backend/internal/config"
	"kiitcms/backend/internal/models"
	"kiitcms/backend/internal/storage"
)

// Reader is the part of the store queries need.
type Reader interface {
	ListComplaints(ctx context.Context, rc access.RoleContext, q storage.ListQuery) ([]models.Complaint, error)
	CountComplaints(ctx context.Context, rc access.RoleContext, filters []access.Filter) (int64, error)
}

// Page is one fetch. Cursor is empty when Items is.
type Page struct {
	Items   []models.Complaint
	Cursor  Cursor
	HasMore bool
}

type Engine struct {
	Store    Reader
	PageSize int
}

func NewEngine(store Reader) *Engine {
	return &Engine{Store: store, PageSize: config.PageSize}
}

// FirstPage returns the newest items in rc's scope, narrowed by status unless it is "All".
func (e *Engine) FirstPage(ctx context.Context, rc access.RoleContext, status string) (Page, error) {
	return e.fetch(ctx, rc, status, nil)
}

// NextPage returns the items strictly after cursor in createdAt desc, id desc order.
func (e *Engine) NextPage(ctx context.Context, rc access.RoleContext, status string, cursor Cursor) (Page, error) {
	after, err := cursor.Decode()
	if err != nil {
		return Page{}, err
	}
	return e.fetch(ctx, rc, status, after)
}

// Filters is the exact filter set a list for rc and status runs with.
// A scope that is not ready yields apperr.ErrNotReady and no filters.
func Filters(rc access.RoleContext, status string) ([]access.Filter, error) {
	scope, err := access.Scope(rc)
	if err != nil {
		return nil, err
	}
	return access.WithStatus(scope, status)
}

func (e *Engine) fetch(ctx context.Context, rc access.RoleContext, status string, after *storage.Position) (Page, error) {
	filters, err := Filters(rc, status)
	if err != nil {
		return Page{}, err
	}

	size := e.PageSize
	if size <= 0 {
		size = config.PageSize
	}
	rows, err := e.Store.ListComplaints(ctx, rc, storage.ListQuery{Filters: filters, After: after, Limit: size})
	if err != nil {
		return Page{}, storage.AppError(err, "could not load complaints")
	}

	page := Page{Items: rows, HasMore: len(rows) == size}
	if len(rows) > 0 {
		last := rows[len(rows)-1]
		page.Cursor = EncodeCursor(storage.Position{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

// IsAccessError reports whether err must be shown as an access problem rather than an empty list.
func IsAccessError(err error) bool {
	return apperr.KindOf(err) == apperr.KindAccessDenied
}
