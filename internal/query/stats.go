package query

import (
	"context"
	"errors"

	"kiitcms/backend/internal/access"
	"kiitcms/backend/internal/apperr"
	"kiitcms/backend/internal/logger"
	"kiitcms/backend/internal/models"
)

// Stats are scope-wide counts. Pending means "not yet resolved"
// (Total - Resolved), not a count of the Pending status.
type Stats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Resolved int64 `json:"resolved"`
}

// StatsAggregator counts with the same scope as the list, using server-side
// counts rather than the loaded pages.
type StatsAggregator struct {
	Store Reader
}

func NewStatsAggregator(store Reader) *StatsAggregator {
	return &StatsAggregator{Store: store}
}

// Compute returns the stats for rc. Only ErrNotReady is returned; denied or
// failing counts are logged and read as zero, since the list fetch is where
// access problems are reported.
func (a *StatsAggregator) Compute(ctx context.Context, rc access.RoleContext) (Stats, error) {
	scope, err := access.Scope(rc)
	if errors.Is(err, apperr.ErrNotReady) {
		return Stats{}, err
	}
	if err != nil {
		logger.Warn().Err(err).Str("scope", rc.Key()).Msg("stats: no scope, reporting zero")
		return Stats{}, nil
	}

	resolvedFilters, _ := access.WithStatus(scope, string(models.StatusResolved))

	total := a.count(ctx, rc, scope, "total")
	resolved := a.count(ctx, rc, resolvedFilters, "resolved")

	pending := total - resolved
	if pending < 0 {
		pending = 0
	}
	return Stats{Total: total, Pending: pending, Resolved: resolved}, nil
}

func (a *StatsAggregator) count(ctx context.Context, rc access.RoleContext, filters []access.Filter, what string) int64 {
	n, err := a.Store.CountComplaints(ctx, rc, filters)
	if err != nil {
		logger.Warn().Err(err).Str("scope", rc.Key()).Str("count", what).Msg("stats count failed, using zero")
		return 0
	}
	return n
}
