package storage

import (
	"fmt"
	"sort"
	"strings"

	"kiitcms/backend/internal/access"

	"gorm.io/gorm"
)

// filterColumns is the only mapping from filter fields to SQL. Values are
// always bound, never interpolated.
var filterColumns = map[access.Field]string{
	access.FieldOwner:  "user_id",
	access.FieldDept:   "assigned_dept",
	access.FieldStatus: "status",
}

func applyFilters(db *gorm.DB, filters []access.Filter) (*gorm.DB, error) {
	for _, f := range filters {
		col, ok := filterColumns[f.Field]
		if !ok || f.Op != access.OpEq {
			return nil, fmt.Errorf("%w: %s %s", ErrInvalidFilter, f.Field, f.Op)
		}
		db = db.Where(col+" = ?", f.Value)
	}
	return db, nil
}

// applyAfter restricts db to rows strictly after p in createdAt desc, id desc order.
func applyAfter(db *gorm.DB, p *Position) *gorm.DB {
	if p == nil {
		return db
	}
	t := p.CreatedAt.UTC()
	return db.Where("((created_at < ?) OR (created_at = ? AND id < ?))", t, t, p.ID)
}

// countKey is the cache key of a filter set. Order-insensitive.
func countKey(filters []access.Filter) string {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		parts = append(parts, string(f.Field)+"="+f.Value)
	}
	sort.Strings(parts)
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, "&")
}
