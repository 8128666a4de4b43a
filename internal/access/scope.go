package access

import (
	"kiitcms/backend/internal/apperr"
	"kiitcms/backend/internal/models"
)

// Field names a filterable complaint attribute. The store maps each to a fixed
// column; values are always bound as parameters.
type Field string

const (
	FieldOwner  Field = "userId"
	FieldDept   Field = "assignedDept"
	FieldStatus Field = "status"
)

// Op is a comparison operator. Only equality is produced here; range
// comparisons for cursors are built by the store itself.
type Op string

const OpEq Op = "=="

// Filter is one equality predicate. A scope is a slice of them ANDed together.
type Filter struct {
	Field Field  `json:"field"`
	Op    Op     `json:"op"`
	Value string `json:"value"`
}

// StatusAll disables the status filter.
const StatusAll = "All"

// Scope builds the filter set for rc.
//
// student    -> exactly [userId == caller]
// department -> exactly [assignedDept == resolved name]; ErrNotReady while unresolved
// admin      -> empty, the only unscoped read
//
// A department caller never gets an empty slice back.
func Scope(rc RoleContext) ([]Filter, error) {
	switch rc.Role {
	case models.RoleStudent:
		if rc.UserID == "" {
			return nil, apperr.AccessDenied("missing caller identity")
		}
		return []Filter{{Field: FieldOwner, Op: OpEq, Value: rc.UserID}}, nil

	case models.RoleDepartment:
		switch rc.Dept.State {
		case DeptResolved:
			if rc.Dept.Name == "" {
				return nil, apperr.ErrNotReady
			}
			return []Filter{{Field: FieldDept, Op: OpEq, Value: rc.Dept.Name}}, nil
		case DeptFailed:
			return nil, apperr.AccessDenied("department could not be resolved for this account")
		default:
			return nil, apperr.ErrNotReady
		}

	case models.RoleAdmin:
		return []Filter{}, nil

	default:
		return nil, apperr.AccessDenied("unknown role")
	}
}

// WithStatus appends the status filter unless status is "All" or empty.
func WithStatus(scope []Filter, status string) ([]Filter, error) {
	if status == "" || status == StatusAll {
		return scope, nil
	}
	if !models.Status(status).Valid() {
		return nil, apperr.Validation("unknown status filter: " + status)
	}
	out := make([]Filter, 0, len(scope)+1)
	out = append(out, scope...)
	return append(out, Filter{Field: FieldStatus, Op: OpEq, Value: status}), nil
}

// Matches evaluates filters against an in-memory complaint the same way the store would.
func Matches(filters []Filter, c models.Complaint) bool {
	for _, f := range filters {
		var got string
		switch f.Field {
		case FieldOwner:
			got = c.UserID
		case FieldDept:
			got = c.AssignedDept
		case FieldStatus:
			got = string(c.Status)
		default:
			return false
		}
		if f.Op != OpEq || got != f.Value {
			return false
		}
	}
	return true
}

// Covers reports whether c is inside rc's scope. An unready scope covers nothing.
func Covers(rc RoleContext, c models.Complaint) bool {
	filters, err := Scope(rc)
	if err != nil {
		return false
	}
	return Matches(filters, c)
}
