// Package access turns a caller's identity into the filter set that bounds what
// the caller may read. Everything here is pure; lookups come in through interfaces.
package access

import (
	"kiitcms/backend/internal/models"
)

// Identity is what the identity provider vouches for.
type Identity struct {
	ID          string
	Email       string
	DisplayName string
	RollNo      string
	Role        models.Role
	Verified    bool
}

// DeptState is the resolution state of a department caller's department name.
type DeptState int

const (
	DeptUnresolved DeptState = iota
	DeptResolved
	DeptFailed
)

func (s DeptState) String() string {
	switch s {
	case DeptResolved:
		return "resolved"
	case DeptFailed:
		return "failed"
	default:
		return "unresolved"
	}
}

// Department is the {Unresolved, Resolved(name), Failed} state machine. Only
// Unresolved may transition; Resolved and Failed are final for a session.
type Department struct {
	State DeptState
	Name  string
}

// Resolve moves an unresolved department to Resolved(name). An empty name fails it.
func (d Department) Resolve(name string) Department {
	if d.State != DeptUnresolved {
		return d
	}
	if name == "" {
		return Department{State: DeptFailed}
	}
	return Department{State: DeptResolved, Name: name}
}

// Fail moves an unresolved department to Failed.
func (d Department) Fail() Department {
	if d.State != DeptUnresolved {
		return d
	}
	return Department{State: DeptFailed}
}

// RoleContext is the per-session value every scoped call takes explicitly.
type RoleContext struct {
	Role        models.Role
	UserID      string
	Email       string
	DisplayName string
	RollNo      string
	Verified    bool
	Dept        Department
}

// NewRoleContext starts a context for id. Department callers start Unresolved.
func NewRoleContext(id Identity) RoleContext {
	return RoleContext{
		Role:        id.Role,
		UserID:      id.ID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		RollNo:      id.RollNo,
		Verified:    id.Verified,
	}
}

// WithDepartment returns a copy whose department has been resolved to name.
func (rc RoleContext) WithDepartment(name string) RoleContext {
	rc.Dept = rc.Dept.Resolve(name)
	return rc
}

// WithDepartmentFailed returns a copy whose department resolution failed.
func (rc RoleContext) WithDepartmentFailed() RoleContext {
	rc.Dept = rc.Dept.Fail()
	return rc
}

// Ready reports whether a scope can be built for rc.
func (rc RoleContext) Ready() bool {
	return rc.Role != models.RoleDepartment || rc.Dept.State == DeptResolved
}

// Key identifies the scope rc reads under. Two contexts with the same key see the same complaints.
func (rc RoleContext) Key() string {
	switch rc.Role {
	case models.RoleStudent:
		return "student:" + rc.UserID
	case models.RoleDepartment:
		return "department:" + rc.Dept.Name
	case models.RoleAdmin:
		return "admin"
	default:
		return "none"
	}
}

// IsOwner reports whether rc created c.
func (rc RoleContext) IsOwner(c models.Complaint) bool {
	return rc.Role == models.RoleStudent && rc.UserID != "" && c.UserID == rc.UserID
}
