package access_test

import (
	"errors"
	"testing"

	"kiitcms/backend/internal/access"
	"kiitcms/backend/internal/apperr"
	"kiitcms/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_StudentIsExactlyOwnerFilter(t *testing.T) {
	for _, id := range []string{"s-1", "s-2", "uid-with-dashes"} {
		rc := access.NewRoleContext(access.Identity{ID: id, Role: models.RoleStudent})

		filters, err := access.Scope(rc)

		require.NoError(t, err)
		require.Len(t, filters, 1)
		assert.Equal(t, access.Filter{Field: access.FieldOwner, Op: access.OpEq, Value: id}, filters[0])
	}
}

func TestScope_StudentWithoutIDIsDenied(t *testing.T) {
	rc := access.NewRoleContext(access.Identity{Role: models.RoleStudent})

	_, err := access.Scope(rc)

	assert.True(t, errors.Is(err, apperr.ErrAccessDenied))
}

func TestScope_AdminIsEmpty(t *testing.T) {
	rc := access.NewRoleContext(access.Identity{ID: "a-1", Role: models.RoleAdmin})

	filters, err := access.Scope(rc)

	require.NoError(t, err)
	assert.NotNil(t, filters)
	assert.Empty(t, filters)
}

func TestScope_DepartmentNotReadyUntilResolved(t *testing.T) {
	rc := access.NewRoleContext(access.Identity{ID: "d-1", Email: "x@kiit.ac.in", Role: models.RoleDepartment})

	filters, err := access.Scope(rc)
	assert.Nil(t, filters, "an unresolved department must never produce a filter set")
	assert.True(t, errors.Is(err, apperr.ErrNotReady))

	resolved := rc.WithDepartment("Hostel")
	filters, err = access.Scope(resolved)
	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, access.Filter{Field: access.FieldDept, Op: access.OpEq, Value: "Hostel"}, filters[0])
}

func TestScope_DepartmentFailedIsAccessDenied(t *testing.T) {
	rc := access.NewRoleContext(access.Identity{ID: "d-1", Role: models.RoleDepartment}).WithDepartmentFailed()

	filters, err := access.Scope(rc)

	assert.Nil(t, filters)
	assert.True(t, errors.Is(err, apperr.ErrAccessDenied))
}

func TestScope_UnknownRoleDenied(t *testing.T) {
	_, err := access.Scope(access.RoleContext{Role: "guest", UserID: "g"})
	assert.Equal(t, apperr.KindAccessDenied, apperr.KindOf(err))
}

func TestDepartment_TransitionsOnlyFromUnresolved(t *testing.T) {
	var d access.Department
	assert.Equal(t, access.DeptUnresolved, d.State)

	d = d.Resolve("IT Support")
	assert.Equal(t, access.DeptResolved, d.State)

	again := d.Resolve("Mess").Fail()
	assert.Equal(t, d, again, "resolved is final")

	failed := access.Department{}.Fail().Resolve("Mess")
	assert.Equal(t, access.DeptFailed, failed.State, "failed is final")

	assert.Equal(t, access.DeptFailed, access.Department{}.Resolve("").State)
}

func TestWithStatus(t *testing.T) {
	scope := []access.Filter{{Field: access.FieldDept, Op: access.OpEq, Value: "Mess"}}

	all, err := access.WithStatus(scope, access.StatusAll)
	require.NoError(t, err)
	assert.Equal(t, scope, all)

	pending, err := access.WithStatus(scope, "Pending")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, access.FieldStatus, pending[1].Field)
	assert.Len(t, scope, 1, "input slice is not modified")

	_, err = access.WithStatus(scope, "Pending' OR 1=1 --")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCovers(t *testing.T) {
	c := models.Complaint{ID: "c", UserID: "s-1", AssignedDept: "Hostel", Status: models.StatusPending}

	owner := access.NewRoleContext(access.Identity{ID: "s-1", Role: models.RoleStudent})
	other := access.NewRoleContext(access.Identity{ID: "s-2", Role: models.RoleStudent})
	hostel := access.NewRoleContext(access.Identity{ID: "d", Role: models.RoleDepartment}).WithDepartment("Hostel")
	mess := access.NewRoleContext(access.Identity{ID: "d", Role: models.RoleDepartment}).WithDepartment("Mess")
	pendingDept := access.NewRoleContext(access.Identity{ID: "d", Role: models.RoleDepartment})
	admin := access.NewRoleContext(access.Identity{ID: "a", Role: models.RoleAdmin})

	assert.True(t, access.Covers(owner, c))
	assert.False(t, access.Covers(other, c))
	assert.True(t, access.Covers(hostel, c))
	assert.False(t, access.Covers(mess, c))
	assert.False(t, access.Covers(pendingDept, c))
	assert.True(t, access.Covers(admin, c))
}
