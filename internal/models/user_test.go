package models_test

import (
	"reflect"
	"testing"

	"kiitcms/backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestProfileBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID.
func TestProfileBeforeCreate_GeneratesUUID(t *testing.T) {
	// Arrange
	profile := &models.UserProfile{
		Email:       "22051234@kiit.ac.in",
		DisplayName: "Student One",
		Role:        models.RoleStudent,
	}
	assert.Empty(t, profile.ID, "Profile ID should be empty before BeforeCreate")

	// Act - nil *gorm.DB is acceptable for this hook
	err := profile.BeforeCreate(nil)

	// Assert
	assert.NoError(t, err)
	parsed, parseErr := uuid.Parse(profile.ID)
	assert.NoError(t, parseErr, "Profile ID must be a valid UUID string")
	assert.NotEqual(t, uuid.Nil, parsed)
}

// TestProfileBeforeCreate_PreservesExistingID verifies that the hook doesn't overwrite an existing ID.
func TestProfileBeforeCreate_PreservesExistingID(t *testing.T) {
	profile := &models.UserProfile{ID: "firebase-uid-1", Email: "hostel@kiit.ac.in"}

	err := profile.BeforeCreate(nil)

	assert.NoError(t, err)
	assert.Equal(t, "firebase-uid-1", profile.ID, "BeforeCreate should preserve existing ID")
}

// TestComplaintBeforeCreate_UniqueIDs verifies unique UUIDs are generated for multiple complaints.
func TestComplaintBeforeCreate_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		c := &models.Complaint{Title: "Fan broken"}
		assert.NoError(t, c.BeforeCreate(nil))
		assert.NotContains(t, seen, c.ID, "Each complaint should have a unique ID")
		seen[c.ID] = true
	}
}

// TestProfileStructTags verifies the gorm tags the store relies on.
func TestProfileStructTags(t *testing.T) {
	profileType := reflect.TypeOf(models.UserProfile{})

	idField, found := profileType.FieldByName("ID")
	assert.True(t, found, "ID field should exist")
	assert.Contains(t, idField.Tag.Get("gorm"), "primaryKey")

	emailField, found := profileType.FieldByName("Email")
	assert.True(t, found, "Email field should exist")
	assert.Contains(t, emailField.Tag.Get("gorm"), "uniqueIndex", "Email should have unique index")
}

func TestRoleClassification(t *testing.T) {
	tests := []struct {
		role  models.Role
		valid bool
		staff bool
	}{
		{models.RoleStudent, true, false},
		{models.RoleDepartment, true, true},
		{models.RoleAdmin, true, true},
		{models.Role("warden"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.role.Valid())
			assert.Equal(t, tt.staff, tt.role.IsStaff())
		})
	}
}

// BenchmarkComplaintBeforeCreate measures UUID generation performance.
func BenchmarkComplaintBeforeCreate(b *testing.B) {
	c := &models.Complaint{Title: "benchmark"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.ID = ""
		_ = c.BeforeCreate(nil)
	}
}
