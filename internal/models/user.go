package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the caller's access class.
type Role string

const (
	RoleStudent    Role = "student"
	RoleDepartment Role = "department"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleDepartment || r == RoleAdmin
}

// IsStaff reports whether r may act on complaints it does not own.
func (r Role) IsStaff() bool {
	return r == RoleDepartment || r == RoleAdmin
}

// UserProfile is the profile document kept next to the identity provider's account.
// Department is the fallback used when the email prefix does not name a department.
type UserProfile struct {
	ID             string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Email          string `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName    string `json:"displayName"`
	RollNo         string `json:"rollNo"`
	Role           Role   `gorm:"type:varchar(16);not null;default:'student'" json:"role"`
	Department     string `gorm:"type:varchar(64)" json:"department"`
	TelegramChatID int64  `gorm:"index" json:"-"`
}

// BeforeCreate generates a new UUID for the profile if ID is not set yet.
func (u *UserProfile) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
