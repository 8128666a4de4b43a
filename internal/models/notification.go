package models

import "time"

// Notification is an in-app message persisted by the delivery consumer.
// Exactly one of RecipientID, RecipientRole or RecipientDept is set.
type Notification struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RecipientID   string    `gorm:"type:varchar(64);index" json:"recipientId,omitempty"`
	RecipientRole Role      `gorm:"type:varchar(16);index" json:"recipientRole,omitempty"`
	RecipientDept string    `gorm:"type:varchar(64);index" json:"recipientDept,omitempty"`
	Kind          string    `gorm:"type:varchar(32);not null" json:"kind"`
	ComplaintID   string    `gorm:"type:varchar(36);index" json:"complaintId"`
	Title         string    `json:"title"`
	Body          string    `gorm:"type:text" json:"body"`
	Read          bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt     time.Time `json:"createdAt"`
}
