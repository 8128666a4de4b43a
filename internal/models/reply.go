package models

import "time"

// Reply is an append-only message in a complaint thread, ordered by CreatedAt then ID.
type Reply struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ComplaintID string    `gorm:"type:varchar(36);not null;index:idx_reply_thread" json:"complaintId"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	AuthorID    string    `gorm:"type:varchar(64);not null" json:"authorId"`
	AuthorName  string    `json:"authorName"`
	AuthorRole  Role      `gorm:"type:varchar(16);not null" json:"authorRole"`
	CreatedAt   time.Time `gorm:"not null;index:idx_reply_thread" json:"createdAt"`
}

// InternalNote is a staff-only annotation. Students never receive these.
type InternalNote struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ComplaintID string    `gorm:"type:varchar(36);not null;index" json:"complaintId"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	AuthorID    string    `gorm:"type:varchar(64);not null" json:"authorId"`
	AuthorName  string    `json:"authorName"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
}
