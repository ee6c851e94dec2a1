package entity

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an announcement published to the public site.
type Notification struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Title       string     `json:"title" gorm:"type:varchar(10000);not null"`
	Message     string     `json:"message" gorm:"type:text;not null"`
	IsPublished bool       `json:"is_published" gorm:"not null;default:false;index"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}
