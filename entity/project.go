package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Project is a blockchain network listing shown on the public site. The image
// fields are denormalized from the owning Image record so listings render
// without a join.
type Project struct {
	ID            uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Name          string         `json:"name" gorm:"type:varchar(10000);not null"`
	Description   string         `json:"description" gorm:"type:text"`
	WebsiteURL    string         `json:"website_url" gorm:"type:varchar(10000)"`
	ImageID       *uuid.UUID     `json:"image_id" gorm:"type:uuid"`
	ImageVariants datatypes.JSON `json:"image_variants" gorm:"type:jsonb;not null;default:'[]'"`
	IsActive      bool           `json:"is_active" gorm:"not null;default:true;index"`
	CreatedAt     time.Time      `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt     time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Project) TableName() string {
	return "projects"
}
