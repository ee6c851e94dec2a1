package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ImageVariant is one resized derivative of a source image. A nil dimension
// means the variant was generated with that axis unconstrained; at most one
// dimension may be nil.
type ImageVariant struct {
	URL    string `json:"url"`
	Width  *int   `json:"width"`
	Height *int   `json:"height"`
}

// Image is the record tying a logical asset name to its stored variants.
// An unused image carries an expiration date and is reclaimed by the sweep;
// marking it used clears the expiration permanently.
type Image struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(10000);not null;uniqueIndex:idx_images_name"`
	Variants  datatypes.JSON `json:"variants" gorm:"type:jsonb;not null;default:'[]'"`
	IsUsed    bool           `json:"is_used" gorm:"not null;default:false;index:idx_images_expiry"`
	ExpiresAt *time.Time     `json:"expires_at" gorm:"index:idx_images_expiry"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Image) TableName() string {
	return "images"
}

func (i *Image) VariantList() ([]ImageVariant, error) {
	if len(i.Variants) == 0 {
		return []ImageVariant{}, nil
	}
	var variants []ImageVariant
	if err := json.Unmarshal(i.Variants, &variants); err != nil {
		return nil, err
	}
	return variants, nil
}

func (i *Image) SetVariantList(variants []ImageVariant) error {
	data, err := json.Marshal(variants)
	if err != nil {
		return err
	}
	i.Variants = data
	return nil
}

// MarshalVariants encodes a variant list for a JSONB column update.
func MarshalVariants(variants []ImageVariant) (datatypes.JSON, error) {
	if variants == nil {
		variants = []ImageVariant{}
	}
	data, err := json.Marshal(variants)
	if err != nil {
		return nil, err
	}
	return data, nil
}
