package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/chainboard/asset-service/entity"
	"github.com/chainboard/asset-service/service"
)

const uniqueViolationCode = "23505"

type ImageRepository struct {
	db *gorm.DB
}

var _ service.ImageStore = (*ImageRepository)(nil)

func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

func (r *ImageRepository) Create(ctx context.Context, image *entity.Image) error {
	return mapImageError(r.db.WithContext(ctx).Create(image).Error)
}

func (r *ImageRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Image, error) {
	var image entity.Image
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&image).Error
	if err != nil {
		return nil, mapImageError(err)
	}
	return &image, nil
}

func (r *ImageRepository) FindByName(ctx context.Context, name string) (*entity.Image, error) {
	var image entity.Image
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&image).Error
	if err != nil {
		return nil, mapImageError(err)
	}
	return &image, nil
}

func (r *ImageRepository) UpdateVariants(ctx context.Context, id uuid.UUID, variants []entity.ImageVariant) error {
	data, err := entity.MarshalVariants(variants)
	if err != nil {
		return fmt.Errorf("%w: encode variants: %v", service.ErrDatabase, err)
	}

	result := r.db.WithContext(ctx).Model(&entity.Image{}).
		Where("id = ?", id).
		Update("variants", data)
	if result.Error != nil {
		return mapImageError(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: image %s", service.ErrNotFound, id)
	}
	return nil
}

func (r *ImageRepository) UpdateNameAndVariants(ctx context.Context, id uuid.UUID, name string, variants []entity.ImageVariant) error {
	data, err := entity.MarshalVariants(variants)
	if err != nil {
		return fmt.Errorf("%w: encode variants: %v", service.ErrDatabase, err)
	}

	result := r.db.WithContext(ctx).Model(&entity.Image{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":     name,
			"variants": data,
		})
	if result.Error != nil {
		return mapImageError(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: image %s", service.ErrNotFound, id)
	}
	return nil
}

// SetUsed marks the image as used and clears the expiration in the same
// update: is_used = true always implies expires_at IS NULL.
func (r *ImageRepository) SetUsed(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&entity.Image{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_used":    true,
			"expires_at": nil,
		})
	if result.Error != nil {
		return mapImageError(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: image %s", service.ErrNotFound, id)
	}
	return nil
}

func (r *ImageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&entity.Image{}, "id = ?", id)
	if result.Error != nil {
		return mapImageError(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: image %s", service.ErrNotFound, id)
	}
	return nil
}

func (r *ImageRepository) FindExpired(ctx context.Context, before time.Time, limit int) ([]entity.Image, error) {
	var images []entity.Image
	err := r.db.WithContext(ctx).
		Where("is_used = ? AND expires_at IS NOT NULL AND expires_at < ?", false, before).
		Limit(limit).
		Find(&images).Error
	if err != nil {
		return nil, mapImageError(err)
	}
	return images, nil
}

// mapImageError translates gorm and postgres failures into the service's
// sentinel kinds so callers classify with errors.Is.
func mapImageError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", service.ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return fmt.Errorf("%w: %v", service.ErrDuplicateName, err)
	}
	return fmt.Errorf("%w: %v", service.ErrDatabase, err)
}
