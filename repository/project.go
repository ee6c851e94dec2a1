package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chainboard/asset-service/entity"
	"github.com/chainboard/asset-service/service"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) FindActive(ctx context.Context) ([]entity.Project, error) {
	var projects []entity.Project
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&projects).Error
	if err != nil {
		return nil, mapImageError(err)
	}
	return projects, nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Project, error) {
	var project entity.Project
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&project).Error
	if err != nil {
		return nil, mapImageError(err)
	}
	return &project, nil
}

// UpdateImage points the project at a new image record and denormalizes its
// variant list for listing queries.
func (r *ProjectRepository) UpdateImage(ctx context.Context, id, imageID uuid.UUID, variants []entity.ImageVariant) error {
	data, err := entity.MarshalVariants(variants)
	if err != nil {
		return fmt.Errorf("%w: encode variants: %v", service.ErrDatabase, err)
	}

	result := r.db.WithContext(ctx).Model(&entity.Project{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"image_id":       imageID,
			"image_variants": data,
		})
	if result.Error != nil {
		return mapImageError(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: project %s", service.ErrNotFound, id)
	}
	return nil
}
