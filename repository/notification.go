package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chainboard/asset-service/entity"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) FindPublished(ctx context.Context) ([]entity.Notification, error) {
	var notifications []entity.Notification
	err := r.db.WithContext(ctx).
		Where("is_published = ?", true).
		Order("published_at DESC").
		Find(&notifications).Error
	if err != nil {
		return nil, mapImageError(err)
	}
	return notifications, nil
}

func (r *NotificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Notification, error) {
	var notification entity.Notification
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&notification).Error
	if err != nil {
		return nil, mapImageError(err)
	}
	return &notification, nil
}
