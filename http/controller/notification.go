package controller

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/chainboard/asset-service/entity"
	"github.com/chainboard/asset-service/infra"
	"github.com/chainboard/asset-service/utils"
)

const notificationCacheKey = "notifications"

func (ctrl *Controller) ListNotifications(c *gin.Context) {
	ctx := c.Request.Context()

	var notifications []entity.Notification
	err := ctrl.Infra.Redis.Get(ctx, notificationCacheKey, &notifications)
	if err == nil {
		utils.JSON200(c, gin.H{"notifications": notifications})
		return
	}
	if !errors.Is(err, infra.ErrCacheMiss) {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Notification] Cache read failed: %v", err)
	}

	notifications, err = ctrl.Repository.NotificationRepo.FindPublished(ctx)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Notification] Failed to list notifications: %v", err)
		utils.JSON500(c, "Failed to list notifications")
		return
	}

	if err := ctrl.Infra.Redis.Set(ctx, notificationCacheKey, notifications, ctrl.Config.EnvConfig.Asset.CacheTTL); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Notification] Cache write failed: %v", err)
	}

	utils.JSON200(c, gin.H{"notifications": notifications})
}
