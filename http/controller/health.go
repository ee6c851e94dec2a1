package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/chainboard/asset-service/utils"
)

func (ctrl *Controller) Health(c *gin.Context) {
	ctx := c.Request.Context()

	checks := gin.H{
		"postgres": "ok",
		"redis":    "ok",
		"storage":  "ok",
	}
	healthy := true

	sqlDB, err := ctrl.Infra.Postgres.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	}

	if err := ctrl.Infra.Redis.Client.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	}

	if err := ctrl.Infra.Minio.HealthCheck(ctx); err != nil {
		checks["storage"] = err.Error()
		healthy = false
	}

	if !healthy {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Health] Dependency check failed: %v", checks)
		utils.JSON500(c, "one or more dependencies are unavailable")
		return
	}

	utils.JSON200(c, checks)
}
