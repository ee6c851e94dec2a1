package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/chainboard/asset-service/http/controller"
	middlewares "github.com/chainboard/asset-service/http/middleware"
)

func SetupRouter(ctrl *controller.Controller) *gin.Engine {
	r := gin.Default()
	middles, err := middlewares.NewMiddlewares(ctrl)
	if err != nil {
		panic(err)
	}

	r.Use(middles.CORSMiddleware)

	r.GET("/health", ctrl.Health)

	apiRoutes := r.Group("/api/v1")
	{
		imageRoutes := apiRoutes.Group("/images")
		{
			imageRoutes.POST("/", ctrl.CreateImage)
			imageRoutes.PUT("/:id/name", ctrl.RenameImage)
			imageRoutes.PUT("/:id/used", ctrl.SetImageUsed)
			imageRoutes.DELETE("/:id", ctrl.DeleteImage)
			imageRoutes.POST("/sweep", ctrl.SweepImages)
		}

		projectRoutes := apiRoutes.Group("/projects")
		{
			projectRoutes.GET("/", ctrl.ListProjects)
			projectRoutes.POST("/:id/image", ctrl.UploadProjectImage)
		}

		notificationRoutes := apiRoutes.Group("/notifications")
		{
			notificationRoutes.GET("/", ctrl.ListNotifications)
		}
	}
	return r
}
