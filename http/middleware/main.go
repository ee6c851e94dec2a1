package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/chainboard/asset-service/http/controller"
)

type Middlewares struct {
	CORSMiddleware gin.HandlerFunc
}

func NewMiddlewares(ctrl *controller.Controller) (*Middlewares, error) {
	cors := CORSMiddleware(ctrl.Config.EnvConfig)

	return &Middlewares{
		CORSMiddleware: cors,
	}, nil
}
