package controller

import (
	"github.com/chainboard/asset-service/config"
	"github.com/chainboard/asset-service/infra"
	"github.com/chainboard/asset-service/repository"
	"github.com/chainboard/asset-service/service"
)

type Controller struct {
	Config     *config.Config
	Infra      *infra.Infra
	Repository *repository.Repository
	Images     *service.ImageService
}

func NewController(config *config.Config, infra *infra.Infra, repo *repository.Repository) *Controller {
	if repo == nil {
		panic("Failed to initialize Repository")
	}

	images := service.NewImageService(
		infra.Minio,
		repo.ImageRepo,
		infra.Produce.AssetService,
		infra.Logger,
		service.ImageServiceConfig{
			ProvisionalTTL:    config.EnvConfig.Asset.ProvisionalTTL,
			SweepLimit:        config.EnvConfig.Asset.SweepLimit,
			MaxVariants:       config.EnvConfig.Asset.MaxVariants,
			MaxImageDimension: config.EnvConfig.Asset.MaxImageDimension,
			StorageTimeout:    config.EnvConfig.Asset.StorageTimeout,
		},
	)

	return &Controller{
		Config:     config,
		Infra:      infra,
		Repository: repo,
		Images:     images,
	}
}
