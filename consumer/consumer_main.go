package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/chainboard/asset-service/config"
	"github.com/chainboard/asset-service/consumer/worker"
	infraPkg "github.com/chainboard/asset-service/infra"
	"github.com/chainboard/asset-service/repository"
	"github.com/chainboard/asset-service/service"
)

func main() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)
	repo := repository.InitRepository(infra)

	// The worker executes sweeps itself, so it does not publish sweep
	// requests back onto the queue.
	images := service.NewImageService(
		infra.Minio,
		repo.ImageRepo,
		nil,
		infra.Logger,
		service.ImageServiceConfig{
			ProvisionalTTL:    cfg.EnvConfig.Asset.ProvisionalTTL,
			SweepLimit:        cfg.EnvConfig.Asset.SweepLimit,
			MaxVariants:       cfg.EnvConfig.Asset.MaxVariants,
			MaxImageDimension: cfg.EnvConfig.Asset.MaxImageDimension,
			StorageTimeout:    cfg.EnvConfig.Asset.StorageTimeout,
		},
	)

	// Initialize context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweepConsumer := worker.NewSweepConsumer(infra.RabbitMQ.Channel, infra, images, cfg.EnvConfig.Asset.SweepLimit)
	if err := sweepConsumer.Start(ctx); err != nil {
		infra.Logger.ErrorWithContextf(ctx, err, "Failed to start Sweep consumer: %v", err)
		log.Fatalf("Failed to start Sweep consumer: %v", err)
	}

	sweepConsumer.StartScheduledSweeps(ctx, cfg.EnvConfig.Asset.SweepInterval)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	infra.Logger.InfoWithContextf(ctx, "Shutting down consumer...")
	cancel() // Cancel context to stop consumers

	infra.Logger.InfoWithContextf(ctx, "Consumer exited properly")
}
