package infra

import (
	"context"
	"fmt"

	"github.com/chainboard/asset-service/config"
	"github.com/chainboard/asset-service/infra/produce"
)

type Infra struct {
	Postgres  *PostgresClient
	Redis     *RedisClient
	Logger    *LoggerClient
	RabbitMQ  *RabbitMQClient
	Minio     *MinioClient
	Telemetry *TelemetryClient
	Produce   *produce.Produce
}

var infraInstance *Infra

func InitInfra(cfg *config.Config) *Infra {
	if infraInstance != nil {
		return infraInstance
	}

	logger := InitLoggerClient(cfg.EnvConfig)
	if logger == nil {
		panic("Failed to initialize Logger service")
	}

	telemetry := InitTelemetry(cfg.EnvConfig)

	postgres := InitPostgresClient(cfg.EnvConfig)
	if postgres == nil {
		panic("Failed to initialize Postgres service")
	}

	redis := InitRedisClient(cfg.EnvConfig)
	if redis == nil {
		panic("Failed to initialize Redis service")
	}

	rabbitMQ := InitRabbitMQClient(cfg.EnvConfig)
	if rabbitMQ == nil {
		panic("Failed to initialize RabbitMQ service")
	}

	produceService := produce.InitProduce(rabbitMQ.Channel)
	if produceService == nil {
		panic("Failed to initialize Produce service")
	}

	minio := InitMinioClient(cfg.EnvConfig)
	if minio == nil {
		panic("Failed to initialize MinIO service")
	}

	if err := minio.EnsureBucket(context.Background()); err != nil {
		panic(fmt.Sprintf("Failed to ensure asset bucket: %v", err))
	}

	infraInstance = &Infra{
		Postgres:  postgres,
		Redis:     redis,
		Logger:    logger,
		RabbitMQ:  rabbitMQ,
		Minio:     minio,
		Telemetry: telemetry,
		Produce:   produceService,
	}

	return infraInstance
}

func GetClient() *Infra {
	if infraInstance == nil {
		panic("Infra not initialized. Call InitInfra() first.")
	}
	return infraInstance
}
