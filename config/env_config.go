package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type EnvConfig struct {
	Postgres struct {
		HOST     string
		Database string
		Username string
		Password string
		Port     string
	}
	CORS struct {
		AllowDomains string
		GlobalDomain string
	}
	Redis struct {
		Password  string
		Database  int
		RedisHost string
		RedisPort string
	}
	RabbitMQ struct {
		Host     string
		Port     string
		Username string
		Password string
	}
	Minio struct {
		Endpoint      string
		RootUser      string
		RootPassword  string
		Bucket        string
		PublicBaseURL string
		UseSSL        bool
	}
	Asset struct {
		ProvisionalTTL    time.Duration // window before an unused image expires
		SweepLimit        int           // max records deleted per sweep pass
		SweepInterval     time.Duration // ticker period for the sweep worker
		MaxVariants       int
		MaxImageDimension int
		StorageTimeout    time.Duration // per-call deadline for object storage
		CacheTTL          time.Duration // API read-path cache window
	}
	Grafana struct {
		OTLPEndpoint string
		ServiceName  string
	}
	Environment struct {
		Mode  string
		Group string
	}
	DomainName string
}

func LoadEnvConfig() *EnvConfig {
	var config EnvConfig

	// Postgres
	config.Postgres.HOST = os.Getenv("PGPOOL_HOST")
	config.Postgres.Database = os.Getenv("PGPOOL_DB")
	config.Postgres.Username = os.Getenv("PGPOOL_USER")
	config.Postgres.Password = os.Getenv("PGPOOL_PASSWORD")
	config.Postgres.Port = os.Getenv("PGPOOL_PORT")

	config.CORS.AllowDomains = os.Getenv("ALLOWED_DOMAINS")
	config.CORS.GlobalDomain = os.Getenv("GLOBAL_DOMAIN")

	config.Redis.Password = os.Getenv("REDIS_PASSWORD")
	config.Redis.Database, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	config.Redis.RedisHost = os.Getenv("REDIS_HOST")
	config.Redis.RedisPort = os.Getenv("REDIS_PORT")

	// RabbitMQ
	config.RabbitMQ.Host = os.Getenv("RABBITMQ_HOST")
	if config.RabbitMQ.Host == "" {
		config.RabbitMQ.Host = "localhost"
	}
	config.RabbitMQ.Port = os.Getenv("RABBITMQ_PORT")
	if config.RabbitMQ.Port == "" {
		config.RabbitMQ.Port = "5672"
	}
	config.RabbitMQ.Username = os.Getenv("RABBITMQ_USER")
	if config.RabbitMQ.Username == "" {
		config.RabbitMQ.Username = "guest"
	}
	config.RabbitMQ.Password = os.Getenv("RABBITMQ_PASSWORD")
	if config.RabbitMQ.Password == "" {
		config.RabbitMQ.Password = "guest"
	}

	// MinIO
	config.Minio.Endpoint = os.Getenv("MINIO_ENDPOINT")
	config.Minio.RootUser = os.Getenv("MINIO_ROOT_USER")
	config.Minio.RootPassword = os.Getenv("MINIO_ROOT_PASSWORD")
	config.Minio.Bucket = os.Getenv("MINIO_BUCKET")
	if config.Minio.Bucket == "" {
		config.Minio.Bucket = "chainboard-assets"
	}
	config.Minio.PublicBaseURL = strings.TrimSuffix(os.Getenv("MINIO_PUBLIC_BASE_URL"), "/")
	if config.Minio.PublicBaseURL == "" {
		config.Minio.PublicBaseURL = "http://" + config.Minio.Endpoint
	}
	config.Minio.UseSSL = os.Getenv("MINIO_USE_SSL") == "true"

	// Asset lifecycle
	if val := os.Getenv("ASSET_PROVISIONAL_TTL"); val != "" {
		if ttl, err := time.ParseDuration(val); err == nil {
			config.Asset.ProvisionalTTL = ttl
		}
	}
	if config.Asset.ProvisionalTTL == 0 {
		config.Asset.ProvisionalTTL = 24 * time.Hour
	}

	config.Asset.SweepLimit, _ = strconv.Atoi(os.Getenv("ASSET_SWEEP_LIMIT"))
	if config.Asset.SweepLimit <= 0 {
		config.Asset.SweepLimit = 10
	}

	if val := os.Getenv("ASSET_SWEEP_INTERVAL"); val != "" {
		if interval, err := time.ParseDuration(val); err == nil {
			config.Asset.SweepInterval = interval
		}
	}
	if config.Asset.SweepInterval == 0 {
		config.Asset.SweepInterval = time.Hour
	}

	config.Asset.MaxVariants, _ = strconv.Atoi(os.Getenv("ASSET_MAX_VARIANTS"))
	if config.Asset.MaxVariants <= 0 {
		config.Asset.MaxVariants = 100
	}

	config.Asset.MaxImageDimension, _ = strconv.Atoi(os.Getenv("ASSET_MAX_IMAGE_DIMENSION"))
	if config.Asset.MaxImageDimension <= 0 {
		config.Asset.MaxImageDimension = 10000
	}

	if val := os.Getenv("ASSET_STORAGE_TIMEOUT"); val != "" {
		if timeout, err := time.ParseDuration(val); err == nil {
			config.Asset.StorageTimeout = timeout
		}
	}
	if config.Asset.StorageTimeout == 0 {
		config.Asset.StorageTimeout = 30 * time.Second
	}

	if val := os.Getenv("ASSET_CACHE_TTL"); val != "" {
		if ttl, err := time.ParseDuration(val); err == nil {
			config.Asset.CacheTTL = ttl
		}
	}
	if config.Asset.CacheTTL == 0 {
		config.Asset.CacheTTL = 5 * time.Minute
	}

	// Grafana/OpenTelemetry
	grafanaEndpoint := os.Getenv("GRAFANA_OTLP_ENDPOINT")
	if grafanaEndpoint == "" {
		grafanaEndpoint = "localhost:4318"
	}
	// Remove protocol for OpenTelemetry client to avoid duplicate protocols
	if strings.HasPrefix(grafanaEndpoint, "https://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "https://")
	} else if strings.HasPrefix(grafanaEndpoint, "http://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "http://")
	} else {
		config.Grafana.OTLPEndpoint = grafanaEndpoint
	}
	config.Grafana.ServiceName = os.Getenv("SERVICE_NAME")
	if config.Grafana.ServiceName == "" {
		config.Grafana.ServiceName = "chainboard-asset-service"
	}

	config.Environment.Mode = os.Getenv("DEPLOY_ENV")
	if config.Environment.Mode == "" {
		config.Environment.Mode = "development"
	}

	config.Environment.Group = os.Getenv("GROUP_NAME")
	if config.Environment.Group == "" {
		config.Environment.Group = "local"
	}

	config.DomainName = os.Getenv("DOMAIN_NAME")
	if config.DomainName == "" {
		config.DomainName = "localhost:8080"
	}

	return &config
}
