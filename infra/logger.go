package infra

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/chainboard/asset-service/config"
)

// LoggerClient routes structured logs through the OTLP pipeline via the
// otelslog bridge, falling back to stdout when no collector is reachable.
type LoggerClient struct {
	logger   *slog.Logger
	provider *sdklog.LoggerProvider
}

func InitLoggerClient(cfg *config.EnvConfig) *LoggerClient {
	ctx := context.Background()

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.Grafana.ServiceName),
		semconv.DeploymentEnvironment(cfg.Environment.Mode),
	))
	if err != nil {
		log.Printf("Warning: failed to build telemetry resource: %v", err)
		res = resource.Default()
	}

	opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Grafana.OTLPEndpoint)}
	if cfg.Environment.Mode != "production" {
		opts = append(opts, otlploghttp.WithInsecure())
	}

	exporter, err := otlploghttp.New(ctx, opts...)
	if err != nil {
		log.Printf("Warning: OTLP log exporter unavailable, logging to stdout: %v", err)
		return &LoggerClient{
			logger: slog.New(slog.NewTextHandler(os.Stdout, nil)),
		}
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(provider)

	return &LoggerClient{
		logger:   otelslog.NewLogger(cfg.Grafana.ServiceName, otelslog.WithLoggerProvider(provider)),
		provider: provider,
	}
}

func (l *LoggerClient) InfoWithContextf(ctx context.Context, format string, args ...interface{}) {
	l.logger.InfoContext(ctx, fmt.Sprintf(format, args...))
}

func (l *LoggerClient) WarningWithContextf(ctx context.Context, format string, args ...interface{}) {
	l.logger.WarnContext(ctx, fmt.Sprintf(format, args...))
}

func (l *LoggerClient) ErrorWithContextf(ctx context.Context, err error, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		l.logger.ErrorContext(ctx, msg, slog.String("error", err.Error()))
		return
	}
	l.logger.ErrorContext(ctx, msg)
}

func (l *LoggerClient) Shutdown(ctx context.Context) {
	if l.provider != nil {
		_ = l.provider.Shutdown(ctx)
	}
}
