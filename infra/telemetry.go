package infra

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/chainboard/asset-service/config"
)

// TelemetryClient owns the OTLP trace and metric pipelines plus runtime
// instrumentation. Initialization failures are non-fatal: the service runs
// without telemetry rather than refusing to start.
type TelemetryClient struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

func InitTelemetry(cfg *config.EnvConfig) *TelemetryClient {
	ctx := context.Background()
	client := &TelemetryClient{}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.Grafana.ServiceName),
		semconv.DeploymentEnvironment(cfg.Environment.Mode),
	))
	if err != nil {
		res = resource.Default()
	}

	insecure := cfg.Environment.Mode != "production"

	traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Grafana.OTLPEndpoint)}
	if insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
	}
	traceExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		log.Printf("Warning: OTLP trace exporter unavailable: %v", err)
	} else {
		client.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(traceExporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(client.tracerProvider)
	}

	metricOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Grafana.OTLPEndpoint)}
	if insecure {
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}
	metricExporter, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		log.Printf("Warning: OTLP metric exporter unavailable: %v", err)
	} else {
		client.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(client.meterProvider)

		if err := runtime.Start(runtime.WithMinimumReadMemStatsInterval(time.Minute)); err != nil {
			log.Printf("Warning: failed to start runtime instrumentation: %v", err)
		}
	}

	return client
}

func (t *TelemetryClient) Shutdown(ctx context.Context) {
	if t.tracerProvider != nil {
		_ = t.tracerProvider.Shutdown(ctx)
	}
	if t.meterProvider != nil {
		_ = t.meterProvider.Shutdown(ctx)
	}
}
