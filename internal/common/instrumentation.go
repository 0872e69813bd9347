package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

const metricExportInterval = 30 * time.Second

// InitInstrumentation registers the global otel meter and tracer providers,
// both exporting over OTLP gRPC to exporterEndpoint, and the addon counters.
// The returned func flushes and stops both providers.
func InitInstrumentation(serviceName, serviceVersion, serviceEnvironment, exporterEndpoint string) (func(ctx context.Context) error, error) {
	ctx := context.Background()

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
		semconv.DeploymentEnvironmentName(serviceEnvironment),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to resource.Merge: %w", err)
	}

	meterProvider, err := newMeterProvider(ctx, res, exporterEndpoint)
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(meterProvider)

	if err = initCounters(serviceName, serviceVersion, serviceEnvironment); err != nil {
		_ = meterProvider.Shutdown(ctx)
		return nil, err
	}

	tracerProvider, err := newTracerProvider(ctx, res, exporterEndpoint)
	if err != nil {
		_ = meterProvider.Shutdown(ctx)
		return nil, err
	}
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		// Provider shutdown also shuts down the exporters.
		return errors.Join(meterProvider.Shutdown(ctx), tracerProvider.Shutdown(ctx))
	}, nil
}

func newMeterProvider(ctx context.Context, res *resource.Resource, endpoint string) (*metric.MeterProvider, error) {
	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithInsecure(),
		otlpmetricgrpc.WithEndpoint(endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to otlpmetricgrpc.New: %w", err)
	}
	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(metricExportInterval))),
	), nil
}

func newTracerProvider(ctx context.Context, res *resource.Resource, endpoint string) (*trace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithEndpoint(endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to otlptracegrpc.New: %w", err)
	}
	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	), nil
}

// CacheGetsTotalIncr counts a cache lookup, result being "hit" or "miss".
var CacheGetsTotalIncr = func(ctx context.Context, keyPrefix, result string) {}

// AddonRequestsTotalIncr counts an addon protocol request per resource and result.
var AddonRequestsTotalIncr = func(ctx context.Context, resource, result string) {}

// SubtitlesDownloadsTotalIncr counts a bundled subtitle file download.
var SubtitlesDownloadsTotalIncr = func(ctx context.Context) {}

// initCounters swaps the no-op counter funcs for otel backed ones.
func initCounters(serviceName, serviceVersion, serviceEnvironment string) error {
	meter := otel.Meter(serviceName)
	base := []attribute.KeyValue{
		semconv.DeploymentEnvironmentName(serviceEnvironment),
		semconv.ServiceVersion(serviceVersion),
	}
	counter := func(name string) (func(ctx context.Context, attrs ...attribute.KeyValue), error) {
		c, err := meter.Int64Counter(name)
		if err != nil {
			return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
		}
		return func(ctx context.Context, attrs ...attribute.KeyValue) {
			all := append(append(make([]attribute.KeyValue, 0, len(base)+len(attrs)), base...), attrs...)
			c.Add(ctx, 1, otelmetric.WithAttributes(all...))
		}, nil
	}

	cacheGets, err := counter("cache_gets_total")
	if err != nil {
		return err
	}
	addonRequests, err := counter("addon_requests_total")
	if err != nil {
		return err
	}
	subtitlesDownloads, err := counter("subtitles_downloads_total")
	if err != nil {
		return err
	}

	CacheGetsTotalIncr = func(ctx context.Context, keyPrefix, result string) {
		cacheGets(ctx, attribute.String("key.prefix", keyPrefix), attribute.String("result", result))
	}
	AddonRequestsTotalIncr = func(ctx context.Context, resource, result string) {
		addonRequests(ctx, attribute.String("resource", resource), attribute.String("result", result))
	}
	SubtitlesDownloadsTotalIncr = func(ctx context.Context) {
		subtitlesDownloads(ctx)
	}
	return nil
}
