package common

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

var (
	// Log is the app global logger. It is slog.Default until InitLogger runs.
	Log = slog.Default()
)

// localEnvironments also log to stdout, at debug level.
var localEnvironments = []string{"lcl", "dk"}

// InitLogger initializes the app global logger, shipping records over OTLP
// and, on local environments, to stdout. It also becomes the slog default.
func InitLogger(serviceName, serviceVersion, serviceEnvironment, exporterEndpoint string) (func(ctx context.Context) error, error) {

	var slogHandler slog.Handler

	ctx := context.Background()

	logExporter, err := otlploggrpc.New(ctx,
		otlploggrpc.WithEndpoint(exporterEndpoint),
		otlploggrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("failed to otlploggrpc.New: %w", err)
	}

	lp := log.NewLoggerProvider(
		log.WithProcessor(
			log.NewBatchProcessor(logExporter),
		),
		log.WithResource(resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
			semconv.DeploymentEnvironmentNameKey.String(serviceEnvironment))),
	)

	slogHandler = otelslog.NewHandler("github.com/ogero/stremio-addon-sdk",
		otelslog.WithLoggerProvider(lp))

	if slices.Contains(localEnvironments, serviceEnvironment) {
		slogHandler = slogmulti.Fanout(
			slogHandler,
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	Log = slog.New(slogHandler).With("service.environment", serviceEnvironment)
	slog.SetDefault(Log)

	return lp.Shutdown, nil
}
