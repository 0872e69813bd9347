package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ogero/stremio-addon-sdk/internal"
	"github.com/ogero/stremio-addon-sdk/internal/cache"
	"github.com/ogero/stremio-addon-sdk/internal/common"
	"github.com/ogero/stremio-addon-sdk/internal/config"
	"github.com/ogero/stremio-addon-sdk/pkg/imdb"
	slogchi "github.com/samber/slog-chi"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	serviceName    = "stremio-addon-helloworld"
	serviceVersion = "1.0.0"
)

func main() {

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(fmt.Errorf("failed to config.Load: %w", err))
	}

	shutdownLogger, err := common.InitLogger(serviceName, serviceVersion, cfg.ServiceEnvironment, cfg.OTLPExporterEndpoint)
	if err != nil {
		log.Fatal(fmt.Errorf("failed to common.InitLogger: %w", err))
	}

	shutdownInstrumentation, err := common.InitInstrumentation(serviceName, serviceVersion, cfg.ServiceEnvironment, cfg.OTLPExporterEndpoint)
	if err != nil {
		common.Log.Error("Failed to common.InitInstrumentation", "err", err)
		os.Exit(1)
	}

	if err = cache.Init(cfg.CacheDir); err != nil {
		common.Log.Error("Failed to cache.Init", "err", err)
		os.Exit(1)
	}

	stremioService, err := internal.NewStremioService(cfg.StatsWebsocketChannel, cfg.AddonHost, imdb.NewStalkrIMDB())
	if err != nil {
		common.Log.Error("Failed to internal.NewStremioService", "err", err)
		os.Exit(1)
	}

	app, err := internal.NewApp(stremioService, cfg.AddonHost)
	if err != nil {
		common.Log.Error("Failed to internal.NewApp", "err", err)
		os.Exit(1)
	}

	appHandler, err := app.Handler(cfg.StrictResourceMatching, cfg.CacheMaxAge)
	if err != nil {
		common.Log.Error("Failed to internal.App.Handler", "err", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(slogchi.NewWithConfig(common.Log, slogchi.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		WithTraceID:      true,
		WithSpanID:       true,
	}))
	r.Use(middleware.Recoverer)
	r.Mount("/", appHandler)

	// Listen
	srv := &http.Server{
		Addr:    cfg.ServerListenAddr,
		Handler: otelhttp.NewHandler(r, "addon"),
	}
	go func() {
		common.Log.Info("Listening on " + cfg.ServerListenAddr)
		common.Log.Info("Install at " + fmt.Sprintf("%s/manifest.json", cfg.AddonHost))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.Log.Error("Failed to http.Server.ListenAndServe", "err", err)
		}
	}()

	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		common.Log.Error("Failed to http server shutdown", "err", err)
	}

	if err := stremioService.Shutdown(ctx); err != nil {
		common.Log.Error("Failed to internal.StremioService.Shutdown", "err", err)
	}

	if err := cache.Close(); err != nil {
		common.Log.Error("Failed to cache.Close", "err", err)
	}

	common.Log.Info("Bye!")

	if err := shutdownInstrumentation(ctx); err != nil {
		common.Log.Error("Failed to shutdown instrumentation", "err", err)
	}
	if err := shutdownLogger(ctx); err != nil {
		log.Println("Failed to shutdown logger:", err)
	}
}
