package config

import (
	"fmt"
	"net/url"

	"github.com/caarlos0/env/v11"
)

// Config holds the example addon settings, read from the environment.
type Config struct {
	// AddonHost is the public (external) base URL where the addon is accessible.
	// It is used for any links requiring the addon host address.
	AddonHost string `env:"ADDON_HOST" envDefault:"http://127.0.0.1:3593"`
	// ServerListenAddr specifies the network address that the HTTP server will listen on.
	ServerListenAddr string `env:"SERVER_LISTEN_ADDR" envDefault:":3593"`
	// ServiceEnvironment names the deployment, e.g. "lcl", "dk" or "prd".
	// Local environments also log to stdout.
	ServiceEnvironment string `env:"SERVICE_ENVIRONMENT" envDefault:"lcl"`
	// OTLPExporterEndpoint is the OTLP gRPC collector for logs, traces and metrics.
	OTLPExporterEndpoint string `env:"OTLP_EXPORTER_ENDPOINT" envDefault:"localhost:4317"`
	// CacheDir is where the badger cache lives.
	CacheDir string `env:"CACHE_DIR" envDefault:".cache"`
	// StrictResourceMatching answers 404 to resources the manifest does not declare.
	StrictResourceMatching bool `env:"STRICT_RESOURCE_MATCHING" envDefault:"true"`
	// CacheMaxAge is the default Cache-Control max-age in seconds. 0 disables it.
	CacheMaxAge int `env:"CACHE_MAX_AGE" envDefault:"0"`
	// StatsWebsocketChannel is the centrifuge channel request stats are published to.
	StatsWebsocketChannel string `env:"STATS_WEBSOCKET_CHANNEL" envDefault:"stats"`
}

// Load reads the Config from the environment. AddonHost is reduced to its
// scheme and host.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to env.ParseAs: %w", err)
	}

	u, err := url.Parse(cfg.AddonHost)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ADDON_HOST: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid ADDON_HOST %q: scheme and host are required", cfg.AddonHost)
	}
	cfg.AddonHost = fmt.Sprintf("%s://%s", u.Scheme, u.Host)

	if cfg.CacheMaxAge < 0 {
		return nil, fmt.Errorf("invalid CACHE_MAX_AGE %d: must not be negative", cfg.CacheMaxAge)
	}

	return &cfg, nil
}
