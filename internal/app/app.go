package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"transitguide.org/internal/config"
	"transitguide.org/internal/metrics"
	"transitguide.org/internal/registry"
	"transitguide.org/internal/resolver"
	"transitguide.org/internal/source"
)

// Application holds the services the HTTP handlers and background loops share.
type Application struct {
	ConfigService  *config.ConfigService
	RefreshService *RefreshService
	MetricsService *metrics.MetricsService
	Store          *registry.Store
	Logger         *slog.Logger
	Version        string
}

// New wires every dependency for the Application. No data is fetched until
// the first call to RefreshService.Refresh.
func New(cfg *config.Config, logger *slog.Logger, client *http.Client, version string) (*Application, error) {
	mode, err := resolver.ParseMode(cfg.IndexMode)
	if err != nil {
		return nil, fmt.Errorf("invalid index mode: %w", err)
	}

	store := registry.NewStore()
	backoff := config.NewBackoffStore()
	loader := source.NewLoader(client, source.NewCache(), backoff, cfg.MaxRetries, logger)

	configService := config.NewConfigService(logger, client, cfg)
	metricsService := metrics.NewMetricsService(logger)
	refreshService := NewRefreshService(cfg, loader, store, metricsService, mode, logger)

	return &Application{
		ConfigService:  configService,
		RefreshService: refreshService,
		MetricsService: metricsService,
		Store:          store,
		Logger:         logger,
		Version:        version,
	}, nil
}
