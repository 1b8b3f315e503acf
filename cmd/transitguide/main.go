package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"transitguide.org/internal/app"
	"transitguide.org/internal/config"
	"transitguide.org/internal/models"
	"transitguide.org/internal/report"
)

const version = "1.0.0"

func main() {
	var (
		port       = flag.Int("port", 4000, "API server port")
		env        = flag.String("env", "development", "Environment (development|staging|production)")
		configFile = flag.String("config-file", "", "Path to a local JSON data source list")
		configURL  = flag.String("config-url", "", "URL to a remote JSON data source list")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := config.ValidateConfigFlags(configFile, configURL); err != nil {
		fmt.Println("Error:", err)
		flag.Usage()
		os.Exit(1)
	}

	if err := config.LoadDotEnv(); err != nil {
		logger.Error("Failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg := config.NewConfig(*port, *env, nil)
	if err := config.ApplyEnv(cfg); err != nil {
		logger.Error("Invalid environment configuration", "error", err)
		os.Exit(1)
	}

	if err := report.SetupSentry(cfg.SentryDSN, cfg.Env, version); err != nil {
		logger.Warn("Sentry disabled", "error", err)
	}
	defer report.FlushSentry()
	report.ConfigureScope(cfg.Env, version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := app.NewPooledClient()
	configAuthUser := os.Getenv("CONFIG_AUTH_USER")
	configAuthPass := os.Getenv("CONFIG_AUTH_PASS")

	sources, err := loadSources(ctx, client, *configFile, *configURL, configAuthUser, configAuthPass, cfg.MaxRetries)
	if err != nil {
		report.ReportError(err, sentry.LevelFatal)
		logger.Error("Failed to load data source configuration", "error", err)
		report.FlushSentry()
		os.Exit(1)
	}
	cfg.UpdateSources(sources)

	application, err := app.New(cfg, logger, client, version)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	// The server comes up even when the first load fails; data endpoints
	// answer 503 until a later refresh succeeds.
	if _, err := application.RefreshService.Refresh(ctx, app.TriggerStartup); err != nil {
		logger.Warn("Initial data load failed", "error", err)
	}

	go application.RefreshService.Run(ctx, cfg.RefreshInterval)

	if *configURL != "" {
		go application.ConfigService.RefreshConfig(ctx, *configURL, configAuthUser, configAuthPass, time.Minute)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      application.Routes(ctx),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 2 * time.Minute,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("starting server", "addr", srv.Addr, "env", cfg.Env, "index_mode", cfg.IndexMode, "sources", len(sources))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		report.ReportError(err, sentry.LevelFatal)
		report.FlushSentry()
		logger.Error(err.Error())
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// loadSources returns the configured data sources, or the Chicago portal
// defaults when neither flag is given.
func loadSources(ctx context.Context, client *http.Client, configFile, configURL, authUser, authPass string, maxRetries int) ([]models.DataSource, error) {
	switch {
	case configFile != "":
		return config.LoadConfigFromFile(configFile)
	case configURL != "":
		return config.LoadConfigFromURL(ctx, client, configURL, authUser, authPass, maxRetries)
	default:
		sources := config.DefaultSources()
		return sources, config.ValidateSources(sources)
	}
}
