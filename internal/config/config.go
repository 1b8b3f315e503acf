package config

import (
	"fmt"
	"sync"
	"time"

	"transitguide.org/internal/models"
)

const (
	DefaultRefreshInterval = 24 * time.Hour
	DefaultMaxRetries      = 3
	DefaultIndexMode       = "scan"
)

// Config holds all the configuration settings for our application.
type Config struct {
	Port            int
	Env             string
	RefreshInterval time.Duration
	MaxRetries      int
	IndexMode       string
	CORSOrigins     []string
	SentryDSN       string
	AppToken        string
	Mu              sync.RWMutex
	Sources         []models.DataSource
}

// NewConfig creates a new instance of a Config struct.
func NewConfig(port int, env string, sources []models.DataSource) *Config {
	return &Config{
		Port:            port,
		Env:             env,
		RefreshInterval: DefaultRefreshInterval,
		MaxRetries:      DefaultMaxRetries,
		IndexMode:       DefaultIndexMode,
		Sources:         sources,
	}
}

// DefaultSources returns the Chicago Data Portal feeds the guide is built on.
func DefaultSources() []models.DataSource {
	return []models.DataSource{
		*models.NewDataSource("cta-rail-stations", models.SourceRail, "https://data.cityofchicago.org/resource/8pix-ypme.json", 5000),
		*models.NewDataSource("cta-bus-stops", models.SourceBus, "https://data.cityofchicago.org/resource/qs84-j7wh.json", 20000),
		*models.NewDataSource("chicago-landmarks", models.SourceLandmark, "https://data.cityofchicago.org/resource/tdab-kixi.json", 5000),
	}
}

// UpdateSources safely replaces the configured data sources.
func (cfg *Config) UpdateSources(sources []models.DataSource) {
	cfg.Mu.Lock()
	defer cfg.Mu.Unlock()
	cfg.Sources = sources
}

// GetSources returns a copy of the sources with the portal app token filled in
// where a source does not carry its own.
func (cfg *Config) GetSources() []models.DataSource {
	cfg.Mu.RLock()
	defer cfg.Mu.RUnlock()
	sources := append([]models.DataSource(nil), cfg.Sources...)
	for i := range sources {
		if sources[i].AppToken == "" && sources[i].Kind != models.SourceGTFS {
			sources[i].AppToken = cfg.AppToken
		}
	}
	return sources
}

// ValidateSources checks that every source is usable and that names are unique,
// since names key the source cache and backoff state.
func ValidateSources(sources []models.DataSource) error {
	if len(sources) == 0 {
		return fmt.Errorf("no data sources configured")
	}
	seen := make(map[string]struct{}, len(sources))
	for i, src := range sources {
		if src.Name == "" {
			return fmt.Errorf("source %d: name is required", i)
		}
		if _, dup := seen[src.Name]; dup {
			return fmt.Errorf("source %q: duplicate name", src.Name)
		}
		seen[src.Name] = struct{}{}
		if src.URL == "" {
			return fmt.Errorf("source %q: url is required", src.Name)
		}
		switch src.Kind {
		case models.SourceRail, models.SourceBus, models.SourceLandmark, models.SourceGTFS:
		default:
			return fmt.Errorf("source %q: unknown kind %q", src.Name, src.Kind)
		}
		if src.Limit < 0 {
			return fmt.Errorf("source %q: limit must not be negative", src.Name)
		}
	}
	return nil
}
