package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the given .env files (".env" when none are
// named) without overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg from environment variables:
//
//	SENTRY_DSN, SOCRATA_APP_TOKEN, REFRESH_INTERVAL (Go duration),
//	MAX_RETRIES, INDEX_MODE (scan|kdtree), CORS_ORIGINS (comma separated)
func ApplyEnv(cfg *Config) error {
	cfg.SentryDSN = os.Getenv("SENTRY_DSN")
	cfg.AppToken = os.Getenv("SOCRATA_APP_TOKEN")

	if v := os.Getenv("REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid REFRESH_INTERVAL: %q", v)
		}
		cfg.RefreshInterval = d
	}

	if v := os.Getenv("MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid MAX_RETRIES: %q", v)
		}
		cfg.MaxRetries = n
	}

	if v := os.Getenv("INDEX_MODE"); v != "" {
		mode := strings.ToLower(strings.TrimSpace(v))
		if mode != "scan" && mode != "kdtree" {
			return fmt.Errorf("invalid INDEX_MODE: %q", v)
		}
		cfg.IndexMode = mode
	}

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSOrigins = origins
	}
	return nil
}
