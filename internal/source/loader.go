package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"transitguide.org/internal/config"
	"transitguide.org/internal/models"
	"transitguide.org/internal/normalize"
	"transitguide.org/internal/report"
	"transitguide.org/internal/utils"
)

// Outcome is what one source contributed to a refresh.
type Outcome struct {
	Source models.DataSource
	// Batch is nil when the source contributed nothing.
	Batch *Batch
	// Err is set when the source could not be refreshed. The source may still
	// contribute a stale Batch from the cache.
	Err error
	// Stale marks a Batch served from the cache because the fetch failed or
	// the source is backing off.
	Stale bool
	// Skipped marks a source left alone because it is inside its backoff window.
	Skipped bool
}

// Warning returns the user-facing warning for the outcome, or "" when the
// source refreshed cleanly.
func (o Outcome) Warning() string {
	switch {
	case o.Err == nil:
		return ""
	case o.Batch != nil:
		return fmt.Sprintf("%s could not be refreshed; using data fetched at %s", o.Source.Name, o.Batch.FetchedAt.Format(time.RFC3339))
	default:
		return fmt.Sprintf("%s is unavailable; results exclude its data", o.Source.Name)
	}
}

// Loader fetches every configured source concurrently and maintains the
// source cache and the per-source backoff state.
type Loader struct {
	Client     *http.Client
	Cache      *Cache
	Backoff    *config.BackoffStore
	MaxRetries int
	Logger     *slog.Logger
}

func NewLoader(client *http.Client, cache *Cache, backoff *config.BackoffStore, maxRetries int, logger *slog.Logger) *Loader {
	return &Loader{
		Client:     client,
		Cache:      cache,
		Backoff:    backoff,
		MaxRetries: maxRetries,
		Logger:     logger,
	}
}

// LoadAll refreshes every source and returns one Outcome per source, in the
// order given. With force set the cache is flushed first and backoff windows
// are ignored; otherwise a source inside its backoff window is not fetched and
// falls back to its cached batch, if any.
func (l *Loader) LoadAll(ctx context.Context, sources []models.DataSource, force bool) []Outcome {
	if force {
		l.Cache.Flush()
	}

	outcomes := make([]Outcome, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = l.load(ctx, src, force)
		}()
	}
	wg.Wait()
	return outcomes
}

func (l *Loader) load(ctx context.Context, src models.DataSource, force bool) Outcome {
	out := Outcome{Source: src}

	if !force && l.Backoff.ShouldSkip(src.Name, time.Now()) {
		next, _ := l.Backoff.NextRetryAt(src.Name)
		out.Skipped = true
		out.Err = fmt.Errorf("%w: %s is backing off until %s", normalize.ErrDataUnavailable, src.Name, next.Format(time.RFC3339))
		if cached, ok := l.Cache.Get(src.Name); ok {
			out.Batch, out.Stale = &cached, true
		}
		l.Logger.Warn("Skipping data source in backoff", "source", src.Name, "next_retry_at", next, "stale", out.Stale)
		return out
	}

	batch, err := Load(ctx, l.Client, src, l.MaxRetries)
	if err != nil {
		l.Backoff.UpdateBackoff(src.Name)
		out.Err = err
		if cached, ok := l.Cache.Get(src.Name); ok {
			out.Batch, out.Stale = &cached, true
		}

		level := sentry.LevelError
		if errors.Is(err, normalize.ErrDataUnavailable) {
			level = sentry.LevelWarning
		}
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags: utils.SourceTags(src),
			ExtraContext: map[string]interface{}{
				"url":      src.URL,
				"failures": l.Backoff.Failures(src.Name),
				"received": batch.Report.Received,
				"dropped":  batch.Report.Dropped,
			},
			Level: level,
		})
		l.Logger.Error("Failed to load data source", "source", src.Name, "error", err, "stale", out.Stale)
		return out
	}

	l.Backoff.ResetBackoff(src.Name)
	l.Cache.Set(batch)
	out.Batch = &batch
	l.Logger.Info("Loaded data source", "source", src.Name, "report", batch.Report)
	return out
}
