package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"transitguide.org/internal/config"
	"transitguide.org/internal/metrics"
	"transitguide.org/internal/models"
	"transitguide.org/internal/normalize"
	"transitguide.org/internal/registry"
	"transitguide.org/internal/report"
	"transitguide.org/internal/resolver"
	"transitguide.org/internal/source"
	"transitguide.org/internal/utils"
)

const (
	TriggerStartup   = "startup"
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// ErrNoData is returned when no source produced data, fresh or cached. The
// current snapshot, if any, is left in place.
var ErrNoData = errors.New("no data source produced data")

// RefreshService loads every source, builds a snapshot and swaps it in.
type RefreshService struct {
	Config  *config.Config
	Loader  *source.Loader
	Store   *registry.Store
	Metrics *metrics.MetricsService
	Mode    resolver.Mode
	Logger  *slog.Logger

	// mu keeps two refreshes from interleaving their swaps.
	mu sync.Mutex
}

func NewRefreshService(cfg *config.Config, loader *source.Loader, store *registry.Store, ms *metrics.MetricsService, mode resolver.Mode, logger *slog.Logger) *RefreshService {
	return &RefreshService{
		Config:  cfg,
		Loader:  loader,
		Store:   store,
		Metrics: ms,
		Mode:    mode,
		Logger:  logger,
	}
}

// Refresh performs one whole-batch refresh. A manual trigger flushes the
// source cache and ignores backoff windows.
func (rs *RefreshService) Refresh(ctx context.Context, trigger string) (*registry.Snapshot, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	start := time.Now()
	outcomes := rs.Loader.LoadAll(ctx, rs.Config.GetSources(), trigger == TriggerManual)
	rs.recordOutcomes(outcomes)

	snap, err := buildSnapshot(outcomes, resolver.Builder(rs.Mode))
	rs.Metrics.RecordRefresh(trigger, err, time.Since(start))
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:         utils.MakeMap("trigger", trigger),
			ExtraContext: map[string]interface{}{"sources": len(outcomes)},
			Level:        sentry.LevelError,
		})
		rs.Logger.Error("Refresh failed; keeping current snapshot", "trigger", trigger, "error", err)
		return nil, err
	}

	rs.Store.Swap(snap)
	rs.Metrics.RecordSnapshot(snap)
	counts := snap.Stops.Counts()
	rs.Logger.Info("Snapshot loaded",
		"trigger", trigger,
		"snapshot_id", snap.ID,
		"landmarks", len(snap.Landmarks),
		"rail_stations", counts.Rail,
		"bus_stops", counts.Bus,
		"warnings", len(snap.Warnings),
		"took", time.Since(start))
	return snap, nil
}

// Run refreshes every interval until ctx is done.
func (rs *RefreshService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rs.Logger.Info("Stopping scheduled refresh")
			return
		case <-ticker.C:
			_, _ = rs.Refresh(ctx, TriggerScheduled)
		}
	}
}

func (rs *RefreshService) recordOutcomes(outcomes []source.Outcome) {
	for _, out := range outcomes {
		var fetchedAt time.Time
		if out.Batch != nil {
			fetchedAt = out.Batch.FetchedAt
		}
		rs.Metrics.RecordSourceStatus(out.Source, out.Err == nil, rs.Loader.Backoff.Failures(out.Source.Name), fetchedAt)
		if out.Batch != nil && !out.Stale {
			rs.Metrics.RecordNormalization(out.Batch.Report)
		}
	}
}

// buildSnapshot merges the outcomes of one refresh. Socrata stops come before
// GTFS stops of the same type, so a portal record wins a duplicate id.
// Landmarks from several sources keep the first record for a name.
func buildSnapshot(outcomes []source.Outcome, build registry.FinderBuilder) (*registry.Snapshot, error) {
	var (
		rail, bus, gtfsRail, gtfsBus []models.StopRecord
		landmarks                    []models.LandmarkRecord
		warnings                     []string
		reports                      []normalize.Report
		contributed                  int
	)
	seenNames := make(map[string]struct{})

	for _, out := range outcomes {
		if w := out.Warning(); w != "" {
			warnings = append(warnings, w)
		}
		if out.Batch == nil {
			continue
		}
		contributed++
		reports = append(reports, out.Batch.Report)

		for _, stop := range out.Batch.Stops {
			gtfs := out.Source.Kind == models.SourceGTFS
			switch {
			case stop.StopType == models.RailStation && gtfs:
				gtfsRail = append(gtfsRail, stop)
			case stop.StopType == models.RailStation:
				rail = append(rail, stop)
			case stop.StopType == models.BusStop && gtfs:
				gtfsBus = append(gtfsBus, stop)
			case stop.StopType == models.BusStop:
				bus = append(bus, stop)
			}
		}
		for _, lm := range out.Batch.Landmarks {
			if _, dup := seenNames[lm.Name]; dup {
				continue
			}
			seenNames[lm.Name] = struct{}{}
			landmarks = append(landmarks, lm)
		}
	}

	if contributed == 0 {
		return nil, fmt.Errorf("%w (%d sources tried)", ErrNoData, len(outcomes))
	}

	stops := registry.Merge(append(rail, gtfsRail...), append(bus, gtfsBus...))
	return registry.NewSnapshot(normalize.SortLandmarksByName(landmarks), stops, warnings, reports, build), nil
}
