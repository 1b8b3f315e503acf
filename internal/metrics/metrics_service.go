package metrics

import (
	"log/slog"
	"time"

	"transitguide.org/internal/models"
	"transitguide.org/internal/normalize"
	"transitguide.org/internal/registry"
)

// MetricsService exports refresh and query results as Prometheus metrics.
type MetricsService struct {
	Logger *slog.Logger
}

func NewMetricsService(logger *slog.Logger) *MetricsService {
	return &MetricsService{Logger: logger}
}

func (ms *MetricsService) RecordNormalization(report normalize.Report) {
	recordNormalization(report)
	ms.Logger.Info("Normalized data source", "report", report)
}

func (ms *MetricsService) RecordSourceStatus(src models.DataSource, up bool, failures int, at time.Time) {
	recordSourceStatus(src, up, failures, at)
}

func (ms *MetricsService) RecordSnapshot(snap *registry.Snapshot) {
	recordSnapshot(snap)
}

func (ms *MetricsService) RecordRefresh(trigger string, err error, took time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	RefreshTotal.WithLabelValues(trigger, result).Inc()
	RefreshDuration.Observe(took.Seconds())
}

// RecordNearest counts a nearest-stop query. outcome is "found", "no_stops"
// or "error"; the distance is only observed for found stops.
func (ms *MetricsService) RecordNearest(filter registry.TypeFilter, outcome string, miles float64) {
	NearestQueries.WithLabelValues(string(filter), outcome).Inc()
	if outcome == "found" {
		NearestDistance.WithLabelValues(string(filter)).Observe(miles)
	}
}

func recordNormalization(report normalize.Report) {
	RecordsReceived.WithLabelValues(report.Source).Set(float64(report.Received))
	RecordsKept.WithLabelValues(report.Source).Set(float64(report.Kept))
	// Reasons absent from this pass must read zero rather than keep a stale value.
	for _, reason := range []string{
		normalize.ReasonMissingCoordinates,
		normalize.ReasonInvalidCoordinates,
		normalize.ReasonMissingID,
		normalize.ReasonMissingName,
		normalize.ReasonUnrecognizedShape,
		normalize.ReasonDuplicateID,
		normalize.ReasonDuplicateName,
		normalize.ReasonUnserved,
	} {
		RecordsDropped.WithLabelValues(report.Source, reason).Set(float64(report.Dropped[reason]))
	}
}

func recordSourceStatus(src models.DataSource, up bool, failures int, at time.Time) {
	value := 0.0
	if up {
		value = 1
		SourceLastSuccess.WithLabelValues(src.Name).Set(float64(at.Unix()))
	}
	SourceUp.WithLabelValues(src.Name, string(src.Kind)).Set(value)
	SourceConsecutiveFailures.WithLabelValues(src.Name).Set(float64(failures))
}

func recordSnapshot(snap *registry.Snapshot) {
	counts := snap.Stops.Counts()
	RegistryStops.WithLabelValues(models.RailStation.Slug()).Set(float64(counts.Rail))
	RegistryStops.WithLabelValues(models.BusStop.Slug()).Set(float64(counts.Bus))
	LandmarksLoaded.Set(float64(len(snap.Landmarks)))
	SnapshotLoadedAt.Set(float64(snap.LoadedAt.Unix()))
}
