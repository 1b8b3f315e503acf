package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"transitguide.org/internal/geo"
	"transitguide.org/internal/mapview"
	"transitguide.org/internal/models"
	"transitguide.org/internal/registry"
	"transitguide.org/internal/report"
	"transitguide.org/internal/resolver"
	"transitguide.org/internal/utils"
)

// HealthStatus is the body of /v1/healthcheck. Ready is true once a snapshot
// has been loaded.
type HealthStatus struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
	Sources     int    `json:"sources"`
	Ready       bool   `json:"ready"`
	SnapshotID  string `json:"snapshot_id,omitempty"`
}

func (app *Application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:      "available",
		Environment: app.ConfigService.Config.Env,
		Version:     app.Version,
		Sources:     len(app.ConfigService.Config.GetSources()),
	}
	code := http.StatusOK
	if snap, err := app.Store.Current(); err == nil {
		status.Ready = true
		status.SnapshotID = snap.ID
	} else {
		code = http.StatusServiceUnavailable
	}
	app.writeJSON(w, code, status)
}

// currentSnapshot writes a 503 and returns nil before the first load.
func (app *Application) currentSnapshot(w http.ResponseWriter, r *http.Request) *registry.Snapshot {
	snap, err := app.Store.Current()
	if err != nil {
		app.errorResponse(w, r, http.StatusServiceUnavailable, "data not loaded yet", nil)
		return nil
	}
	return snap
}

func (app *Application) landmarksHandler(w http.ResponseWriter, r *http.Request) {
	snap := app.currentSnapshot(w, r)
	if snap == nil {
		return
	}
	landmarks := snap.Landmarks
	if landmarks == nil {
		landmarks = []models.LandmarkRecord{}
	}
	app.writeJSON(w, http.StatusOK, envelope{"count": len(landmarks), "landmarks": landmarks})
}

type filterOption struct {
	Value registry.TypeFilter `json:"value"`
	Label string              `json:"label"`
}

// Stats is the body of /v1/stats.
type Stats struct {
	registry.Counts
	Landmarks   int               `json:"landmarks"`
	StopTypes   []models.StopType `json:"stop_types"`
	Filters     []filterOption    `json:"filters"`
	Warnings    []string          `json:"warnings"`
	BoundingBox *geo.BoundingBox  `json:"bounding_box,omitempty"`
	LoadedAt    time.Time         `json:"loaded_at"`
	SnapshotID  string            `json:"snapshot_id"`
}

func newStats(snap *registry.Snapshot) Stats {
	stats := Stats{
		Counts:      snap.Stops.Counts(),
		Landmarks:   len(snap.Landmarks),
		StopTypes:   snap.Stops.Types(),
		Warnings:    snap.Warnings,
		BoundingBox: snap.BoundingBox,
		LoadedAt:    snap.LoadedAt,
		SnapshotID:  snap.ID,
	}
	if stats.StopTypes == nil {
		stats.StopTypes = []models.StopType{}
	}
	if stats.Warnings == nil {
		stats.Warnings = []string{}
	}
	for _, f := range registry.Filters {
		stats.Filters = append(stats.Filters, filterOption{Value: f, Label: f.Label()})
	}
	return stats
}

func (app *Application) statsHandler(w http.ResponseWriter, r *http.Request) {
	snap := app.currentSnapshot(w, r)
	if snap == nil {
		return
	}
	app.writeJSON(w, http.StatusOK, newStats(snap))
}

// NearestResponse is the body of /v1/nearest.
type NearestResponse struct {
	Landmark      models.LandmarkRecord `json:"landmark"`
	Filter        registry.TypeFilter   `json:"filter"`
	FilterLabel   string                `json:"filter_label"`
	Stop          models.StopRecord     `json:"stop"`
	DistanceMiles float64               `json:"distance_miles"`
	DistanceKm    float64               `json:"distance_km"`
	Warnings      []string              `json:"warnings,omitempty"`
}

// nearestQuery holds a resolved nearest-stop request.
type nearestQuery struct {
	snap     *registry.Snapshot
	landmark models.LandmarkRecord
	filter   registry.TypeFilter
	result   models.NearestStopResult
}

// resolveNearest parses landmark and type from the query string and runs the
// finder. It writes the error response itself and returns false on failure.
func (app *Application) resolveNearest(w http.ResponseWriter, r *http.Request) (nearestQuery, bool) {
	var q nearestQuery
	params := r.URL.Query()

	filter, err := registry.ParseTypeFilter(params.Get("type"))
	if err != nil {
		app.errorResponse(w, r, http.StatusBadRequest, err.Error(), envelope{"filters": registry.Filters})
		return q, false
	}
	q.filter = filter

	name, id := params.Get("landmark"), params.Get("landmark_id")
	if name == "" && id == "" {
		app.errorResponse(w, r, http.StatusBadRequest, "landmark or landmark_id is required", nil)
		return q, false
	}

	q.snap = app.currentSnapshot(w, r)
	if q.snap == nil {
		return q, false
	}

	var found bool
	if id != "" {
		q.landmark, found = q.snap.LandmarkByID(id)
	} else {
		q.landmark, found = q.snap.LandmarkByName(name)
	}
	if !found {
		app.errorResponse(w, r, http.StatusNotFound, "landmark not found", nil)
		return q, false
	}

	q.result, err = q.snap.Finder(filter).Nearest(q.landmark.Location())
	switch {
	case err == nil:
		app.MetricsService.RecordNearest(filter, "found", q.result.DistanceMiles)
		return q, true
	case errors.Is(err, resolver.ErrNoStopsAvailable):
		app.MetricsService.RecordNearest(filter, "no_stops", 0)
		available := q.snap.Stops.Types()
		if available == nil {
			available = []models.StopType{}
		}
		msg := fmt.Sprintf("no stops match %q; broaden the filter", filter.Label())
		app.errorResponse(w, r, http.StatusNotFound, msg, envelope{"available_stop_types": available})
		return q, false
	default:
		app.MetricsService.RecordNearest(filter, "error", 0)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags: utils.MakeMap("filter", string(filter)),
			ExtraContext: map[string]interface{}{
				"landmark_id":   q.landmark.ID,
				"landmark_name": q.landmark.Name,
				"latitude":      q.landmark.Latitude,
				"longitude":     q.landmark.Longitude,
				"snapshot_id":   q.snap.ID,
			},
			Level: sentry.LevelError,
		})
		app.Logger.Error("Nearest stop lookup failed", "landmark", q.landmark.Name, "filter", filter, "error", err)
		app.errorResponse(w, r, http.StatusInternalServerError, "the server encountered a problem and could not process your request", nil)
		return q, false
	}
}

func (app *Application) nearestHandler(w http.ResponseWriter, r *http.Request) {
	q, ok := app.resolveNearest(w, r)
	if !ok {
		return
	}
	app.writeJSON(w, http.StatusOK, NearestResponse{
		Landmark:      q.landmark,
		Filter:        q.filter,
		FilterLabel:   q.filter.Label(),
		Stop:          q.result.Stop,
		DistanceMiles: q.result.DistanceMiles,
		DistanceKm:    q.result.DistanceKm(),
		Warnings:      q.snap.Warnings,
	})
}

func (app *Application) mapHandler(w http.ResponseWriter, r *http.Request) {
	q, ok := app.resolveNearest(w, r)
	if !ok {
		return
	}
	app.writeJSON(w, http.StatusOK, mapview.Compose(q.landmark, q.result))
}

func (app *Application) refreshHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := app.RefreshService.Refresh(r.Context(), TriggerManual)
	if err != nil {
		app.errorResponse(w, r, http.StatusBadGateway, "refresh failed; previous data is still served", nil)
		return
	}
	app.writeJSON(w, http.StatusOK, newStats(snap))
}
