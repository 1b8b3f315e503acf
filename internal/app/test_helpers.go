package app

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"transitguide.org/internal/config"
	"transitguide.org/internal/models"
	"transitguide.org/internal/normalize"
	"transitguide.org/internal/registry"
	"transitguide.org/internal/resolver"
)

// Art Institute scenario: the bus stop is 0.1734 mi away, the rail station 0.4624 mi.
var (
	artInstitute = models.LandmarkRecord{ID: "art-institute", Name: "Art Institute of Chicago", Address: "111 S Michigan Ave", Latitude: 41.8819, Longitude: -87.6278}
	wrigley      = models.LandmarkRecord{ID: "wrigley", Name: "Wrigley Field", Latitude: 41.9484, Longitude: -87.6553}

	adamsWabash    = models.StopRecord{ID: "40680", Name: "Adams/Wabash", Latitude: 41.8757, Longitude: -87.6244, StopType: models.RailStation, Routes: "Brown, Green"}
	michiganMonroe = models.StopRecord{ID: "1520", Name: "Michigan & Monroe", Latitude: 41.8800, Longitude: -87.6300, StopType: models.BusStop, Routes: "3"}
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestApplication returns an application wired to client with no snapshot loaded.
func newTestApplication(t *testing.T, client *http.Client, sources []models.DataSource) *Application {
	t.Helper()

	cfg := config.NewConfig(4000, "testing", sources)
	cfg.MaxRetries = 0
	if client == nil {
		client = http.DefaultClient
	}

	app, err := New(cfg, newTestLogger(), client, "test-version")
	if err != nil {
		t.Fatalf("failed to create application: %v", err)
	}
	return app
}

// loadSnapshot swaps a snapshot built from the given records into the app's store.
func loadSnapshot(t *testing.T, app *Application, landmarks []models.LandmarkRecord, stops []models.StopRecord, warnings ...string) *registry.Snapshot {
	t.Helper()

	snap := registry.NewSnapshot(normalize.SortLandmarksByName(landmarks), registry.New(stops), warnings, nil, resolver.Builder(resolver.ModeScan))
	app.Store.Swap(snap)
	return snap
}
