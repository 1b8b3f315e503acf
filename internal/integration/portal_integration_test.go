//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"transitguide.org/internal/app"
	"transitguide.org/internal/config"
	"transitguide.org/internal/registry"
	"transitguide.org/internal/source"
)

// TestLoadSources fetches every configured feed and checks it normalizes to
// at least one record.
func TestLoadSources(t *testing.T) {
	client := app.NewPooledClient()

	for _, src := range integrationSources {
		src := src
		t.Run(src.Name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			batch, err := source.Load(ctx, client, src, config.DefaultMaxRetries)
			if err != nil {
				t.Fatalf("failed to load %s: %v", src.Name, err)
			}
			if batch.Report.Kept == 0 {
				t.Fatalf("%s kept no records: %+v", src.Name, batch.Report)
			}
			t.Logf("%s: received %d, kept %d, dropped %v", src.Name, batch.Report.Received, batch.Report.Kept, batch.Report.Dropped)
		})
	}
}

// TestRefreshAndQuery runs a full refresh and resolves the nearest stop for
// the first landmark under every filter that has stops.
func TestRefreshAndQuery(t *testing.T) {
	cfg := config.NewConfig(0, "integration", integrationSources)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	application, err := app.New(cfg, logger, app.NewPooledClient(), "integration")
	if err != nil {
		t.Fatalf("failed to create application: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	snap, err := application.RefreshService.Refresh(ctx, app.TriggerStartup)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if len(snap.Warnings) > 0 {
		t.Logf("refresh warnings: %v", snap.Warnings)
	}
	if len(snap.Landmarks) == 0 {
		t.Skip("no landmarks loaded")
	}

	landmark := snap.Landmarks[0]
	for _, f := range registry.Filters {
		if snap.View(f).Len() == 0 {
			continue
		}
		res, err := snap.Finder(f).Nearest(landmark.Location())
		if err != nil {
			t.Errorf("%s: nearest stop for %q failed: %v", f, landmark.Name, err)
			continue
		}
		t.Logf("%s: %q -> %s %q (%.4f mi)", f, landmark.Name, res.Stop.StopType, res.Stop.Name, res.DistanceMiles)
	}
}
