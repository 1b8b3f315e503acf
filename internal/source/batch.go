package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"transitguide.org/internal/models"
	"transitguide.org/internal/normalize"
)

// Batch is the normalized output of one source fetch.
type Batch struct {
	Source    models.DataSource
	Stops     []models.StopRecord
	Landmarks []models.LandmarkRecord
	Report    normalize.Report
	FetchedAt time.Time
}

// Normalize runs the normalizer matching src.Kind over raw Socrata records.
func Normalize(src models.DataSource, raw []normalize.RawRecord) (Batch, error) {
	batch := Batch{Source: src, FetchedAt: time.Now().UTC()}
	var err error
	switch src.Kind {
	case models.SourceRail:
		batch.Stops, batch.Report, err = normalize.RailStops(raw)
	case models.SourceBus:
		batch.Stops, batch.Report, err = normalize.BusStops(raw)
	case models.SourceLandmark:
		batch.Landmarks, batch.Report, err = normalize.Landmarks(raw)
	default:
		return batch, fmt.Errorf("source %s: kind %q is not a record feed", src.Name, src.Kind)
	}
	batch.Report.Source = src.Name
	return batch, err
}

// Load fetches and normalizes one source. A feed that cannot be reached or
// yields nothing usable is reported as normalize.ErrDataUnavailable; the
// Report is still filled in when the feed was reached.
func Load(ctx context.Context, client *http.Client, src models.DataSource, maxRetries int) (Batch, error) {
	if src.Kind == models.SourceGTFS {
		static, err := FetchGTFS(ctx, client, src, maxRetries)
		if err != nil {
			return Batch{Source: src}, fmt.Errorf("%w: %w", normalize.ErrDataUnavailable, err)
		}
		batch := Batch{Source: src, FetchedAt: time.Now().UTC()}
		batch.Stops, batch.Report, err = normalize.GTFSStops(static)
		batch.Report.Source = src.Name
		return batch, err
	}

	raw, err := FetchRecords(ctx, client, src, maxRetries)
	if err != nil {
		return Batch{Source: src}, fmt.Errorf("%w: %w", normalize.ErrDataUnavailable, err)
	}
	return Normalize(src, raw)
}
