package source

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/dnaeon/go-vcr.v4/pkg/cassette"
	"gopkg.in/dnaeon/go-vcr.v4/pkg/recorder"
	"transitguide.org/internal/config"
	"transitguide.org/internal/models"
	"transitguide.org/internal/normalize"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecodeRecordsShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
		wantErr bool
	}{
		{"array", `[{"a": 1}, {"a": 2}]`, 2, false},
		{"data wrapper", `{"data": [{"a": 1}]}`, 1, false},
		{"results wrapper", `{"results": [{"a": 1}, {"a": 2}, {"a": 3}]}`, 3, false},
		{"empty body", "  ", 0, false},
		{"non-object entries keep their slot", `[{"a": 1}, 7, null]`, 3, false},
		{"object without array", `{"meta": {}}`, 0, true},
		{"wrapper holding an object", `{"data": {"a": 1}}`, 0, true},
		{"scalar", `"hello"`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := decodeRecords([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, records, tt.want)
		})
	}
}

func TestFeedURL(t *testing.T) {
	src := models.DataSource{Name: "bus", URL: "https://data.cityofchicago.org/resource/qs84-j7wh.json", Limit: 20000}
	got, err := feedURL(src)
	require.NoError(t, err)
	assert.Equal(t, "https://data.cityofchicago.org/resource/qs84-j7wh.json?%24limit=20000", got)

	src.URL += "?$limit=10"
	got, err = feedURL(src)
	require.NoError(t, err)
	assert.Equal(t, src.URL, got, "an explicit $limit wins")

	src.URL = "://bad"
	_, err = feedURL(src)
	assert.Error(t, err)
}

func TestFetchRecordsSendsPortalHeaders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5000", r.URL.Query().Get("$limit"))
		assert.Equal(t, "secret", r.Header.Get("X-App-Token"))
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": [{"id": 12345678901, "landmark_name": "Art Institute", "latitude": "41.8819", "longitude": "-87.6278"}]}`))
	}))
	defer ts.Close()

	src := models.DataSource{Name: "landmarks", Kind: models.SourceLandmark, URL: ts.URL, Limit: 5000, AppToken: "secret"}
	records, err := FetchRecords(context.Background(), ts.Client(), src, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)

	batch, err := Normalize(src, records)
	require.NoError(t, err)
	require.Len(t, batch.Landmarks, 1)
	assert.Equal(t, "12345678901", batch.Landmarks[0].ID, "numeric ids keep their digits")
	assert.Equal(t, "landmarks", batch.Report.Source)
}

func TestLoadRailFeedFromCassette(t *testing.T) {
	rec, err := recorder.New(filepath.Join("testdata", "vcr", "cta_rail_stations"),
		recorder.WithMode(recorder.ModeReplayOnly),
		recorder.WithMatcher(func(r *http.Request, i cassette.Request) bool {
			return r.Method == i.Method && r.URL.String() == i.URL
		}),
	)
	require.NoError(t, err)
	defer rec.Stop()

	client := &http.Client{
		Transport: rec,
		Timeout:   10 * time.Second,
	}

	src := config.DefaultSources()[0]
	batch, err := Load(context.Background(), client, src, 0)
	require.NoError(t, err)

	require.Len(t, batch.Stops, 2)
	assert.Equal(t, "30032", batch.Stops[0].ID)
	assert.Equal(t, "Green, Brown, Purple, Purple Express, Pink, Orange", batch.Stops[0].Routes)
	assert.Equal(t, "Blue, Green, Brown, Purple, Purple Express, Pink, Orange", batch.Stops[1].Routes)
	assert.Equal(t, 1, batch.Report.Dropped[normalize.ReasonMissingCoordinates])
	assert.Equal(t, "cta-rail-stations", batch.Report.Source)
}

func buildGTFSZip(t *testing.T) []byte {
	t.Helper()
	files := map[string]string{
		"agency.txt":   "agency_id,agency_name,agency_url,agency_timezone\nCTA,CTA,https://www.transitchicago.com,America/Chicago\n",
		"routes.txt":   "route_id,agency_id,route_short_name,route_long_name,route_type\nBlue,CTA,,Blue Line,1\n",
		"stops.txt":    "stop_id,stop_name,stop_lat,stop_lon\n30375,O'Hare,41.97766526,-87.90422307\n",
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\nWK,1,1,1,1,1,1,1,20250101,20261231\n",
		"trips.txt":    "route_id,service_id,trip_id\nBlue,WK,T1\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"T1,05:00:00,05:00:00,30375,1\n",
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestLoadGTFS(t *testing.T) {
	bundle := buildGTFSZip(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Write(bundle)
	}))
	defer ts.Close()

	src := models.DataSource{Name: "cta-gtfs", Kind: models.SourceGTFS, URL: ts.URL}
	batch, err := Load(context.Background(), ts.Client(), src, 0)
	require.NoError(t, err)
	require.Len(t, batch.Stops, 1)
	assert.Equal(t, models.RailStation, batch.Stops[0].StopType)
	assert.Equal(t, "Blue Line", batch.Stops[0].Routes)
	assert.Equal(t, "cta-gtfs", batch.Report.Source)
}

func TestLoadUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	_, err := Load(context.Background(), ts.Client(), models.DataSource{Name: "bus", Kind: models.SourceBus, URL: ts.URL}, 0)
	assert.True(t, errors.Is(err, normalize.ErrDataUnavailable))

	_, err = Load(context.Background(), ts.Client(), models.DataSource{Name: "gtfs", Kind: models.SourceGTFS, URL: ts.URL}, 0)
	assert.ErrorIs(t, err, normalize.ErrDataUnavailable)
}

func TestCache(t *testing.T) {
	c := NewCache()
	_, ok := c.Get("rail")
	assert.False(t, ok)

	c.Set(Batch{Source: models.DataSource{Name: "rail"}, Stops: []models.StopRecord{{ID: "1"}}})
	c.Set(Batch{Source: models.DataSource{Name: "bus"}})
	got, ok := c.Get("rail")
	require.True(t, ok)
	assert.Len(t, got.Stops, 1)
	assert.Equal(t, []string{"bus", "rail"}, c.Names())

	c.Invalidate("rail")
	_, ok = c.Get("rail")
	assert.False(t, ok)

	c.Flush()
	assert.Empty(t, c.Names())
}

// flakyFeed serves a bus feed until failing is set.
type flakyFeed struct {
	failing atomic.Bool
	hits    atomic.Int32
}

func (f *flakyFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.hits.Add(1)
	if f.failing.Load() {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Write([]byte(`[{"systemstop": "1", "public_nam": "Michigan & Adams", "the_geom": {"coordinates": [-87.6243, 41.8795]}}]`))
}

func TestLoaderCacheAndBackoff(t *testing.T) {
	feed := &flakyFeed{}
	ts := httptest.NewServer(feed)
	defer ts.Close()

	src := models.DataSource{Name: "cta-bus-stops", Kind: models.SourceBus, URL: ts.URL}
	loader := NewLoader(ts.Client(), NewCache(), config.NewBackoffStore(), 0, testLogger())
	ctx := context.Background()

	outcomes := loader.LoadAll(ctx, []models.DataSource{src}, false)
	require.Len(t, outcomes, 1)
	require.NoError(t, outcomes[0].Err)
	require.NotNil(t, outcomes[0].Batch)
	assert.Empty(t, outcomes[0].Warning())

	feed.failing.Store(true)
	outcomes = loader.LoadAll(ctx, []models.DataSource{src}, false)
	require.Error(t, outcomes[0].Err)
	require.NotNil(t, outcomes[0].Batch, "the last good batch is served while the feed fails")
	assert.True(t, outcomes[0].Stale)
	assert.Contains(t, outcomes[0].Warning(), "could not be refreshed")
	assert.Equal(t, 1, loader.Backoff.Failures(src.Name))

	hits := feed.hits.Load()
	outcomes = loader.LoadAll(ctx, []models.DataSource{src}, false)
	assert.True(t, outcomes[0].Skipped)
	assert.True(t, outcomes[0].Stale)
	assert.Equal(t, hits, feed.hits.Load(), "a source in backoff is not fetched")

	outcomes = loader.LoadAll(ctx, []models.DataSource{src}, true)
	assert.False(t, outcomes[0].Skipped, "forced refresh ignores backoff")
	assert.Nil(t, outcomes[0].Batch, "forced refresh flushes the cache")
	assert.ErrorIs(t, outcomes[0].Err, normalize.ErrDataUnavailable)
	assert.Contains(t, outcomes[0].Warning(), "is unavailable")

	feed.failing.Store(false)
	outcomes = loader.LoadAll(ctx, []models.DataSource{src}, true)
	require.NoError(t, outcomes[0].Err)
	_, backingOff := loader.Backoff.NextRetryAt(src.Name)
	assert.False(t, backingOff, "success resets the backoff")
}
