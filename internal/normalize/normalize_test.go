package normalize

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	remoteGtfs "github.com/jamespfennell/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"transitguide.org/internal/models"
)

func decodeRecords(t *testing.T, payload string) []RawRecord {
	t.Helper()
	var records []RawRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &records))
	return records
}

func TestRailStops(t *testing.T) {
	records := decodeRecords(t, `[
		{"stop_id": "30032", "station_descriptive_name": "Adams/Wabash (Brown, Green, Orange, Pink & Purple Lines)",
		 "location": {"latitude": "41.879507", "longitude": "-87.626037"},
		 "red": false, "blue": false, "g": true, "brn": true, "p": "true", "pexp": false, "y": false, "pnk": true, "o": true},
		{"stop_id": "30040", "station_descriptive_name": "Clark/Lake",
		 "location": {"longitude": "-87.630886"}, "blue": true},
		{"stop_id": "30999", "station_descriptive_name": "Nowhere",
		 "location": {"latitude": "41.9", "longitude": "-87.6"}},
		{"station_descriptive_name": "No Id",
		 "location": {"latitude": "41.9", "longitude": "-87.6"}}
	]`)

	stops, report, err := RailStops(records)
	require.NoError(t, err)
	require.Len(t, stops, 2)

	assert.Equal(t, "30032", stops[0].ID)
	assert.Equal(t, models.RailStation, stops[0].StopType)
	assert.Equal(t, "Green, Brown, Purple, Pink, Orange", stops[0].Routes)
	assert.InDelta(t, 41.879507, stops[0].Latitude, 1e-9)
	assert.InDelta(t, -87.626037, stops[0].Longitude, 1e-9)

	assert.Equal(t, "30999", stops[1].ID)
	assert.Equal(t, models.UnknownRoutes, stops[1].Routes)

	assert.Equal(t, 4, report.Received)
	assert.Equal(t, 2, report.Kept)
	assert.Equal(t, 1, report.Dropped[ReasonMissingCoordinates])
	assert.Equal(t, 1, report.Dropped[ReasonMissingID])
	assert.Equal(t, 2, report.DroppedTotal())
}

func TestRailStopsEmpty(t *testing.T) {
	_, _, err := RailStops(nil)
	assert.True(t, errors.Is(err, ErrDataUnavailable))

	allBad := decodeRecords(t, `[{"stop_id": "1", "station_descriptive_name": "x", "location": {"latitude": "95", "longitude": "0"}}]`)
	_, report, err := RailStops(allBad)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.Equal(t, 1, report.Dropped[ReasonInvalidCoordinates])
}

func TestBusStops(t *testing.T) {
	records := decodeRecords(t, `[
		{"systemstop": "1234", "public_nam": "Michigan & Adams", "routesstpg": "3,4,J14",
		 "the_geom": {"type": "Point", "coordinates": [-87.6243, 41.8795]}},
		{"stop_id": "5678", "public_name": "State & Madison",
		 "location": {"latitude": "41.8820", "longitude": "-87.6278"}},
		{"the_geom": {"type": "Point", "coordinates": [-87.63, 41.88]}},
		{"street": "no coordinates at all"},
		{"systemstop": "1234", "the_geom": {"coordinates": [-87.0, 41.0]}}
	]`)

	stops, report, err := BusStops(records)
	require.NoError(t, err)
	require.Len(t, stops, 3)

	assert.Equal(t, models.StopRecord{
		ID: "1234", Name: "Michigan & Adams", Latitude: 41.8795, Longitude: -87.6243,
		StopType: models.BusStop, Routes: "3,4,J14",
	}, stops[0])

	assert.Equal(t, "5678", stops[1].ID)
	assert.Equal(t, "State & Madison", stops[1].Name)
	assert.Equal(t, models.UnknownRoutes, stops[1].Routes)

	assert.Equal(t, "2", stops[2].ID)
	assert.True(t, stops[2].FallbackID)
	assert.Equal(t, "Bus Stop", stops[2].Name)

	assert.Equal(t, 1, report.Dropped[ReasonUnrecognizedShape])
	assert.Equal(t, 1, report.Dropped[ReasonDuplicateID])
	assert.Equal(t, 3, report.Kept)
}

func TestBusStopsRejectsOutOfRange(t *testing.T) {
	records := decodeRecords(t, `[{"systemstop": "1", "the_geom": {"coordinates": [-200, 41.0]}}]`)
	_, report, err := BusStops(records)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.Equal(t, 1, report.Dropped[ReasonInvalidCoordinates])
}

func TestLandmarks(t *testing.T) {
	records := decodeRecords(t, `[
		{"id": "L1", "landmark_name": "Art Institute", "address": "111 S Michigan Ave", "latitude": "41.8819", "longitude": "-87.6278"},
		{"landmark_name": "Wrigley Field", "latitude": 41.9484, "longitude": -87.6553},
		{"id": "L3", "landmark_name": "Art Institute", "latitude": "41.0", "longitude": "-87.0"},
		{"id": "L4", "address": "nameless", "latitude": "41.0", "longitude": "-87.0"},
		{"id": "L5", "landmark_name": "Floating", "latitude": "abc", "longitude": "-87.0"}
	]`)

	landmarks, report, err := Landmarks(records)
	require.NoError(t, err)
	require.Len(t, landmarks, 2)

	assert.Equal(t, "L1", landmarks[0].ID)
	assert.Equal(t, "111 S Michigan Ave", landmarks[0].Address)
	assert.Equal(t, "Wrigley Field", landmarks[1].ID)
	assert.Empty(t, landmarks[1].Address)

	assert.Equal(t, 1, report.Dropped[ReasonDuplicateName])
	assert.Equal(t, 1, report.Dropped[ReasonMissingName])
	assert.Equal(t, 1, report.Dropped[ReasonInvalidCoordinates])
}

func TestSortLandmarksByName(t *testing.T) {
	in := []models.LandmarkRecord{{Name: "Wrigley Field"}, {Name: "Art Institute"}, {Name: "Navy Pier"}}
	out := SortLandmarksByName(in)
	assert.Equal(t, []string{"Art Institute", "Navy Pier", "Wrigley Field"}, []string{out[0].Name, out[1].Name, out[2].Name})
	assert.Equal(t, "Wrigley Field", in[0].Name, "input must not be reordered")
}

func TestValueParsing(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"json number", 41.5, 41.5, true},
		{"numeric string", " -87.25 ", -87.25, true},
		{"json.Number", json.Number("12.5"), 12.5, true},
		{"garbage", "north", 0, false},
		{"nan string", "NaN", 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := floatValue(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("floatValue(%v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}

	if !flagSet("TRUE") || flagSet("yes") || flagSet(nil) || !flagSet(true) {
		t.Error("flagSet accepted or rejected the wrong values")
	}
	if id, ok := stringValue(float64(30032)); !ok || id != "30032" {
		t.Errorf("stringValue(30032.0) = %q", id)
	}
}

// buildGTFSZip writes a minimal static bundle with one subway route, one bus
// route and one stop served by both.
func buildGTFSZip(t *testing.T) []byte {
	t.Helper()
	files := map[string]string{
		"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
			"CTA,Chicago Transit Authority,https://www.transitchicago.com,America/Chicago\n",
		"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_type\n" +
			"Red,CTA,Red,Red Line,1\n" +
			"3,CTA,3,King Drive,3\n" +
			"F1,CTA,,Ferry,4\n",
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"S1,Jackson,41.878153,-87.627596\n" +
			"S2,Michigan & Jackson,41.878,-87.6244\n" +
			"S3,Unserved,41.9,-87.6\n" +
			"S4,Dock,41.89,-87.6\n",
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"WK,1,1,1,1,1,0,0,20250101,20261231\n",
		"trips.txt": "route_id,service_id,trip_id\n" +
			"Red,WK,T1\n" +
			"3,WK,T2\n" +
			"F1,WK,T3\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"T1,08:00:00,08:00:00,S1,1\n" +
			"T2,08:00:00,08:00:00,S1,1\n" +
			"T2,08:05:00,08:05:00,S2,2\n" +
			"T3,08:00:00,08:00:00,S4,1\n",
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

func TestGTFSStops(t *testing.T) {
	static, err := remoteGtfs.ParseStatic(buildGTFSZip(t), remoteGtfs.ParseStaticOptions{})
	require.NoError(t, err)

	stops, report, err := GTFSStops(static)
	require.NoError(t, err)

	byKey := make(map[string]models.StopRecord, len(stops))
	for _, s := range stops {
		byKey[s.Key()] = s
	}
	require.Len(t, byKey, 3)

	assert.Equal(t, "Red", byKey["rail:S1"].Routes)
	assert.Equal(t, "3", byKey["bus:S1"].Routes)
	assert.Equal(t, "Michigan & Jackson", byKey["bus:S2"].Name)
	assert.NotContains(t, byKey, "rail:S2")

	assert.Equal(t, 2, report.Dropped[ReasonUnserved])
}

func TestGTFSStopsNil(t *testing.T) {
	_, _, err := GTFSStops(nil)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}
