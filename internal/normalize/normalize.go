// Package normalize turns loosely-typed records from the city data portal
// (and GTFS feeds) into validated landmark and stop records.
//
// Malformed records are never an error: they are dropped and counted in a
// Report. Only an empty batch is signalled, with ErrDataUnavailable.
package normalize

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"transitguide.org/internal/geo"
	"transitguide.org/internal/models"
)

// ErrDataUnavailable means a source produced no usable records, either because
// the feed was empty or unreachable or because every record was malformed.
// It is recoverable: callers carry on with the other sources.
var ErrDataUnavailable = errors.New("data unavailable")

// RawRecord is one record as decoded from a JSON feed.
type RawRecord map[string]any

// Drop reasons reported in Report.Dropped.
const (
	ReasonMissingCoordinates = "missing_coordinates"
	ReasonInvalidCoordinates = "invalid_coordinates"
	ReasonMissingID          = "missing_id"
	ReasonMissingName        = "missing_name"
	ReasonUnrecognizedShape  = "unrecognized_shape"
	ReasonDuplicateID        = "duplicate_id"
	ReasonDuplicateName      = "duplicate_name"
	ReasonUnserved           = "unserved"
)

// Report summarizes one normalization pass.
type Report struct {
	Source   string         `json:"source"`
	Received int            `json:"received"`
	Kept     int            `json:"kept"`
	Dropped  map[string]int `json:"dropped,omitempty"`
}

func newReport(source string, received int) Report {
	return Report{Source: source, Received: received, Dropped: make(map[string]int)}
}

func (r *Report) drop(reason string) {
	if r.Dropped == nil {
		r.Dropped = make(map[string]int)
	}
	r.Dropped[reason]++
}

// DroppedTotal returns the number of records dropped for any reason.
func (r Report) DroppedTotal() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}

// LogValue implements slog.LogValuer so a report can be logged as one attribute.
func (r Report) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("source", r.Source),
		slog.Int("received", r.Received),
		slog.Int("kept", r.Kept),
		slog.Int("dropped", r.DroppedTotal()),
	}
	reasons := make([]string, 0, len(r.Dropped))
	for reason := range r.Dropped {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		attrs = append(attrs, slog.Int("dropped_"+reason, r.Dropped[reason]))
	}
	return slog.GroupValue(attrs...)
}

// floatValue parses a coordinate-like value. Socrata serializes numbers as
// strings, so numeric strings are accepted alongside JSON numbers.
func floatValue(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// stringValue returns a trimmed, non-empty string for v. Numeric ids are
// formatted without exponent or trailing zeros.
func stringValue(v any) (string, bool) {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case json.Number:
		s = x.String()
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// firstString returns the first non-empty string among the given keys.
func firstString(rec map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := stringValue(rec[k]); ok {
			return s, true
		}
	}
	return "", false
}

// flagSet reports whether a boolean line flag is set. Only JSON true and the
// string "true" count; anything else, including absence, is false.
func flagSet(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return strings.EqualFold(strings.TrimSpace(x), "true")
	}
	return false
}

// coordinates parses a latitude/longitude pair and returns the drop reason
// when the pair is unusable.
func coordinates(latRaw, lonRaw any) (models.Point, string) {
	if latRaw == nil || lonRaw == nil {
		return models.Point{}, ReasonMissingCoordinates
	}
	lat, okLat := floatValue(latRaw)
	lon, okLon := floatValue(lonRaw)
	if !okLat || !okLon || !geo.IsValidLatLon(lat, lon) {
		return models.Point{}, ReasonInvalidCoordinates
	}
	return models.Point{Lat: lat, Lon: lon}, ""
}

// objectField returns rec[key] when it is a JSON object.
func objectField(rec map[string]any, key string) (map[string]any, bool) {
	switch obj := rec[key].(type) {
	case map[string]any:
		return obj, true
	case RawRecord:
		return obj, true
	}
	return nil, false
}

// dedupStops keeps the first stop for every id.
func dedupStops(stops []models.StopRecord, report *Report) []models.StopRecord {
	seen := make(map[string]struct{}, len(stops))
	out := make([]models.StopRecord, 0, len(stops))
	for _, stop := range stops {
		key := stop.Key()
		if _, dup := seen[key]; dup {
			report.drop(ReasonDuplicateID)
			continue
		}
		seen[key] = struct{}{}
		out = append(out, stop)
	}
	return out
}
