package normalize

import (
	"fmt"
	"strings"

	"transitguide.org/internal/models"
)

// railLines lists the "L" line flags in the order they are reported.
var railLines = []struct {
	field string
	label string
}{
	{"red", "Red"},
	{"blue", "Blue"},
	{"g", "Green"},
	{"brn", "Brown"},
	{"p", "Purple"},
	{"pexp", "Purple Express"},
	{"y", "Yellow"},
	{"pnk", "Pink"},
	{"o", "Orange"},
}

// RailStops normalizes CTA "L" stop records.
//
// Each record needs stop_id, station_descriptive_name and a location object
// holding latitude and longitude. Line flags are folded into Routes, e.g.
// "Brown, Green", or "Unknown" when no flag is set.
func RailStops(raw []RawRecord) ([]models.StopRecord, Report, error) {
	report := newReport(string(models.SourceRail), len(raw))
	if len(raw) == 0 {
		return nil, report, fmt.Errorf("rail stops: %w", ErrDataUnavailable)
	}

	stops := make([]models.StopRecord, 0, len(raw))
	for _, rec := range raw {
		id, ok := stringValue(rec["stop_id"])
		if !ok {
			report.drop(ReasonMissingID)
			continue
		}
		name, ok := stringValue(rec["station_descriptive_name"])
		if !ok {
			report.drop(ReasonMissingName)
			continue
		}
		location, ok := objectField(rec, "location")
		if !ok {
			report.drop(ReasonMissingCoordinates)
			continue
		}
		point, reason := coordinates(location["latitude"], location["longitude"])
		if reason != "" {
			report.drop(reason)
			continue
		}

		stops = append(stops, models.StopRecord{
			ID:        id,
			Name:      name,
			Latitude:  point.Lat,
			Longitude: point.Lon,
			StopType:  models.RailStation,
			Routes:    railRoutes(rec),
		})
	}

	stops = dedupStops(stops, &report)
	report.Kept = len(stops)
	if len(stops) == 0 {
		return nil, report, fmt.Errorf("rail stops: no usable records in %d received: %w", len(raw), ErrDataUnavailable)
	}
	return stops, report, nil
}

func railRoutes(rec RawRecord) string {
	var lines []string
	for _, line := range railLines {
		if flagSet(rec[line.field]) {
			lines = append(lines, line.label)
		}
	}
	if len(lines) == 0 {
		return models.UnknownRoutes
	}
	return strings.Join(lines, ", ")
}
