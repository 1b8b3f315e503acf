package normalize

import (
	"fmt"
	"strconv"

	"transitguide.org/internal/models"
)

const defaultBusStopName = "Bus Stop"

// BusStops normalizes CTA bus stop records.
//
// Two record shapes are understood:
//   - the_geom.coordinates holding [longitude, latitude]
//   - location holding {latitude, longitude}
//
// Anything else is skipped. A record without an id gets its position in raw
// as a fallback id and is flagged with FallbackID; those ids are not stable
// across refreshes because the feed order is not guaranteed.
func BusStops(raw []RawRecord) ([]models.StopRecord, Report, error) {
	report := newReport(string(models.SourceBus), len(raw))
	if len(raw) == 0 {
		return nil, report, fmt.Errorf("bus stops: %w", ErrDataUnavailable)
	}

	stops := make([]models.StopRecord, 0, len(raw))
	for i, rec := range raw {
		var (
			point  models.Point
			reason string
			idKeys []string
			nmKeys []string
		)

		if geom, ok := objectField(rec, "the_geom"); ok && geom["coordinates"] != nil {
			point, reason = geometryPoint(geom["coordinates"])
			idKeys = []string{"systemstop"}
			nmKeys = []string{"public_nam"}
		} else if location, ok := objectField(rec, "location"); ok && hasLatLon(location) {
			point, reason = coordinates(location["latitude"], location["longitude"])
			idKeys = []string{"systemstop", "stop_id"}
			nmKeys = []string{"public_nam", "public_name"}
		} else {
			report.drop(ReasonUnrecognizedShape)
			continue
		}
		if reason != "" {
			report.drop(reason)
			continue
		}

		stop := models.StopRecord{
			Latitude:  point.Lat,
			Longitude: point.Lon,
			StopType:  models.BusStop,
			Name:      defaultBusStopName,
			Routes:    models.UnknownRoutes,
		}
		if id, ok := firstString(rec, idKeys...); ok {
			stop.ID = id
		} else {
			stop.ID = strconv.Itoa(i)
			stop.FallbackID = true
		}
		if name, ok := firstString(rec, nmKeys...); ok {
			stop.Name = name
		}
		if routes, ok := stringValue(rec["routesstpg"]); ok {
			stop.Routes = routes
		}
		stops = append(stops, stop)
	}

	stops = dedupStops(stops, &report)
	report.Kept = len(stops)
	if len(stops) == 0 {
		return nil, report, fmt.Errorf("bus stops: no usable records in %d received: %w", len(raw), ErrDataUnavailable)
	}
	return stops, report, nil
}

// geometryPoint reads a GeoJSON-style [longitude, latitude] pair.
func geometryPoint(v any) (models.Point, string) {
	pair, ok := v.([]any)
	if !ok || len(pair) < 2 {
		return models.Point{}, ReasonMissingCoordinates
	}
	return coordinates(pair[1], pair[0])
}

func hasLatLon(obj map[string]any) bool {
	_, lat := obj["latitude"]
	_, lon := obj["longitude"]
	return lat && lon
}
