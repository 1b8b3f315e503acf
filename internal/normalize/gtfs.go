package normalize

import (
	"fmt"
	"sort"
	"strings"

	remoteGtfs "github.com/jamespfennell/gtfs"
	"transitguide.org/internal/models"
)

// stopTypeForRoute maps a GTFS route_type onto the two stop types the guide
// knows about. Ferries, cable cars and the like are not represented.
func stopTypeForRoute(routeType remoteGtfs.RouteType) (models.StopType, bool) {
	switch routeType {
	case 0, 1, 2, 12: // tram, subway, rail, monorail
		return models.RailStation, true
	case 3, 11: // bus, trolleybus
		return models.BusStop, true
	}
	return "", false
}

// GTFSStops derives stop records from a parsed GTFS static bundle.
//
// A stop is emitted once per stop type that serves it, so a stop visited by
// both a subway and a bus route yields a rail record and a bus record with the
// same id. Routes lists the served routes' short names in sorted order. Stops
// no supported route visits are dropped as unserved.
func GTFSStops(static *remoteGtfs.Static) ([]models.StopRecord, Report, error) {
	if static == nil {
		return nil, newReport(string(models.SourceGTFS), 0), fmt.Errorf("gtfs stops: %w", ErrDataUnavailable)
	}
	report := newReport(string(models.SourceGTFS), len(static.Stops))
	if len(static.Stops) == 0 {
		return nil, report, fmt.Errorf("gtfs stops: %w", ErrDataUnavailable)
	}

	// stop id -> stop type -> set of route labels
	served := make(map[string]map[models.StopType]map[string]struct{})
	for i := range static.Trips {
		trip := &static.Trips[i]
		if trip.Route == nil {
			continue
		}
		stopType, ok := stopTypeForRoute(trip.Route.Type)
		if !ok {
			continue
		}
		label := routeLabel(trip.Route)
		for _, st := range trip.StopTimes {
			if st.Stop == nil {
				continue
			}
			byType, ok := served[st.Stop.Id]
			if !ok {
				byType = make(map[models.StopType]map[string]struct{})
				served[st.Stop.Id] = byType
			}
			labels, ok := byType[stopType]
			if !ok {
				labels = make(map[string]struct{})
				byType[stopType] = labels
			}
			labels[label] = struct{}{}
		}
	}

	stops := make([]models.StopRecord, 0, len(static.Stops))
	for _, stop := range static.Stops {
		id := strings.TrimSpace(stop.Id)
		if id == "" {
			report.drop(ReasonMissingID)
			continue
		}
		if stop.Latitude == nil || stop.Longitude == nil {
			report.drop(ReasonMissingCoordinates)
			continue
		}
		point, reason := coordinates(*stop.Latitude, *stop.Longitude)
		if reason != "" {
			report.drop(reason)
			continue
		}
		byType, ok := served[stop.Id]
		if !ok {
			report.drop(ReasonUnserved)
			continue
		}
		name := strings.TrimSpace(stop.Name)
		if name == "" {
			name = id
		}
		for _, stopType := range []models.StopType{models.RailStation, models.BusStop} {
			labels, ok := byType[stopType]
			if !ok {
				continue
			}
			stops = append(stops, models.StopRecord{
				ID:        id,
				Name:      name,
				Latitude:  point.Lat,
				Longitude: point.Lon,
				StopType:  stopType,
				Routes:    joinLabels(labels),
			})
		}
	}

	stops = dedupStops(stops, &report)
	report.Kept = len(stops)
	if len(stops) == 0 {
		return nil, report, fmt.Errorf("gtfs stops: no served stops in %d received: %w", len(static.Stops), ErrDataUnavailable)
	}
	return stops, report, nil
}

func routeLabel(route *remoteGtfs.Route) string {
	if s := strings.TrimSpace(route.ShortName); s != "" {
		return s
	}
	if s := strings.TrimSpace(route.LongName); s != "" {
		return s
	}
	return route.Id
}

func joinLabels(labels map[string]struct{}) string {
	if len(labels) == 0 {
		return models.UnknownRoutes
	}
	out := make([]string, 0, len(labels))
	for label := range labels {
		out = append(out, label)
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}
