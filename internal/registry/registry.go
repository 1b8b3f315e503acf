// Package registry holds the merged, immutable collection of transit stops
// and the snapshot that readers query between refreshes.
package registry

import (
	"fmt"
	"strings"

	"transitguide.org/internal/models"
)

// Registry is an ordered, read-only collection of stops in which no two
// records share the same (ID, StopType) pair.
type Registry struct {
	stops []models.StopRecord
}

// New builds a registry from stops in order. A record whose (ID, StopType)
// pair was already seen is skipped, so the first occurrence wins.
func New(stops []models.StopRecord) *Registry {
	seen := make(map[string]struct{}, len(stops))
	kept := make([]models.StopRecord, 0, len(stops))
	for _, stop := range stops {
		key := stop.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, stop)
	}
	return &Registry{stops: kept}
}

// Merge concatenates rail then bus stops, preserving the relative order of
// each. Ids are only unique per stop type, so no cross-source dedup happens.
func Merge(rail, bus []models.StopRecord) *Registry {
	all := make([]models.StopRecord, 0, len(rail)+len(bus))
	all = append(all, rail...)
	all = append(all, bus...)
	return New(all)
}

// Filter returns a new registry with the stops f accepts, in the same order.
// The receiver is not modified.
func (r *Registry) Filter(f TypeFilter) *Registry {
	kept := make([]models.StopRecord, 0, len(r.stops))
	for _, stop := range r.stops {
		if f.Matches(stop.StopType) {
			kept = append(kept, stop)
		}
	}
	return &Registry{stops: kept}
}

// Len returns the number of stops.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.stops)
}

// At returns the i-th stop in registry order.
func (r *Registry) At(i int) models.StopRecord {
	return r.stops[i]
}

// Stops returns a copy of the stops in registry order.
func (r *Registry) Stops() []models.StopRecord {
	if r == nil {
		return nil
	}
	return append([]models.StopRecord(nil), r.stops...)
}

// Counts holds per-type sizes for the statistics display.
type Counts struct {
	Rail  int `json:"rail_stations"`
	Bus   int `json:"bus_stops"`
	Total int `json:"total_stops"`
}

func (r *Registry) Counts() Counts {
	var c Counts
	if r == nil {
		return c
	}
	for _, stop := range r.stops {
		switch stop.StopType {
		case models.RailStation:
			c.Rail++
		case models.BusStop:
			c.Bus++
		}
	}
	c.Total = len(r.stops)
	return c
}

// Types lists the stop types present, rail first.
func (r *Registry) Types() []models.StopType {
	c := r.Counts()
	var types []models.StopType
	if c.Rail > 0 {
		types = append(types, models.RailStation)
	}
	if c.Bus > 0 {
		types = append(types, models.BusStop)
	}
	return types
}

// TypeFilter selects stops by transit mode.
type TypeFilter string

const (
	FilterAny  TypeFilter = "any"
	FilterRail TypeFilter = "rail"
	FilterBus  TypeFilter = "bus"
)

// Filters lists every filter in display order.
var Filters = []TypeFilter{FilterAny, FilterRail, FilterBus}

// Matches reports whether a stop of type t passes the filter.
func (f TypeFilter) Matches(t models.StopType) bool {
	switch f {
	case FilterRail:
		return t == models.RailStation
	case FilterBus:
		return t == models.BusStop
	}
	return true
}

// Label returns the dashboard label for the filter.
func (f TypeFilter) Label() string {
	switch f {
	case FilterRail:
		return "L Train Station Only"
	case FilterBus:
		return "Bus Stop Only"
	}
	return "Any Transit Stop"
}

// ParseTypeFilter accepts a filter slug or a dashboard label, case
// insensitively. The empty string means FilterAny.
func ParseTypeFilter(s string) (TypeFilter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return FilterAny, nil
	}
	for _, f := range Filters {
		if strings.EqualFold(s, string(f)) || strings.EqualFold(s, f.Label()) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown stop type filter %q (want any, rail or bus)", s)
}
