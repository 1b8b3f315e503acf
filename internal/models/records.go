package models

import "fmt"

// KmPerMile is the conversion factor used for every km figure we report.
const KmPerMile = 1.60934

// UnknownRoutes is the route label used when a source does not say which routes serve a stop.
const UnknownRoutes = "Unknown"

// StopType tags a stop with the transit mode it belongs to.
type StopType string

const (
	RailStation StopType = "L Train Station"
	BusStop     StopType = "Bus Stop"
)

// Slug returns the short lowercase name used in URLs, metric labels and stop keys.
func (t StopType) Slug() string {
	switch t {
	case RailStation:
		return "rail"
	case BusStop:
		return "bus"
	}
	return "unknown"
}

// Point is a WGS84 latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LandmarkRecord is a normalized city landmark.
// Name is the selection key shown to users and is unique within a snapshot.
type LandmarkRecord struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (l LandmarkRecord) Location() Point {
	return Point{Lat: l.Latitude, Lon: l.Longitude}
}

// StopRecord is a normalized rail station or bus stop.
//
// ID is only unique within a StopType. FallbackID is set when the source had no
// id and a positional one was assigned; such ids are not stable across refreshes.
type StopRecord struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	StopType   StopType `json:"stop_type"`
	Routes     string   `json:"routes"`
	FallbackID bool     `json:"fallback_id,omitempty"`
}

func (s StopRecord) Location() Point {
	return Point{Lat: s.Latitude, Lon: s.Longitude}
}

// Key returns the registry-wide identity of the stop, e.g. "rail:40380".
func (s StopRecord) Key() string {
	return fmt.Sprintf("%s:%s", s.StopType.Slug(), s.ID)
}

// NearestStopResult is the answer to a nearest-stop query.
type NearestStopResult struct {
	Stop          StopRecord `json:"stop"`
	DistanceMiles float64    `json:"distance_miles"`
}

// DistanceKm derives the kilometre distance from DistanceMiles.
func (r NearestStopResult) DistanceKm() float64 {
	return r.DistanceMiles * KmPerMile
}
