// Package mapview turns a nearest-stop result into a GeoJSON document a map
// widget can render directly.
package mapview

import (
	"fmt"

	"transitguide.org/internal/models"
)

// DefaultZoom frames a landmark and a stop a few blocks apart.
const DefaultZoom = 15

// FeatureCollection is a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a GeoJSON Feature. Styling uses simplestyle property names.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// Geometry holds either a Point ([lon, lat]) or a LineString ([][lon, lat]).
type Geometry struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates"`
}

// View is the map composition for one query.
type View struct {
	Center     models.Point      `json:"center"`
	Zoom       int               `json:"zoom"`
	Collection FeatureCollection `json:"geojson"`
}

func lonLat(p models.Point) []float64 {
	return []float64{p.Lon, p.Lat}
}

// markerStyle returns the color and icon for a stop marker.
func markerStyle(t models.StopType) (color, symbol string) {
	if t == models.RailStation {
		return "blue", "rail"
	}
	return "green", "bus"
}

// Compose builds the map for a landmark and its nearest stop: a red star on
// the landmark, a typed marker on the stop and a dashed purple connector,
// centered on the midpoint of the two.
func Compose(landmark models.LandmarkRecord, result models.NearestStopResult) View {
	from := landmark.Location()
	stop := result.Stop
	to := stop.Location()

	landmarkPopup := landmark.Name
	if landmark.Address != "" {
		landmarkPopup = fmt.Sprintf("%s<br>%s", landmark.Name, landmark.Address)
	}
	color, symbol := markerStyle(stop.StopType)

	return View{
		Center: models.Point{Lat: (from.Lat + to.Lat) / 2, Lon: (from.Lon + to.Lon) / 2},
		Zoom:   DefaultZoom,
		Collection: FeatureCollection{
			Type: "FeatureCollection",
			Features: []Feature{
				{
					Type:     "Feature",
					Geometry: Geometry{Type: "Point", Coordinates: lonLat(from)},
					Properties: map[string]interface{}{
						"role":          "landmark",
						"name":          landmark.Name,
						"popup":         landmarkPopup,
						"marker-color":  "red",
						"marker-symbol": "star",
					},
				},
				{
					Type:     "Feature",
					Geometry: Geometry{Type: "Point", Coordinates: lonLat(to)},
					Properties: map[string]interface{}{
						"role":          "stop",
						"name":          stop.Name,
						"stop_type":     string(stop.StopType),
						"routes":        stop.Routes,
						"popup":         fmt.Sprintf("%s<br>Type: %s<br>Routes: %s", stop.Name, stop.StopType, stop.Routes),
						"marker-color":  color,
						"marker-symbol": symbol,
					},
				},
				{
					Type:     "Feature",
					Geometry: Geometry{Type: "LineString", Coordinates: [][]float64{lonLat(from), lonLat(to)}},
					Properties: map[string]interface{}{
						"role":           "connector",
						"distance_miles": result.DistanceMiles,
						"distance_km":    result.DistanceKm(),
						"stroke":         "purple",
						"stroke-width":   3,
						"stroke-opacity": 0.7,
						"dash-array":     "10",
					},
				},
			},
		},
	}
}
