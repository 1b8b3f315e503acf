package models

// SourceKind identifies which normalizer a data source feeds.
type SourceKind string

const (
	SourceRail     SourceKind = "rail"
	SourceBus      SourceKind = "bus"
	SourceLandmark SourceKind = "landmark"
	SourceGTFS     SourceKind = "gtfs"
)

// DataSource describes one pull-based feed.
//
// Socrata feeds (rail, bus, landmark) are fetched as JSON with an optional
// $limit and app token; GTFS sources are fetched as a static zip bundle.
type DataSource struct {
	Name     string     `json:"name"`
	Kind     SourceKind `json:"kind"`
	URL      string     `json:"url"`
	Limit    int        `json:"limit,omitempty"`
	AppToken string     `json:"app_token,omitempty"`
}

func NewDataSource(name string, kind SourceKind, url string, limit int) *DataSource {
	return &DataSource{
		Name:  name,
		Kind:  kind,
		URL:   url,
		Limit: limit,
	}
}
