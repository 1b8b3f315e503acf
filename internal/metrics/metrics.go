package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SourceUp Data source status (up/down) as of the last refresh
	SourceUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "transitguide_source_up",
			Help: "Status of a data source at the last refresh (0 = unavailable, 1 = usable records received)",
		},
		[]string{"source", "kind"},
	)

	SourceLastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "transitguide_source_last_success_timestamp_seconds",
		Help: "Unix time of the last refresh in which the source produced usable records",
	}, []string{"source"})

	SourceConsecutiveFailures = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "transitguide_source_consecutive_failures",
		Help: "Number of consecutive refreshes in which the source was unavailable",
	}, []string{"source"})
)

var (
	RecordsReceived = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "transitguide_records_received",
		Help: "Number of raw records received from the source in the last normalization pass",
	}, []string{"source"})

	RecordsKept = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "transitguide_records_kept",
		Help: "Number of records that survived normalization in the last pass",
	}, []string{"source"})

	RecordsDropped = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "transitguide_records_dropped",
		Help: "Number of malformed or duplicate records dropped in the last pass, by reason",
	}, []string{"source", "reason"})
)

var (
	RegistryStops = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "transitguide_registry_stops",
		Help: "Number of stops in the current registry snapshot, by stop type",
	}, []string{"stop_type"})

	LandmarksLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transitguide_landmarks_loaded",
		Help: "Number of landmarks in the current snapshot",
	})

	SnapshotLoadedAt = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transitguide_snapshot_loaded_timestamp_seconds",
		Help: "Unix time at which the current snapshot was built",
	})

	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transitguide_refresh_total",
		Help: "Number of data refreshes, by trigger and result",
	}, []string{"trigger", "result"})

	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transitguide_refresh_duration_seconds",
		Help:    "Wall time of a whole-batch data refresh",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})
)

var (
	NearestQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transitguide_nearest_queries_total",
		Help: "Number of nearest-stop queries, by filter and outcome",
	}, []string{"filter", "outcome"})

	NearestDistance = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "transitguide_nearest_distance_miles",
		Help:    "Distance in miles from the landmark to the nearest stop found",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"filter"})
)

var (
	// OutgoingLatency latency of requests to the data portal and GTFS hosts
	OutgoingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "transitguide_outgoing_request_duration_seconds",
		Help:    "Latency of outgoing HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"url", "method", "status"})
)
