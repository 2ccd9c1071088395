// Package monitoring exposes Prometheus metrics for the generation pipeline.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ServiceName labels the metrics namespace.
const ServiceName = "modgen"

var (
	// Elevation tile metrics
	TilesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modgen_tiles_fetched_total",
			Help: "Total number of elevation tiles fetched",
		},
		[]string{"status"},
	)

	PlaceholderTilesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modgen_placeholder_tiles_total",
			Help: "Total number of zero-elevation placeholder tiles substituted for failed fetches",
		},
	)

	TileCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modgen_tile_cache_hits_total",
			Help: "Total number of elevation tile cache hits",
		},
	)

	TileCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modgen_tile_cache_misses_total",
			Help: "Total number of elevation tile cache misses",
		},
	)

	// Overpass metrics
	OverpassRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modgen_overpass_requests_total",
			Help: "Total number of Overpass API requests",
		},
		[]string{"status"},
	)

	ElementsParsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modgen_elements_parsed_total",
			Help: "Total number of geographic elements parsed from Overpass responses",
		},
	)

	// Graph build metrics
	FeaturesBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modgen_features_built_total",
			Help: "Total number of map features emitted by the graph builder",
		},
		[]string{"kind"},
	)

	RoadSegmentsBuilt = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modgen_road_segments_built_total",
			Help: "Total number of road segments emitted by the graph builder",
		},
	)

	// Pipeline metrics
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modgen_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0},
		},
		[]string{"stage"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modgen_runs_total",
			Help: "Total number of generation runs",
		},
		[]string{"status"},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modgen_errors_total",
			Help: "Total number of errors by pipeline stage",
		},
		[]string{"stage", "code"},
	)
)

// RecordTileFetch records the outcome of a single elevation tile fetch.
func RecordTileFetch(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	TilesFetchedTotal.WithLabelValues(status).Inc()
}

// RecordOverpassRequest records the outcome of an Overpass API request.
func RecordOverpassRequest(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	OverpassRequestsTotal.WithLabelValues(status).Inc()
}

// RecordStage records the duration of a completed pipeline stage.
func RecordStage(stage string, duration time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordRun records a finished generation run.
func RecordRun(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	RunsTotal.WithLabelValues(status).Inc()
}

// RecordError records an error attributed to a pipeline stage.
func RecordError(stage, code string) {
	ErrorsTotal.WithLabelValues(stage, code).Inc()
}
