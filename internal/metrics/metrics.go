// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feed
	FeedFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kioskgrid_feed_fetches_total",
			Help: "Feed fetch attempts by result",
		},
		[]string{"result"},
	)

	// Projection
	Projections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kioskgrid_projections_total",
			Help: "Number of projection passes over the grid",
		},
	)

	ProjectedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kioskgrid_projected_records_total",
			Help: "Booking records seen by the projector, by outcome",
		},
		[]string{"outcome"},
	)

	OccupiedCells = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kioskgrid_occupied_cells",
			Help: "Occupied cells after the last projection",
		},
	)

	LastRefresh = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kioskgrid_last_refresh_timestamp_seconds",
			Help: "Unix time of the last successful refresh",
		},
	)

	WindowRolls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kioskgrid_window_rolls_total",
			Help: "Number of times the day window moved to a new date",
		},
	)
)

// Fetch result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// ObserveProjection records the outcome counters of one projection pass.
func ObserveProjection(projected, unconfirmed, malformed, outOfWindow, collisions, occupied int) {
	Projections.Inc()
	ProjectedRecords.WithLabelValues("projected").Add(float64(projected))
	ProjectedRecords.WithLabelValues("unconfirmed").Add(float64(unconfirmed))
	ProjectedRecords.WithLabelValues("malformed").Add(float64(malformed))
	ProjectedRecords.WithLabelValues("out_of_window").Add(float64(outOfWindow))
	ProjectedRecords.WithLabelValues("collision").Add(float64(collisions))
	OccupiedCells.Set(float64(occupied))
}
