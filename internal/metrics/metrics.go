// Package metrics holds the Prometheus collectors shared across the front-end.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hondadog_http_requests_total",
			Help: "Page and form requests served, by route pattern and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hondadog_http_request_duration_seconds",
			Help:    "Time spent serving page and form requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hondadog_backend_requests_total",
			Help: "Calls made to the reservation backend, by operation and outcome.",
		},
		[]string{"operation", "status"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hondadog_backend_request_duration_seconds",
			Help:    "Latency of calls to the reservation backend.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hondadog_cache_lookups_total",
			Help: "Location cache lookups, by result (hit, miss, error).",
		},
		[]string{"result"},
	)

	ReservationsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hondadog_reservations_created_total",
			Help: "Reservations submitted through the front-end, by mode.",
		},
		[]string{"mode"},
	)
)
