package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "compete",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "compete",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	filterMatches = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "compete",
			Subsystem: "explore",
			Name:      "filter_matches",
			Help:      "Number of competitions matching a filter request.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	streamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "compete",
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Connected live view clients.",
		},
	)
)
