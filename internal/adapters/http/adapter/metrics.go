package adapter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts requests by route, method, status and the last stage reached
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgeapi",
			Subsystem: "adapter",
			Name:      "requests_total",
			Help:      "Total number of requests handled by the adapter",
		},
		[]string{"route", "method", "status", "stage"},
	)

	// requestDuration measures time from Received to Sent
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "edgeapi",
			Subsystem: "adapter",
			Name:      "request_duration_seconds",
			Help:      "Adapter request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"route", "method"},
	)

	requestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "edgeapi",
			Subsystem: "adapter",
			Name:      "requests_in_flight",
			Help:      "Number of requests currently inside the adapter pipeline",
		},
	)

	// requestBodyBytes measures accepted request bodies
	requestBodyBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "edgeapi",
			Subsystem: "adapter",
			Name:      "request_body_bytes",
			Help:      "Size of accepted request bodies in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10), // 64B to 16MB
		},
		[]string{"route"},
	)

	// handlerPanicsTotal counts panics recovered from handlers
	handlerPanicsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgeapi",
			Subsystem: "adapter",
			Name:      "handler_panics_total",
			Help:      "Total number of panics recovered from handlers",
		},
		[]string{"route"},
	)
)

func observeRequest(route, method, status string, stage Stage, duration time.Duration) {
	requestsTotal.WithLabelValues(route, method, status, stage.String()).Inc()
	requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}
