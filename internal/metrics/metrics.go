// Package metrics exposes Prometheus collectors for the ingest service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "places"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "provider_calls_total", Help: "Search provider calls."},
		[]string{"outcome"}, // outcome: ok|error|no_data
	)
	ProviderLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "provider_call_duration_seconds",
			Help:    "Search provider call duration seconds.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
	)
	Queries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "queries_total", Help: "Search queries by final status."},
		[]string{"status"}, // status: completed|failed
	)
	PlacesStored = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "places_stored_total", Help: "Place records committed."},
	)
	PlacesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "places_skipped_total", Help: "Place records rolled back to their savepoint."},
	)
)

// InitRegistry returns a registry with every collector of the package.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ProviderCalls, ProviderLatency, Queries, PlacesStored, PlacesSkipped)
	return reg
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveProvider(outcome string, dur time.Duration) {
	ProviderCalls.WithLabelValues(outcome).Inc()
	ProviderLatency.Observe(dur.Seconds())
}

func ObserveQuery(status string, stored, skipped int) {
	Queries.WithLabelValues(status).Inc()
	PlacesStored.Add(float64(stored))
	PlacesSkipped.Add(float64(skipped))
}
