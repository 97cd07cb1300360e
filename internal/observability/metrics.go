package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	requestsTotal        *prometheus.CounterVec
	latencySeconds       *prometheus.HistogramVec
	liveConnectionsTotal prometheus.Counter
	liveEventsTotal      *prometheus.CounterVec
	judgeRequestsTotal   *prometheus.CounterVec
	cacheHitsTotal       prometheus.Counter
	cacheMissesTotal     prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "live_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "live_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		liveConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "live_ws_connections_total",
			Help: "Total number of websocket connections accepted.",
		})

		liveEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "live_ws_events_total",
			Help: "Total number of websocket events processed, by kind.",
		}, []string{"kind"})

		judgeRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "judge_requests_total",
			Help: "Total number of judge service calls, by outcome.",
		}, []string{"outcome"})

		cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits.",
		})

		cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses, including degraded reads.",
		})

		prometheus.MustRegister(
			requestsTotal,
			latencySeconds,
			liveConnectionsTotal,
			liveEventsTotal,
			judgeRequestsTotal,
			cacheHitsTotal,
			cacheMissesTotal,
		)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// LiveConnections exposes the counter for accepted websocket connections.
func LiveConnections() prometheus.Counter {
	RegisterMetrics()
	return liveConnectionsTotal
}

// LiveEvents exposes the per-kind counter for processed websocket events.
func LiveEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return liveEventsTotal
}

// JudgeRequests exposes the per-outcome counter for judge calls.
func JudgeRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return judgeRequestsTotal
}

// CacheHits exposes the cache hit counter.
func CacheHits() prometheus.Counter {
	RegisterMetrics()
	return cacheHitsTotal
}

// CacheMisses exposes the cache miss counter.
func CacheMisses() prometheus.Counter {
	RegisterMetrics()
	return cacheMissesTotal
}
