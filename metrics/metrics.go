package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Fitbit Web API
	FitbitRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitdash_fitbit_requests_total",
			Help: "Total number of Fitbit Web API requests",
		},
		[]string{"endpoint", "status"},
	)

	FitbitRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fitdash_fitbit_request_duration_seconds",
			Help:    "Duration of Fitbit Web API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	FitbitRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitdash_fitbit_rate_limited_total",
			Help: "Total number of Fitbit responses with status 429",
		},
	)

	AuthFlows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitdash_auth_flows_total",
			Help: "Total number of OAuth authorization flows by outcome",
		},
		[]string{"outcome"},
	)

	// Fetch cache
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitdash_cache_hits_total",
			Help: "Total number of fetch cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitdash_cache_misses_total",
			Help: "Total number of fetch cache misses",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fitdash_cache_entries",
			Help: "Current number of cached Fitbit responses",
		},
	)

	// Sessions
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fitdash_sessions_active",
			Help: "Current number of browser sessions",
		},
	)

	// HTTP
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitdash_http_requests_total",
			Help: "Total number of dashboard HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fitdash_http_request_duration_seconds",
			Help:    "Duration of dashboard HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	SectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitdash_section_errors_total",
			Help: "Total number of dashboard sections rendered with an error",
		},
		[]string{"section"},
	)
)

func RecordFitbitRequest(endpoint string, status int, duration time.Duration) {
	FitbitRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	FitbitRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	if status == 429 {
		FitbitRateLimited.Inc()
	}
}

func RecordAuthFlow(err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	AuthFlows.WithLabelValues(outcome).Inc()
}

func RecordCacheLookup(hit bool) {
	if hit {
		CacheHits.Inc()
		return
	}
	CacheMisses.Inc()
}

func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordSectionError(section string) {
	SectionErrors.WithLabelValues(section).Inc()
}
