package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuotesTotal          = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_booking", Name: "quotes_total", Help: "Total fare quotes computed"})
	MatchesTotal         = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_booking", Name: "matches_total", Help: "Total successful matches"})
	EmptyMatchesTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_booking", Name: "empty_matches_total", Help: "Match requests that found no driver"})
	ScoringFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_booking", Name: "scoring_failures_total", Help: "Quality-score hook failures"})
	MatchLatency         = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "ride_booking", Name: "match_latency_seconds", Help: "Match latency seconds"})
	DriversOnline        = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "ride_booking", Name: "drivers_online", Help: "Number of online drivers"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_booking", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_booking",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
