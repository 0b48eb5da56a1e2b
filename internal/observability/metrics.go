package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OffersEmitted  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "roadside_dispatch", Name: "offers_emitted_total", Help: "Total offers presented to the driver"})
	OffersAccepted = promauto.NewCounter(prometheus.CounterOpts{Namespace: "roadside_dispatch", Name: "offers_accepted_total", Help: "Total offers accepted"})
	OffersRejected = promauto.NewCounter(prometheus.CounterOpts{Namespace: "roadside_dispatch", Name: "offers_rejected_total", Help: "Total offers rejected"})
	OffersExpired  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "roadside_dispatch", Name: "offers_expired_total", Help: "Total offers expired without a decision"})

	RouteLookups  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "roadside_dispatch", Name: "route_lookups_total", Help: "Total successful route resolutions"})
	RouteFailures = promauto.NewCounter(prometheus.CounterOpts{Namespace: "roadside_dispatch", Name: "route_failures_total", Help: "Total failed route resolutions"})
	RouteLatency  = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "roadside_dispatch", Name: "route_latency_seconds", Help: "Route resolution latency", Buckets: prometheus.DefBuckets})

	SuggestionQueries = promauto.NewCounter(prometheus.CounterOpts{Namespace: "roadside_dispatch", Name: "suggestion_queries_total", Help: "Total geocoder suggestion queries issued"})

	EarningsCents = promauto.NewCounter(prometheus.CounterOpts{Namespace: "roadside_dispatch", Name: "earnings_cents_total", Help: "Total fare cents recorded across sessions"})
	DriverOnline  = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "roadside_dispatch", Name: "driver_online", Help: "Whether the driver session is online"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "roadside_dispatch", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "roadside_dispatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
