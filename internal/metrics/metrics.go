// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StatsBuildDuration observes one uncached stats build, fetch included.
	StatsBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "usagestats_build_duration_seconds",
			Help:    "Duration of usage statistics builds",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"kind"},
	)

	StatsEventsFolded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usagestats_events_folded_total",
			Help: "Events folded into usage statistics",
		},
		[]string{"kind"},
	)

	// StatsEventsSkipped counts events filtered before accumulation.
	// reason is one of no_user, excluded, out_of_scope.
	StatsEventsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usagestats_events_skipped_total",
			Help: "Events filtered out before accumulation",
		},
		[]string{"kind", "reason"},
	)

	StatsResourcesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usagestats_resources_untitled_total",
			Help: "Resources dropped from output because no title resolved",
		},
		[]string{"kind"},
	)

	StatsScopeCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usagestats_scope_cache_hits_total",
			Help: "Stats requests served from a builder's per-scope cache",
		},
		[]string{"kind"},
	)

	TitleCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "title_cache_hits_total",
			Help: "Resource title lookups served from Redis",
		},
	)

	TitleCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "title_cache_misses_total",
			Help: "Resource title lookups that went to Postgres",
		},
	)

	ExportJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_jobs_total",
			Help: "Usage export jobs by outcome",
		},
		[]string{"status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "route"},
	)
)
