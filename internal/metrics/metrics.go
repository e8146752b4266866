package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldmate_router_requests_total",
		Help: "Routed requests by chosen route.",
	}, []string{"route"})

	CoverageLevels = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldmate_router_coverage_levels_total",
		Help: "Coverage classification outcomes.",
	}, []string{"level"})

	ConfidenceScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fieldmate_router_confidence",
		Help:    "Distribution of coverage confidence scores.",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fieldmate_router_request_duration_seconds",
		Help:    "End-to-end request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	GapUpserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldmate_gaps_upserts_total",
		Help: "Gap record upserts, split by whether a new record was created.",
	}, []string{"created"})

	ResearchEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldmate_research_enqueued_total",
		Help: "Research requests published to the queue.",
	})

	ResearchSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fieldmate_research_suppressed_total",
		Help: "Research enqueues suppressed by the dedup guard.",
	})

	GapPipelineFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldmate_gap_pipeline_failures_total",
		Help: "Background gap pipeline failures by stage.",
	}, []string{"stage"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldmate_response_cache_total",
		Help: "Response cache lookups by outcome.",
	}, []string{"outcome"})
)
