package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infra_agent_messages_total",
			Help: "Total chat messages processed, by classified intent",
		},
		[]string{"intent"},
	)

	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "infra_agent_pipeline_duration_seconds",
			Help:    "End-to-end message processing duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"intent"},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "infra_agent_confidence_score",
			Help:    "Response confidence scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "infra_agent_active_sessions",
			Help: "Sessions currently held in memory",
		},
	)

	InterviewsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infra_agent_interviews_started_total",
			Help: "Requirements interviews started, by infrastructure pattern",
		},
		[]string{"pattern"},
	)

	InterviewsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "infra_agent_interviews_completed_total",
			Help: "Requirements interviews run to completion",
		},
	)

	PluginSelections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infra_agent_plugin_selections_total",
			Help: "Times a plugin was selected as primary contributor",
		},
		[]string{"plugin"},
	)

	KnowledgeMatches = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "infra_agent_knowledge_matches_count",
			Help:    "Knowledge patterns matched per query",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infra_agent_cache_hits_total",
			Help: "Total reply cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infra_agent_cache_misses_total",
			Help: "Total reply cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(MessagesTotal)
	prometheus.MustRegister(PipelineDuration)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(InterviewsStarted)
	prometheus.MustRegister(InterviewsCompleted)
	prometheus.MustRegister(PluginSelections)
	prometheus.MustRegister(KnowledgeMatches)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
