package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Lifecycle metrics
	QuestionGenerations prometheus.Counter
	AnswerSubmissions   *prometheus.CounterVec // outcome: "correct" or "incorrect"
	CacheFills          *prometheus.CounterVec // kind: "context" or "explanation"

	// Language model metrics
	LLMRequestLatency prometheus.Histogram
	LLMErrors         *prometheus.CounterVec // operation: generate/validate/context/explanation

	// Migration metrics
	LegacyMigrations prometheus.Counter
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		QuestionGenerations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taalcoach_question_generations_total",
			Help: "Total number of questions generated",
		}),

		AnswerSubmissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taalcoach_answer_submissions_total",
			Help: "Total number of accepted answer submissions by outcome",
		}, []string{"outcome"}),

		CacheFills: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taalcoach_cache_fills_total",
			Help: "Total number of generate-once cache fills by kind",
		}, []string{"kind"}),

		LLMRequestLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "taalcoach_llm_request_duration_seconds",
			Help:    "Language model request latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // up to 2 minutes for slow completions
		}),

		LLMErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taalcoach_llm_errors_total",
			Help: "Total number of language model errors by operation",
		}, []string{"operation"}),

		LegacyMigrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taalcoach_legacy_migrations_total",
			Help: "Total number of documents upgraded from the legacy question shape",
		}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance, nil when metrics were
// never initialized (tests).
func GetMetrics() *Metrics {
	return globalMetrics
}
