package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ResponsesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_responses_recorded_total",
			Help: "Visitor responses recorded, by outcome",
		},
		[]string{"outcome"},
	)

	QuestionSetUpserts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_question_set_upserts_total",
			Help: "Question set upserts, by outcome",
		},
		[]string{"outcome"},
	)

	EnhancementFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_enhancement_fallbacks_total",
			Help: "Enhancement steps that degraded instead of failing, by lookup",
		},
		[]string{"lookup"},
	)

	EnhanceBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quiz_enhance_batch_duration_seconds",
			Help:    "Time spent enhancing one batch of responses",
			Buckets: prometheus.DefBuckets,
		},
	)

	QuestionSetCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_question_set_cache_lookups_total",
			Help: "Question set cache lookups, by result",
		},
		[]string{"result"},
	)
)
