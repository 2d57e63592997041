package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	samplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skill_aligner_eval_samples_total",
			Help: "Evaluation samples processed, by status",
		},
		[]string{"status"},
	)

	coursesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skill_aligner_eval_courses_total",
			Help: "Courses compared, by verdict source",
		},
		[]string{"source"},
	)

	agreementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skill_aligner_eval_agreement_total",
			Help: "Compared courses by agreement type",
		},
		[]string{"agreement_type"},
	)

	judgeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skill_aligner_eval_judge_duration_seconds",
			Help:    "Judge call duration in seconds, including retries",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	judgeRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skill_aligner_eval_judge_retries_total",
			Help: "Judge calls retried after a retryable failure",
		},
	)
)
