package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skill_aligner_eval_api_requests_total",
			Help: "Report API requests by route and status code.",
		},
		[]string{"route", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skill_aligner_eval_api_request_duration_seconds",
			Help:    "Report API request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	reportRecomputes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skill_aligner_eval_report_recomputes_total",
			Help: "Reports rebuilt from stored records.",
		},
	)
)

// Instrument records request counts and latency per route template.
func Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
