// Package metrics registers the Prometheus collectors for the intake service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	sessionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_sessions_created_total",
			Help: "Total number of interview sessions created",
		},
		[]string{"tenant"},
	)

	answersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_answers_total",
			Help: "Answer submissions by outcome",
		},
		[]string{"outcome"},
	)

	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "underwriting_decisions_total",
			Help: "Terminal decisions by outcome",
		},
		[]string{"decision"},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_uploads_total",
			Help: "Uploaded medical documents by mime type",
		},
		[]string{"mime"},
	)

	extractionFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_extraction_files_total",
			Help: "Per-file extraction outcomes",
		},
		[]string{"outcome"},
	)

	extractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intake_extraction_duration_seconds",
			Help:    "Per-file extraction duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	providerFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_provider_fallbacks_total",
			Help: "Times a provider failure was absorbed by a fallback",
		},
		[]string{"stage"},
	)

	candidatesExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_candidates_total",
			Help: "Candidate conditions produced, by match method",
		},
		[]string{"method"},
	)
)

// Middleware records request count and latency per route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Route().Path
		status := c.Response().StatusCode()
		httpRequestsTotal.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

func RecordSessionCreated(tenant string) {
	sessionsCreated.WithLabelValues(tenant).Inc()
}

func RecordAnswer(outcome string) {
	answersTotal.WithLabelValues(outcome).Inc()
}

func RecordDecision(decision string) {
	decisionsTotal.WithLabelValues(decision).Inc()
}

func RecordUpload(mime string) {
	uploadsTotal.WithLabelValues(mime).Inc()
}

func RecordExtraction(outcome string, d time.Duration) {
	extractionFilesTotal.WithLabelValues(outcome).Inc()
	extractionDuration.Observe(d.Seconds())
}

func RecordProviderFallback(stage string) {
	providerFallbacksTotal.WithLabelValues(stage).Inc()
}

func RecordCandidate(method string) {
	candidatesExtracted.WithLabelValues(method).Inc()
}
