package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "veridex",
		Name:      "analyses_submitted_total",
		Help:      "Total number of analyses submitted",
	}, []string{"media_type", "mode"})

	DetectionsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "veridex",
		Name:      "detections_completed_total",
		Help:      "Total number of completed detection calls by outcome",
	}, []string{"media_type", "outcome"})

	DetectionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "veridex",
		Name:      "detection_duration_seconds",
		Help:      "Duration of backend detection calls",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"media_type"})

	AnalysesSuperseded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "veridex",
		Name:      "analyses_superseded_total",
		Help:      "Total number of in-flight analyses cancelled by a newer submission",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "veridex",
		Name:      "queue_depth",
		Help:      "Number of pending analysis tasks in queue",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "veridex",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "veridex",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
