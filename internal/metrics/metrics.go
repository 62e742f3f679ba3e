package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "say_it_translated"

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 120},
		},
		[]string{"method", "endpoint"},
	)

	// Submissions by MIME type and outcome (success, rejected, failed)
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submission",
			Name:      "uploads_total",
			Help:      "Total audio submissions",
		},
		[]string{"content_type", "status"},
	)

	UploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submission",
			Name:      "upload_bytes_total",
			Help:      "Total audio bytes stored",
		},
		[]string{"content_type"},
	)

	TranscriptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "transcriptions_total",
			Help:      "Transcription runs by provider and outcome",
		},
		[]string{"provider", "status"},
	)

	TranslationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "translations_total",
			Help:      "Translation runs by target language and outcome",
		},
		[]string{"target_lang", "status"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "External provider call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 180},
		},
		[]string{"provider", "operation"},
	)

	CaptureSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "open_sessions",
			Help:      "Open live capture sessions",
		},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordUpload records a submission outcome
func RecordUpload(contentType, status string, bytes int64) {
	UploadsTotal.WithLabelValues(contentType, status).Inc()
	if status == "success" {
		UploadBytesTotal.WithLabelValues(contentType).Add(float64(bytes))
	}
}

func RecordTranscription(provider, status string) {
	TranscriptionsTotal.WithLabelValues(provider, status).Inc()
}

func RecordTranslation(targetLang, status string) {
	TranslationsTotal.WithLabelValues(targetLang, status).Inc()
}

// RecordProviderCall records the latency of an upstream call
func RecordProviderCall(provider, operation string, durationSec float64) {
	ProviderDuration.WithLabelValues(provider, operation).Observe(durationSec)
}

func SetCaptureSessions(n int) {
	CaptureSessions.Set(float64(n))
}
