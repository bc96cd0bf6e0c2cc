// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_total",
			Help: "Inbound events by source (webhook/poll).",
		},
		[]string{"source"},
	)

	extractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_extractions_total",
			Help: "Extraction outcomes per strategy (none = extraction failed).",
		},
		[]string{"strategy"},
	)

	resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_resolutions_total",
			Help: "Resolution outcomes per lookup method (number/id/local).",
		},
		[]string{"method", "outcome"},
	)

	duplicatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_duplicates_total",
			Help: "Approval events suppressed by the dedup gate.",
		},
		[]string{"mode"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_notifications_total",
			Help: "Telegram sends by result (sent/failed).",
		},
		[]string{"status"},
	)

	crmLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_crm_latency_ms",
			Help:    "CRM API call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"endpoint", "success"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			eventsTotal, extractionsTotal, resolutionsTotal,
			duplicatesTotal, notificationsTotal, crmLatencyMs,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// -------- Pipeline helpers --------

func IncEvent(source string) {
	eventsTotal.WithLabelValues(norm(source)).Inc()
}

func IncExtraction(strategy string) {
	extractionsTotal.WithLabelValues(norm(strategy)).Inc()
}

func IncResolution(method, outcome string) {
	resolutionsTotal.WithLabelValues(norm(method), norm(outcome)).Inc()
}

func IncDuplicate(mode string) {
	duplicatesTotal.WithLabelValues(norm(mode)).Inc()
}

func IncNotification(status string) {
	notificationsTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveCRMCall(endpoint string, latencyMs int, success bool) {
	crmLatencyMs.WithLabelValues(norm(endpoint), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}
