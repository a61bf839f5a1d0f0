// Package metrics exposes Prometheus instrumentation for the questionnaire
// pipeline. All collectors register on the default registry; cmd/server
// serves them at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	inboundTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rheumabot_inbound_messages_total",
			Help: "Inbound webhook messages by handling result",
		},
		[]string{"result"},
	)
	sendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rheumabot_sends_total",
			Help: "Outbound gateway sends by final status",
		},
		[]string{"status"},
	)
	completedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rheumabot_questionnaires_completed_total",
			Help: "Finalized questionnaires by severity category",
		},
		[]string{"severity"},
	)
	queueDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rheumabot_send_queue_dropped_total",
			Help: "Outbound messages dropped because the send queue was full",
		},
	)
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rheumabot_active_sessions",
			Help: "Sessions currently in progress",
		},
	)
)

// Inbound handling results.
const (
	InboundEnrolled  = "enrolled"
	InboundAnswered  = "answered"
	InboundInvalid   = "invalid"
	InboundCompleted = "completed"
	InboundDuplicate = "duplicate"
	InboundIgnored   = "ignored"
)

// Send statuses.
const (
	SendOK     = "ok"
	SendFailed = "failed"
)

func IncInbound(result string)     { inboundTotal.WithLabelValues(result).Inc() }
func IncSend(status string)        { sendsTotal.WithLabelValues(status).Inc() }
func IncCompleted(severity string) { completedTotal.WithLabelValues(severity).Inc() }
func IncQueueDropped()             { queueDropped.Inc() }
func SetActiveSessions(n int)      { activeSessions.Set(float64(n)) }
