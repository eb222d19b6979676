package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"courier/cmd/internal/webhook"
)

// Metrics holds the Prometheus instruments for the session core.
type Metrics struct {
	sessions        *prometheus.GaugeVec
	reconnects      prometheus.Counter
	webhookDispatch *prometheus.CounterVec
	inbound         prometheus.Counter
	sent            prometheus.Counter
}

// NewMetrics registers the session instruments on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		sessions: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "courier_sessions",
			Help: "Sessions by current status.",
		}, []string{"status"}),
		reconnects: f.NewCounter(prometheus.CounterOpts{
			Name: "courier_reconnects_total",
			Help: "Automatic reconnect attempts.",
		}),
		webhookDispatch: f.NewCounterVec(prometheus.CounterOpts{
			Name: "courier_webhook_dispatch_total",
			Help: "Webhook dispatch attempts by outcome.",
		}, []string{"outcome"}),
		inbound: f.NewCounter(prometheus.CounterOpts{
			Name: "courier_messages_inbound_total",
			Help: "Inbound messages accepted by the translator.",
		}),
		sent: f.NewCounter(prometheus.CounterOpts{
			Name: "courier_messages_sent_total",
			Help: "Outbound messages successfully handed to the transport.",
		}),
	}
}

func (m *Metrics) statusChange(from, to Status) {
	if m == nil || from == to {
		return
	}
	if from != "" {
		m.sessions.WithLabelValues(string(from)).Dec()
	}
	m.sessions.WithLabelValues(string(to)).Inc()
}

func (m *Metrics) reconnectScheduled() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *Metrics) dispatched(o webhook.Outcome) {
	if m == nil {
		return
	}
	m.webhookDispatch.WithLabelValues(string(o)).Inc()
}

func (m *Metrics) inboundAccepted() {
	if m == nil {
		return
	}
	m.inbound.Inc()
}

func (m *Metrics) messageSent() {
	if m == nil {
		return
	}
	m.sent.Inc()
}
