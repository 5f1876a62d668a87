package metrics

import "github.com/prometheus/client_golang/prometheus"

// VoiceMetrics exposes counters/histograms for the voice agent flows.
type VoiceMetrics struct {
	webhookTotal  *prometheus.CounterVec
	turnsTotal    *prometheus.CounterVec
	turnLatency   *prometheus.HistogramVec
	toolCallTotal *prometheus.CounterVec
	bookingsTotal *prometheus.CounterVec
}

func NewVoiceMetrics(reg prometheus.Registerer) *VoiceMetrics {
	m := &VoiceMetrics{
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "voice",
			Name:      "webhook_total",
			Help:      "Total Twilio voice webhooks",
		}, []string{"endpoint", "status"}),
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "voice",
			Name:      "turns_total",
			Help:      "Total conversation turns by outcome",
		}, []string{"outcome"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "voice",
			Name:      "turn_latency_seconds",
			Help:      "Latency of a full conversation turn",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		toolCallTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "voice",
			Name:      "tool_calls_total",
			Help:      "Total model tool invocations",
		}, []string{"tool", "status"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "bookings",
			Name:      "total",
			Help:      "Total booking attempts by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.webhookTotal, m.turnsTotal, m.turnLatency, m.toolCallTotal, m.bookingsTotal)
	return m
}

func (m *VoiceMetrics) ObserveWebhook(endpoint, status string) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(endpoint, status).Inc()
}

func (m *VoiceMetrics) ObserveTurn(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
	m.turnLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *VoiceMetrics) ObserveToolCall(tool, status string) {
	if m == nil {
		return
	}
	m.toolCallTotal.WithLabelValues(tool, status).Inc()
}

func (m *VoiceMetrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(result).Inc()
}
