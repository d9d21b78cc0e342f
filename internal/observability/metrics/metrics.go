package metrics

import "github.com/prometheus/client_golang/prometheus"

// AutoRespondMetrics exposes counters/histograms for the auto-response pipeline.
type AutoRespondMetrics struct {
	inboundTotal    *prometheus.CounterVec
	decisionsTotal  *prometheus.CounterVec
	generationTotal *prometheus.CounterVec
	dispatchTotal   *prometheus.CounterVec
	pipelineLatency *prometheus.HistogramVec
}

func NewAutoRespondMetrics(reg prometheus.Registerer) *AutoRespondMetrics {
	m := &AutoRespondMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autorespond",
			Name:      "inbound_total",
			Help:      "Inbound messages received by the engine",
		}, []string{"channel", "status"}),
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autorespond",
			Name:      "decisions_total",
			Help:      "Eligibility decisions by reason",
		}, []string{"channel", "reason"}),
		generationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autorespond",
			Name:      "generation_total",
			Help:      "Reply generation outcomes by source",
		}, []string{"source", "outcome"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autorespond",
			Name:      "dispatch_total",
			Help:      "Outbound dispatch attempts",
		}, []string{"channel", "status"}),
		pipelineLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "autorespond",
			Name:      "pipeline_seconds",
			Help:      "End-to-end latency of processing one inbound message",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.decisionsTotal, m.generationTotal, m.dispatchTotal, m.pipelineLatency)
	return m
}

func (m *AutoRespondMetrics) ObserveInbound(channel, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(channel, status).Inc()
}

// ObserveDecision records a gate outcome; an empty reason means the message passed.
func (m *AutoRespondMetrics) ObserveDecision(channel, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "respond"
	}
	m.decisionsTotal.WithLabelValues(channel, reason).Inc()
}

func (m *AutoRespondMetrics) ObserveGeneration(source, outcome string) {
	if m == nil {
		return
	}
	m.generationTotal.WithLabelValues(source, outcome).Inc()
}

func (m *AutoRespondMetrics) ObserveDispatch(channel string, sent bool) {
	if m == nil {
		return
	}
	status := "skipped"
	if sent {
		status = "sent"
	}
	m.dispatchTotal.WithLabelValues(channel, status).Inc()
}

func (m *AutoRespondMetrics) ObserveDispatchError(channel string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(channel, "error").Inc()
}

func (m *AutoRespondMetrics) ObservePipelineLatency(channel string, seconds float64) {
	if m == nil {
		return
	}
	m.pipelineLatency.WithLabelValues(channel).Observe(seconds)
}
