package metrics

import (
	"sync"

	"github.com/jayshah1819/nsq-j/types"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements types.MetricsCollector backed by
// Prometheus. Registration is deferred to first use, so constructing a
// collector never fails, and each collector registers its metrics once.
// Two collectors with the same namespace on one registry collide: the
// second one's registration panics.
type PrometheusCollector struct {
	NopMetrics

	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	publishTotal    *prometheus.CounterVec
	publishDuration *prometheus.HistogramVec
	nodeFailures    *prometheus.CounterVec
	healthyNodes    *prometheus.GaugeVec

	inFlight          *prometheus.GaugeVec
	rdy               *prometheus.GaugeVec
	backoffTransition *prometheus.CounterVec
	requeues          *prometheus.CounterVec
	deadLetters       *prometheus.CounterVec
	lookupFailures    *prometheus.CounterVec
	connections       *prometheus.GaugeVec
}

// Compile-time assertion that PrometheusCollector implements types.MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a Prometheus-backed collector. reg defaults to
// prometheus.DefaultRegisterer and namespace defaults to "nsqj" when empty.
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "nsqj"
	}
	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.publishTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace, Subsystem: "publisher", Name: "publish_total",
			Help: "Total publish attempts by topic, batch flag and result.",
		}, []string{"topic", "batch", "result"})

		p.publishDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace, Subsystem: "publisher", Name: "publish_duration_seconds",
			Help:    "Publish round-trip latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic", "batch"})

		p.nodeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace, Subsystem: "publisher", Name: "node_failures_total",
			Help: "Total times a broker node was marked failed.",
		}, []string{"host"})

		p.healthyNodes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace, Subsystem: "publisher", Name: "healthy_nodes",
			Help: "Current count of broker nodes not in failure backoff.",
		}, []string{"topic"})

		p.inFlight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace, Subsystem: "subscriber", Name: "in_flight",
			Help: "Current handler-owned message count.",
		}, []string{"topic", "channel"})

		p.rdy = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace, Subsystem: "subscriber", Name: "rdy",
			Help: "Last RDY value sent on a connection.",
		}, []string{"topic", "channel", "host"})

		p.backoffTransition = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace, Subsystem: "subscriber", Name: "backoff_transitions_total",
			Help: "Backoff state machine transitions by resulting state.",
		}, []string{"topic", "channel", "state"})

		p.requeues = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace, Subsystem: "subscriber", Name: "requeues_total",
			Help: "Total handler failures that led to a REQ.",
		}, []string{"topic", "channel"})

		p.deadLetters = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace, Subsystem: "subscriber", Name: "dead_letters_total",
			Help: "Total messages given up on after MaxAttempts.",
		}, []string{"topic", "channel"})

		p.lookupFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace, Subsystem: "subscriber", Name: "lookup_failures_total",
			Help: "Total discovery lookup failures by URL.",
		}, []string{"url"})

		p.connections = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace, Subsystem: "subscriber", Name: "connections",
			Help: "Current live broker connection count per subscription.",
		}, []string{"topic", "channel"})

		p.reg.MustRegister(
			p.publishTotal, p.publishDuration, p.nodeFailures, p.healthyNodes,
			p.inFlight, p.rdy, p.backoffTransition, p.requeues, p.deadLetters,
			p.lookupFailures, p.connections,
		)
	})
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func batchLabel(batch bool) string {
	if batch {
		return "mpub"
	}
	return "pub"
}

// RecordPublish implements types.PublisherMetrics.
func (p *PrometheusCollector) RecordPublish(topic string, batch bool, success bool, durationSeconds float64) {
	p.ensureRegistered()
	bl := batchLabel(batch)
	p.publishTotal.WithLabelValues(topic, bl, resultLabel(success)).Inc()
	p.publishDuration.WithLabelValues(topic, bl).Observe(durationSeconds)
}

// RecordNodeFailure implements types.PublisherMetrics.
func (p *PrometheusCollector) RecordNodeFailure(host string) {
	p.ensureRegistered()
	p.nodeFailures.WithLabelValues(host).Inc()
}

// SetHealthyNodeCount implements types.PublisherMetrics.
func (p *PrometheusCollector) SetHealthyNodeCount(topic string, count int) {
	p.ensureRegistered()
	p.healthyNodes.WithLabelValues(topic).Set(float64(count))
}

// SetInFlightCount implements types.SubscriberMetrics.
func (p *PrometheusCollector) SetInFlightCount(topic, channel string, count int) {
	p.ensureRegistered()
	p.inFlight.WithLabelValues(topic, channel).Set(float64(count))
}

// SetRDY implements types.SubscriberMetrics.
func (p *PrometheusCollector) SetRDY(topic, channel, host string, rdy int) {
	p.ensureRegistered()
	p.rdy.WithLabelValues(topic, channel, host).Set(float64(rdy))
}

// RecordBackoffTransition implements types.SubscriberMetrics.
func (p *PrometheusCollector) RecordBackoffTransition(topic, channel, state string) {
	p.ensureRegistered()
	p.backoffTransition.WithLabelValues(topic, channel, state).Inc()
}

// RecordRequeue implements types.SubscriberMetrics.
func (p *PrometheusCollector) RecordRequeue(topic, channel string) {
	p.ensureRegistered()
	p.requeues.WithLabelValues(topic, channel).Inc()
}

// RecordDeadLetter implements types.SubscriberMetrics.
func (p *PrometheusCollector) RecordDeadLetter(topic, channel string) {
	p.ensureRegistered()
	p.deadLetters.WithLabelValues(topic, channel).Inc()
}

// RecordLookupFailure implements types.SubscriberMetrics.
func (p *PrometheusCollector) RecordLookupFailure(url string, _ int) {
	p.ensureRegistered()
	p.lookupFailures.WithLabelValues(url).Inc()
}

// SetConnectionCount implements types.SubscriberMetrics.
func (p *PrometheusCollector) SetConnectionCount(topic, channel string, count int) {
	p.ensureRegistered()
	p.connections.WithLabelValues(topic, channel).Set(float64(count))
}
