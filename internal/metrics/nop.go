package metrics

import "github.com/jayshah1819/nsq-j/types"

// NopMetrics discards every metric. It is the default collector.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements types.MetricsCollector.
var _ types.MetricsCollector = NopMetrics{}

// NewNop creates a no-op metrics collector.
func NewNop() NopMetrics { return NopMetrics{} }

// RecordPublish discards the publish outcome.
func (NopMetrics) RecordPublish(_ string, _ bool, _ bool, _ float64) {}

// RecordNodeFailure discards the node failure event.
func (NopMetrics) RecordNodeFailure(_ string) {}

// SetHealthyNodeCount discards the healthy node count.
func (NopMetrics) SetHealthyNodeCount(_ string, _ int) {}

// SetInFlightCount discards the in-flight count.
func (NopMetrics) SetInFlightCount(_, _ string, _ int) {}

// SetRDY discards the RDY value.
func (NopMetrics) SetRDY(_, _, _ string, _ int) {}

// RecordBackoffTransition discards the backoff transition.
func (NopMetrics) RecordBackoffTransition(_, _, _ string) {}

// RecordRequeue discards the requeue event.
func (NopMetrics) RecordRequeue(_, _ string) {}

// RecordDeadLetter discards the dead-letter event.
func (NopMetrics) RecordDeadLetter(_, _ string) {}

// RecordLookupFailure discards the lookup failure event.
func (NopMetrics) RecordLookupFailure(_ string, _ int) {}

// SetConnectionCount discards the connection count.
func (NopMetrics) SetConnectionCount(_, _ string, _ int) {}
