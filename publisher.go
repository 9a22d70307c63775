package nsq

import (
	"fmt"
	"time"

	"github.com/jayshah1819/nsq-j/balance"
	"github.com/jayshah1819/nsq-j/types"
)

// Publisher publishes single messages and batches to a topic, picking a
// broker node via a balance.Strategy and marking nodes that fail so the
// strategy can route around them.
type Publisher struct {
	strategy balance.Strategy
	atomic   bool
	logger   types.Logger
	metrics  types.MetricsCollector
}

// NewPublisher builds a Publisher over nodes. A single node gets the
// trivial balance.SingleHost strategy; more than one gets
// balance.RoundRobinFailover. Fails with ErrNoNodesConfigured if nodes is
// empty, or with an invalid-configuration error if cfg doesn't validate.
func NewPublisher(client *Client, nodes []types.HostAndPort, cfg PublisherConfig) (*Publisher, error) {
	if len(nodes) == 0 {
		return nil, ErrNoNodesConfigured
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = DefaultClient()
	}

	instances := make([]*balance.Instance, len(nodes))
	for i, addr := range nodes {
		instances[i] = balance.NewInstance(addr, cfg.DialTimeout, cfg.ClientID, client.Logger())
	}

	var strategy balance.Strategy
	if len(instances) == 1 {
		strategy = balance.NewSingleHost(instances[0])
	} else {
		strategy = balance.NewRoundRobinFailover(instances, cfg.FailureBackoff)
	}

	return &Publisher{
		strategy: strategy,
		atomic:   cfg.Atomic,
		logger:   client.Logger(),
		metrics:  client.Metrics(),
	}, nil
}

// Publish sends a single message to topic. On failure it marks the node
// failed and retries once on the strategy's next pick (a different node
// when more than one is configured and healthy); if that also fails, the
// second failure is returned to the caller.
func (p *Publisher) Publish(topic string, payload []byte) error {
	if topic == "" {
		return types.NewError(types.KindInvalidArgument, "topic is required", ErrTopicRequired)
	}

	inst, err := p.strategy.GetInstance()
	if err != nil {
		return types.NewError(types.KindNoNodesAvailable, "no broker nodes available", err)
	}

	if err := p.publishOnce(inst, topic, payload); err == nil {
		return nil
	}

	p.markFailure(inst)

	inst2, err2 := p.strategy.GetInstance()
	if err2 != nil {
		return types.NewError(types.KindNoNodesAvailable, "no broker nodes available on retry", err2)
	}
	if retryErr := p.publishOnce(inst2, topic, payload); retryErr != nil {
		p.markFailure(inst2)
		return retryErr
	}
	return nil
}

// PublishMulti sends a batch of messages to topic as a single atomic MPUB.
//
// On MPUB success it returns nil. On MPUB failure it marks the node
// failed exactly once; under Atomic it returns
// *types.Error(KindAtomicBatchPublishFailed) without attempting any
// per-message publish; otherwise it falls back to publishing each payload
// individually, in order, on the same connection used for the failed
// MPUB attempt -- per-message failures in the fallback are logged, not
// propagated, and do not mark the node failed again.
func (p *Publisher) PublishMulti(topic string, payloads [][]byte) error {
	if topic == "" {
		return types.NewError(types.KindInvalidArgument, "topic is required", ErrTopicRequired)
	}
	if len(payloads) == 0 {
		return types.NewError(types.KindInvalidArgument, "payloads must be non-empty", ErrPayloadsRequired)
	}

	inst, err := p.strategy.GetInstance()
	if err != nil {
		return types.NewError(types.KindNoNodesAvailable, "no broker nodes available", err)
	}

	conn, err := inst.Connection()
	if err == nil {
		err = p.timedPublish(topic, len(payloads) > 1, func() error {
			return conn.PublishMulti(topic, payloads)
		})
	}
	if err == nil {
		return nil
	}

	p.markFailure(inst)

	if p.atomic {
		return types.NewError(types.KindAtomicBatchPublishFailed,
			fmt.Sprintf("Atomic batch publishing failed for topic %q (%d messages)", topic, len(payloads)), err)
	}

	for _, payload := range payloads {
		if conn == nil {
			p.logger.Warn("skipping per-message fallback publish, no connection", "topic", topic)
			continue
		}
		if pubErr := p.timedPublish(topic, false, func() error { return conn.Publish(topic, payload) }); pubErr != nil {
			p.logger.Warn("per-message publish failed during MPUB fallback", "topic", topic, "error", pubErr)
		}
	}
	return nil
}

func (p *Publisher) publishOnce(inst *balance.Instance, topic string, payload []byte) error {
	conn, err := inst.Connection()
	if err != nil {
		return err
	}
	return p.timedPublish(topic, false, func() error { return conn.Publish(topic, payload) })
}

func (p *Publisher) timedPublish(topic string, batch bool, fn func() error) error {
	start := time.Now()
	err := fn()
	if p.metrics != nil {
		p.metrics.RecordPublish(topic, batch, err == nil, time.Since(start).Seconds())
	}
	return err
}

func (p *Publisher) markFailure(inst *balance.Instance) {
	inst.MarkFailure(time.Now())
	if p.metrics != nil {
		p.metrics.RecordNodeFailure(inst.Addr().String())
	}
}
