package nsq

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jayshah1819/nsq-j/subscription"
	"github.com/jayshah1819/nsq-j/types"
)

// awaitPollInterval is how often AwaitNoMessagesInFlight polls the
// in-flight count while waiting for it to reach zero.
const awaitPollInterval = 500 * time.Millisecond

// Subscriber owns discovery polling, a registry of Subscriptions, and the
// drain/await surface used to shut down consumption cleanly.
type Subscriber struct {
	client *Client
	lookup *lookupClient
	cfg    SubscriberConfig

	registry   *subscription.Registry
	stopTicker func()

	stopOnce sync.Once
	stopped  atomic.Bool
}

// NewSubscriber builds a Subscriber that polls lookupHosts for topic
// discovery at cfg.LookupIntervalSecs. It fails with ErrNoLookupHosts if
// lookupHosts is empty, or with an invalid-configuration error if cfg
// doesn't validate.
func NewSubscriber(client *Client, lookupHosts []types.HostAndPort, cfg SubscriberConfig) (*Subscriber, error) {
	if len(lookupHosts) == 0 {
		return nil, ErrNoLookupHosts
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = DefaultClient()
	}

	s := &Subscriber{
		client:   client,
		cfg:      cfg,
		registry: subscription.NewRegistry(),
	}
	s.lookup = newLookupClient(lookupHosts, client.httpClient, cfg.LookupTimeout, cfg.MaxLookupFailuresBeforeError, client.Logger(), client.Metrics())

	interval := time.Duration(cfg.LookupIntervalSecs) * time.Second
	s.stopTicker = client.ScheduleAtFixedRate(interval, true, s.pollAll)

	return s, nil
}

// Subscribe binds handler to (topic, channel) using the Subscriber's
// configured DefaultMaxInFlight.
func (s *Subscriber) Subscribe(topic, channel string, handler types.MessageHandler) (types.SubscriptionID, error) {
	return s.SubscribeWithMaxInFlight(topic, channel, s.cfg.DefaultMaxInFlight, handler)
}

// SubscribeData binds a MessageDataHandler, wrapped so it only ever sees
// the message body, using the Subscriber's configured DefaultMaxInFlight.
func (s *Subscriber) SubscribeData(topic, channel string, handler types.MessageDataHandler) (types.SubscriptionID, error) {
	return s.SubscribeWithMaxInFlight(topic, channel, s.cfg.DefaultMaxInFlight, subscription.AsMessageHandler(handler))
}

// SubscribeWithMaxInFlight binds handler to (topic, channel) with an
// explicit maxInFlight, immediately reconciling against the current
// discovery state for topic before returning.
func (s *Subscriber) SubscribeWithMaxInFlight(topic, channel string, maxInFlight int, handler types.MessageHandler) (types.SubscriptionID, error) {
	if topic == "" {
		return 0, ErrTopicRequired
	}
	if channel == "" {
		return 0, ErrChannelRequired
	}
	if handler == nil {
		return 0, ErrHandlerRequired
	}
	if s.stopped.Load() {
		return 0, ErrClientStopped
	}

	id := types.NextSubscriptionID()
	sub := subscription.New(id, topic, channel, handler, maxInFlight, subscription.Config{
		DialTimeout:          s.cfg.DialTimeout,
		ClientID:             s.client.ClientID(),
		MaxFlushDelayMillis:  s.cfg.MaxFlushDelayMillis,
		MaxAttempts:          s.cfg.MaxAttempts,
		FailedMessageHandler: s.cfg.FailedMessageHandler,
		BackoffBase:          s.cfg.BackoffBase,
		BackoffCap:           s.cfg.BackoffCap,
		BackoffMultiplier:    s.cfg.BackoffMultiplier,
		Logger:               s.client.Logger(),
		Metrics:              s.client.Metrics(),
		Dispatch:             s.client.Dispatch,
	})

	s.registry.Add(sub)
	sub.Reconcile(s.lookup.lookup(topic))

	return id, nil
}

// Unsubscribe stops and removes the subscription identified by id. It
// returns false if id is not currently registered. This does not delete
// the underlying broker-side channel.
func (s *Subscriber) Unsubscribe(id types.SubscriptionID) bool {
	sub, ok := s.registry.Remove(id)
	if !ok {
		return false
	}
	sub.Close()
	return true
}

// UnsubscribeTopicChannel stops the first subscription bound to (topic,
// channel). It is a deprecated overload preserved from the source
// library: it cannot distinguish between two subscriptions sharing the
// same (topic, channel) pair. Prefer Unsubscribe(id).
func (s *Subscriber) UnsubscribeTopicChannel(topic, channel string) bool {
	matches := s.registry.ForTopicChannel(topic, channel)
	if len(matches) == 0 {
		return false
	}
	sub := matches[0]
	_, ok := s.registry.Remove(sub.ID)
	if !ok {
		return false
	}
	sub.Close()
	return true
}

// SetMaxInFlight applies maxInFlight to every subscription currently bound
// to (topic, channel).
func (s *Subscriber) SetMaxInFlight(topic, channel string, maxInFlight int) {
	for _, sub := range s.registry.ForTopicChannel(topic, channel) {
		sub.SetMaxInFlight(maxInFlight)
	}
}

// DrainInFlight sets maxInFlight to 0 on every active subscription. It
// remains the caller's responsibility to use GetCurrentInFlightCount or
// AwaitNoMessagesInFlight to confirm drain completion before Stop.
func (s *Subscriber) DrainInFlight() {
	s.registry.Range(func(sub *subscription.Subscription) bool {
		sub.SetMaxInFlight(0)
		return true
	})
}

// GetCurrentInFlightCount sums the handler-owned in-flight message count
// across every active subscription.
func (s *Subscriber) GetCurrentInFlightCount() int {
	total := 0
	s.registry.Range(func(sub *subscription.Subscription) bool {
		total += sub.InFlightCount()
		return true
	})
	return total
}

// GetConnectionCount sums the open connection count across every active
// subscription.
func (s *Subscriber) GetConnectionCount() int {
	total := 0
	s.registry.Range(func(sub *subscription.Subscription) bool {
		total += sub.ConnectionCount()
		return true
	})
	return total
}

// AwaitNoMessagesInFlight polls GetCurrentInFlightCount every 500ms until
// it reaches zero or timeout elapses, returning whether it reached zero.
func (s *Subscriber) AwaitNoMessagesInFlight(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		current := s.GetCurrentInFlightCount()
		if current == 0 {
			s.client.Logger().Info("all subscribers in-flight count hit 0, continuing")
			return true
		}
		if time.Now().After(deadline) {
			s.client.Logger().Warn("gave up waiting for in-flight count to reach 0", "timeout", timeout, "current", current)
			return false
		}
		s.client.Logger().Debug("awaiting in-flight message count to hit 0", "current", current)
		time.Sleep(awaitPollInterval)
	}
}

// Stop stops discovery polling and closes every active subscription.
// Idempotent.
func (s *Subscriber) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		if s.stopTicker != nil {
			s.stopTicker()
		}
		s.registry.Range(func(sub *subscription.Subscription) bool {
			sub.Close()
			return true
		})
	})
}

// pollAll is scheduled at cfg.LookupIntervalSecs; it re-runs discovery for
// every active subscription's topic and reconciles the result.
func (s *Subscriber) pollAll() {
	if s.stopped.Load() {
		return
	}
	s.registry.Range(func(sub *subscription.Subscription) bool {
		sub.Reconcile(s.lookup.lookup(sub.Topic))
		return true
	})
}
