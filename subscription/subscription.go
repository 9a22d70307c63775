package subscription

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jayshah1819/nsq-j/internal/logging"
	"github.com/jayshah1819/nsq-j/internal/subconn"
	"github.com/jayshah1819/nsq-j/types"
)

// Config carries the tuning knobs a Subscription needs at construction
// time, mirroring the subscriber-side fields of SubscriberConfig.
type Config struct {
	DialTimeout          time.Duration
	ClientID             string
	MaxFlushDelayMillis  int
	MaxAttempts          uint16
	FailedMessageHandler types.FailedMessageHandler
	BackoffBase          time.Duration
	BackoffCap           time.Duration
	BackoffMultiplier    float64
	Logger               types.Logger
	Metrics              types.MetricsCollector
	// Dispatch runs a handler invocation, defaulting to a bare goroutine.
	// The root Client supplies a worker-pool-backed dispatcher.
	Dispatch func(func())
}

// Subscription is one (topic, channel) binding: it owns a set of
// SubConnections keyed by broker address, reconciles that set against
// discovery results, distributes RDY credit across it, and runs the
// backoff state machine for the handler attached at construction.
type Subscription struct {
	ID      types.SubscriptionID
	Topic   string
	Channel string

	handler  types.MessageHandler
	logger   types.Logger
	metrics  types.MetricsCollector
	backoff  *BackoffController
	dispatch func(func())

	dialTimeout time.Duration
	clientID    string

	mu          sync.Mutex
	maxInFlight int
	connections map[types.HostAndPort]*subconn.SubConnection
	closed      bool

	inFlight atomic.Int64
	rotation atomic.Uint64
}

// New builds a Subscription bound to userHandler, wrapping it in the
// backoff decorator so no runtime type check is ever needed to find out
// whether backoff applies.
func New(id types.SubscriptionID, topic, channel string, userHandler types.MessageHandler, maxInFlight int, cfg Config) *Subscription {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Dispatch == nil {
		cfg.Dispatch = func(f func()) { go f() }
	}

	s := &Subscription{
		ID:          id,
		Topic:       topic,
		Channel:     channel,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		dispatch:    cfg.Dispatch,
		dialTimeout: cfg.DialTimeout,
		clientID:    cfg.ClientID,
		maxInFlight: maxInFlight,
		connections: make(map[types.HostAndPort]*subconn.SubConnection),
	}

	s.backoff = NewBackoffController(cfg.BackoffBase, cfg.BackoffCap, cfg.BackoffMultiplier, cfg.Metrics, topic, channel, s.onBackoffStateChange)
	s.handler = NewBackoffHandler(userHandler, HandlerConfig{
		MaxFlushDelayMillis:  cfg.MaxFlushDelayMillis,
		MaxAttempts:          cfg.MaxAttempts,
		FailedMessageHandler: cfg.FailedMessageHandler,
		Metrics:              cfg.Metrics,
		Topic:                topic,
		Channel:              channel,
		Backoff:              s.backoff,
	})

	return s
}

// MaxInFlight returns the currently configured maxInFlight.
func (s *Subscription) MaxInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInFlight
}

// SetMaxInFlight updates maxInFlight and immediately redistributes RDY
// across the current connection set. Setting it to 0 puts the
// subscription in the drain state; existing in-flight messages still
// drain normally.
func (s *Subscription) SetMaxInFlight(n int) {
	s.mu.Lock()
	s.maxInFlight = n
	s.mu.Unlock()
	s.applyRDY()
}

// ConnectionCount returns the number of currently open connections.
func (s *Subscription) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connections)
}

// InFlightCount returns the number of messages currently owned by the
// handler (delivered but not yet Finish/Requeue'd).
func (s *Subscription) InFlightCount() int {
	return int(s.inFlight.Load())
}

// Reconcile brings the connection set in line with nodes: it opens
// SubConnections for newly discovered addresses and gracefully closes
// connections for addresses no longer present, then redistributes RDY
// over the resulting set. Opening and closing connections happens outside
// the subscription's lock; the RDY commands of the redistribution are
// written while the lock is held.
func (s *Subscription) Reconcile(nodes []types.HostAndPort) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	wanted := make(map[types.HostAndPort]struct{}, len(nodes))
	for _, n := range nodes {
		wanted[n] = struct{}{}
	}

	var toAdd []types.HostAndPort
	for _, n := range nodes {
		if _, ok := s.connections[n]; !ok {
			toAdd = append(toAdd, n)
		}
	}
	var toRemove []types.HostAndPort
	for addr := range s.connections {
		if _, ok := wanted[addr]; !ok {
			toRemove = append(toRemove, addr)
		}
	}
	s.mu.Unlock()

	for _, addr := range toRemove {
		s.removeConnection(addr)
	}

	for _, addr := range toAdd {
		s.addConnection(addr)
	}

	s.applyRDY()
	s.recordConnectionCount()
}

func (s *Subscription) addConnection(addr types.HostAndPort) {
	sc, err := subconn.Open(addr, s.Topic, s.Channel, s.dialTimeout, s.clientID, s.logger,
		s.onMessage,
		func(cause error) { s.onConnectionClosed(addr, cause) },
	)
	if err != nil {
		s.logger.Warn("failed to open subscriber connection", "topic", s.Topic, "channel", s.Channel, "addr", addr.String(), "error", err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sc.Close()
		return
	}
	s.connections[addr] = sc
	s.mu.Unlock()
}

func (s *Subscription) removeConnection(addr types.HostAndPort) {
	s.mu.Lock()
	sc, ok := s.connections[addr]
	delete(s.connections, addr)
	s.mu.Unlock()

	if ok {
		sc.Close()
	}
}

func (s *Subscription) onConnectionClosed(addr types.HostAndPort, cause error) {
	s.logger.Debug("subscriber connection closed", "topic", s.Topic, "channel", s.Channel, "addr", addr.String(), "cause", cause)
	s.mu.Lock()
	delete(s.connections, addr)
	s.mu.Unlock()
	s.recordConnectionCount()
}

func (s *Subscription) onBackoffStateChange(BackoffState) {
	s.applyRDY()
}

// applyRDY recomputes and pushes RDY to every connection according to the
// current backoff state and maxInFlight.
func (s *Subscription) applyRDY() {
	s.mu.Lock()
	addrs := make([]types.HostAndPort, 0, len(s.connections))
	for addr := range s.connections {
		addrs = append(addrs, addr)
	}
	maxInFlight := s.maxInFlight
	state := s.backoff.State()
	s.mu.Unlock()

	var desired map[types.HostAndPort]int
	switch {
	case maxInFlight == 0:
		// Drain is sticky regardless of backoff state: a StateTest probe
		// must never raise RDY above 0 while the subscription is draining.
		desired = make(map[types.HostAndPort]int, len(addrs))
		for _, addr := range addrs {
			desired[addr] = 0
		}
	case state == StateBackoff:
		desired = make(map[types.HostAndPort]int, len(addrs))
		for _, addr := range addrs {
			desired[addr] = 0
		}
	case state == StateTest:
		desired = DistributeRDY(addrs, minInt(1, len(addrs)), s.rotation.Add(1))
	default:
		desired = DistributeRDY(addrs, maxInFlight, s.rotation.Add(1))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Pushed one connection at a time, so during a shrink the transient
	// sum of in-flight RDY across connections can briefly exceed
	// maxInFlight until this loop finishes.
	for addr, n := range desired {
		sc, ok := s.connections[addr]
		if !ok {
			continue
		}
		if sc.LastRDY() == n {
			continue
		}
		if err := sc.RDY(n); err != nil {
			s.logger.Warn("failed to send RDY", "topic", s.Topic, "channel", s.Channel, "addr", addr.String(), "error", err)
			continue
		}
		if s.metrics != nil {
			s.metrics.SetRDY(s.Topic, s.Channel, addr.String(), n)
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (s *Subscription) recordConnectionCount() {
	if s.metrics == nil {
		return
	}
	s.metrics.SetConnectionCount(s.Topic, s.Channel, s.ConnectionCount())
}

func (s *Subscription) onMessage(msg *types.Message) {
	s.inFlight.Add(1)
	if s.metrics != nil {
		s.metrics.SetInFlightCount(s.Topic, s.Channel, int(s.inFlight.Load()))
	}

	s.dispatch(func() {
		defer func() {
			s.inFlight.Add(-1)
			if s.metrics != nil {
				s.metrics.SetInFlightCount(s.Topic, s.Channel, int(s.inFlight.Load()))
			}
		}()

		if err := s.handler.HandleMessage(msg); err != nil {
			s.logger.Warn("failed to finish or requeue message", "topic", s.Topic, "channel", s.Channel, "error", err)
		}
	})
}

// Close gracefully closes every owned connection and marks the
// subscription unusable for further reconciliation. It is idempotent.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conns := make([]*subconn.SubConnection, 0, len(s.connections))
	for _, sc := range s.connections {
		conns = append(conns, sc)
	}
	s.connections = make(map[types.HostAndPort]*subconn.SubConnection)
	s.mu.Unlock()

	s.backoff.Stop()
	for _, sc := range conns {
		sc.Close()
	}
}
