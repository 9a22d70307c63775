package balance

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/zeebo/xxh3"
)

// defaultFailureBackoff is the window a node is skipped for after a
// failure.
const defaultFailureBackoff = 10 * time.Second

// RoundRobinFailover is the default multi-host strategy: it walks an
// ordered ring of nodes, skipping any whose last failure is within
// failureBackoff, and falls back to the least-recently-failed node when
// every node is currently unhealthy.
type RoundRobinFailover struct {
	instances      []*Instance
	failureBackoff time.Duration
	cursor         atomic.Uint64
}

var _ Strategy = (*RoundRobinFailover)(nil)

// NewRoundRobinFailover builds a ring over instances. The ring order is
// derived from an xxh3 hash of each node's address rather than
// registration order, so two strategies configured with the same node set
// in a different order still agree on ring position.
func NewRoundRobinFailover(instances []*Instance, failureBackoff time.Duration) *RoundRobinFailover {
	if failureBackoff <= 0 {
		failureBackoff = defaultFailureBackoff
	}

	ring := append([]*Instance(nil), instances...)
	sort.Slice(ring, func(a, b int) bool {
		return ringPosition(ring[a]) < ringPosition(ring[b])
	})

	return &RoundRobinFailover{instances: ring, failureBackoff: failureBackoff}
}

// ringPosition hashes a node's address to its stable position on the ring.
func ringPosition(inst *Instance) uint64 {
	return xxh3.HashString(inst.Addr().String())
}

// GetInstance returns the next healthy node on the ring, advancing the
// rotation cursor, or the least-recently-failed node if none are healthy.
func (s *RoundRobinFailover) GetInstance() (*Instance, error) {
	if len(s.instances) == 0 {
		return nil, ErrNoNodesAvailable
	}

	now := time.Now()
	n := len(s.instances)
	start := int(s.cursor.Add(1)-1) % n

	for offset := 0; offset < n; offset++ {
		idx := (start + offset) % n
		inst := s.instances[idx]
		if inst.IsHealthy(now, s.failureBackoff) {
			return inst, nil
		}
	}

	return s.leastRecentlyFailed(), nil
}

// leastRecentlyFailed returns the instance with the oldest lastFailureAt,
// used when every node in the ring is currently within its failure
// backoff window.
func (s *RoundRobinFailover) leastRecentlyFailed() *Instance {
	best := s.instances[0]
	bestFailure := best.LastFailureAt()
	for _, inst := range s.instances[1:] {
		f := inst.LastFailureAt()
		if f.Before(bestFailure) {
			best = inst
			bestFailure = f
		}
	}
	return best
}

// Instances returns every node on the ring, in ring order.
func (s *RoundRobinFailover) Instances() []*Instance {
	return append([]*Instance(nil), s.instances...)
}
