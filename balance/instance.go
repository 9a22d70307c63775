package balance

import (
	"sync"
	"time"

	"github.com/jayshah1819/nsq-j/internal/pubconn"
	"github.com/jayshah1819/nsq-j/types"
)

// markFailureWindow bounds how often MarkFailure advances lastFailureAt for
// repeated failures on the same node in quick succession -- a burst of
// concurrent publish failures against one dead node should count as one
// failure event, not one per caller.
const markFailureWindow = time.Second

// Instance is the publisher-side per-node record (NsqdInstance): an
// address, at most one open PubConnection, and the last-failure timestamp
// used to decide reconnect eligibility.
type Instance struct {
	addr types.HostAndPort

	mu            sync.Mutex
	conn          *pubconn.PubConnection
	lastFailureAt time.Time

	dialTimeout time.Duration
	clientID    string
	logger      types.Logger
}

// NewInstance creates an Instance for addr. The connection is not opened
// until Connection is first called.
func NewInstance(addr types.HostAndPort, dialTimeout time.Duration, clientID string, logger types.Logger) *Instance {
	return &Instance{addr: addr, dialTimeout: dialTimeout, clientID: clientID, logger: logger}
}

// Addr returns the node's address.
func (i *Instance) Addr() types.HostAndPort {
	return i.addr
}

// Connection returns the open PubConnection for this node, dialing one on
// demand if absent or previously closed.
func (i *Instance) Connection() (*pubconn.PubConnection, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.conn != nil && !i.conn.IsClosed() {
		return i.conn, nil
	}

	conn, err := pubconn.Open(i.addr, i.dialTimeout, i.clientID, i.logger)
	if err != nil {
		return nil, err
	}
	i.conn = conn

	return conn, nil
}

// MarkFailure records a failure at now. It is idempotent within
// markFailureWindow: repeated calls inside that window do not advance
// lastFailureAt further, so a burst of concurrent failures counts once.
func (i *Instance) MarkFailure(now time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if now.Sub(i.lastFailureAt) < markFailureWindow {
		return
	}
	i.lastFailureAt = now
}

// LastFailureAt returns the last time MarkFailure recorded a failure, or
// the zero time if the node has never failed.
func (i *Instance) LastFailureAt() time.Time {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lastFailureAt
}

// IsHealthy reports whether the node's last failure, if any, is older than
// backoff relative to now.
func (i *Instance) IsHealthy(now time.Time, backoff time.Duration) bool {
	last := i.LastFailureAt()
	if last.IsZero() {
		return true
	}
	return now.Sub(last) >= backoff
}

// Close releases the node's open connection, if any.
func (i *Instance) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.conn == nil {
		return nil
	}
	return i.conn.Close()
}
