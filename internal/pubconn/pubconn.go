// Package pubconn implements PubConnection: a single connection used only
// to publish, with synchronous PUB/MPUB reply correlation.
package pubconn

import (
	"sync"
	"time"

	"github.com/jayshah1819/nsq-j/internal/wire"
	"github.com/jayshah1819/nsq-j/types"
)

// PubConnection owns one TCP socket used exclusively for PUB/MPUB. Its
// lifecycle is bounded by the owning balance.Instance; on any transport
// failure it becomes unusable and the caller must mark the node failed and
// let the balance strategy open a fresh connection on the next publish.
type PubConnection struct {
	conn   *wire.Conn
	logger types.Logger

	// replyMu serializes publish round-trips: write the command, then read
	// exactly the one response frame it produced, before any other
	// goroutine's publish is allowed to write on this connection. The
	// broker protocol has no request ID to correlate replies out of order.
	replyMu sync.Mutex
}

// Open dials addr and performs the handshake. It fails with a
// *types.Error(KindTransport) on I/O failure or KindProtocol on an
// unexpected handshake reply.
func Open(addr types.HostAndPort, dialTimeout time.Duration, clientID string, logger types.Logger) (*PubConnection, error) {
	conn, err := wire.Dial(addr, dialTimeout, wire.IdentifyPayload{ClientID: clientID, UserAgent: "nsq-j"}, logger)
	if err != nil {
		return nil, err
	}
	return &PubConnection{conn: conn, logger: logger}, nil
}

// Addr returns the broker node address this connection is open to.
func (p *PubConnection) Addr() types.HostAndPort {
	return p.conn.Addr
}

// Publish sends a single-message PUB and waits for the broker's reply.
func (p *PubConnection) Publish(topic string, body []byte) error {
	return p.roundTrip(wire.Pub(topic, body))
}

// PublishMulti sends a batched MPUB and waits for the broker's reply. The
// broker treats MPUB atomically: all messages land or none do.
func (p *PubConnection) PublishMulti(topic string, bodies [][]byte) error {
	return p.roundTrip(wire.Mpub(topic, bodies))
}

func (p *PubConnection) roundTrip(cmd []byte) error {
	p.replyMu.Lock()
	defer p.replyMu.Unlock()

	if err := p.conn.WriteCommand(cmd); err != nil {
		_ = p.conn.Close()
		return err
	}

	frameType, data, err := p.conn.ReadFrame()
	if err != nil {
		_ = p.conn.Close()
		return types.NewError(types.KindTransport, "read publish response", err)
	}

	switch frameType {
	case wire.FrameTypeResponse:
		if string(data) != wire.OKBody {
			return types.NewError(types.KindProtocol, "unexpected publish response: "+string(data), nil)
		}
		return nil
	case wire.FrameTypeError:
		return types.NewError(types.KindPublish, string(data), nil)
	default:
		return types.NewError(types.KindProtocol, "unexpected frame type on publish", nil)
	}
}

// Close releases the underlying socket. It is idempotent.
func (p *PubConnection) Close() error {
	return p.conn.Close()
}

// IsClosed reports whether Close has already been called.
func (p *PubConnection) IsClosed() bool {
	return p.conn.IsClosed()
}
