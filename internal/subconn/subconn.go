// Package subconn implements SubConnection: a single connection used to
// receive messages pushed by the broker under RDY-based flow control.
package subconn

import (
	"sync"
	"time"

	"github.com/jayshah1819/nsq-j/internal/wire"
	"github.com/jayshah1819/nsq-j/types"
)

// Compile-time assertion that SubConnection implements types.Finisher.
var _ types.Finisher = (*SubConnection)(nil)

// SubConnection owns one TCP socket subscribed to one (topic, channel) on
// one broker node. A dedicated reader goroutine dispatches inbound frames;
// writes (RDY, FIN, REQ, TOUCH, CLS) are serialized by the underlying
// wire.Conn's write lock. On any transport failure it transitions to a
// terminal closed state and calls onClose exactly once.
type SubConnection struct {
	conn    *wire.Conn
	topic   string
	channel string
	logger  types.Logger

	onMessage func(*types.Message)
	onClose   func(cause error)

	closeOnce sync.Once
	lastRDY   int
	rdyMu     sync.Mutex
}

// Open dials addr, performs the handshake, sends SUB, and starts the
// background reader. onMessage is invoked once per delivered message;
// onClose is invoked exactly once when the connection reaches its terminal
// state, whether due to a transport error or a caller-initiated Close.
func Open(
	addr types.HostAndPort,
	topic, channel string,
	dialTimeout time.Duration,
	clientID string,
	logger types.Logger,
	onMessage func(*types.Message),
	onClose func(cause error),
) (*SubConnection, error) {
	conn, err := wire.Dial(addr, dialTimeout, wire.IdentifyPayload{ClientID: clientID, UserAgent: "nsq-j"}, logger)
	if err != nil {
		return nil, err
	}

	if err := conn.WriteCommand(wire.Sub(topic, channel)); err != nil {
		conn.Close()
		return nil, err
	}

	frameType, data, err := conn.ReadFrame()
	if err != nil {
		conn.Close()
		return nil, types.NewError(types.KindTransport, "read sub response", err)
	}
	if frameType == wire.FrameTypeError {
		conn.Close()
		return nil, types.NewError(types.KindProtocol, "sub rejected: "+string(data), nil)
	}
	if frameType != wire.FrameTypeResponse || string(data) != wire.OKBody {
		conn.Close()
		return nil, types.NewError(types.KindProtocol, "unexpected sub response", nil)
	}

	sc := &SubConnection{
		conn:      conn,
		topic:     topic,
		channel:   channel,
		logger:    logger,
		onMessage: onMessage,
		onClose:   onClose,
	}
	go sc.readLoop()

	return sc, nil
}

// Addr returns the broker node address this connection is subscribed on.
func (sc *SubConnection) Addr() types.HostAndPort {
	return sc.conn.Addr
}

// RDY sets the receive-ready count. n must be within [0, maxInFlight]; the
// caller (Subscription) enforces that invariant, not this type.
func (sc *SubConnection) RDY(n int) error {
	sc.rdyMu.Lock()
	sc.lastRDY = n
	sc.rdyMu.Unlock()
	return sc.conn.WriteCommand(wire.Rdy(n))
}

// LastRDY returns the most recently sent RDY value.
func (sc *SubConnection) LastRDY() int {
	sc.rdyMu.Lock()
	defer sc.rdyMu.Unlock()
	return sc.lastRDY
}

// Finish implements types.Finisher: sends FIN for id.
func (sc *SubConnection) Finish(id types.MessageID) error {
	return sc.conn.WriteCommand(wire.Fin(id))
}

// Requeue implements types.Finisher: sends REQ for id with the given delay.
func (sc *SubConnection) Requeue(id types.MessageID, delay time.Duration) error {
	return sc.conn.WriteCommand(wire.Req(id, delay))
}

// Touch implements types.Finisher: sends TOUCH for id.
func (sc *SubConnection) Touch(id types.MessageID) error {
	return sc.conn.WriteCommand(wire.Touch(id))
}

// Close sends CLS and then closes the socket. It is idempotent and safe to
// call from any goroutine, including the reader's own onClose callback.
// It does not drain the read side: the socket is closed right after CLS is
// written, without waiting for the broker's reply or for frames still in
// transit.
func (sc *SubConnection) Close() error {
	var err error
	sc.closeOnce.Do(func() {
		_ = sc.conn.WriteCommand(wire.Cls())
		_ = sc.conn.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
		// The reader goroutine sees the closed socket and exits through
		// readLoop's own error path; Close does not wait for it.
		err = sc.conn.Close()
	})
	return err
}

// IsClosed reports whether the underlying connection has been closed.
func (sc *SubConnection) IsClosed() bool {
	return sc.conn.IsClosed()
}

func (sc *SubConnection) readLoop() {
	for {
		frameType, data, err := sc.conn.ReadFrame()
		if err != nil {
			_ = sc.conn.Close()
			sc.onClose(err)
			return
		}

		switch frameType {
		case wire.FrameTypeMessage:
			ts, attempts, id, body, err := wire.DecodeMessage(data)
			if err != nil {
				sc.logger.Warn("dropping malformed message frame", "topic", sc.topic, "channel", sc.channel, "error", err)
				continue
			}
			sc.onMessage(types.NewMessage(id, ts, attempts, body, sc))
		case wire.FrameTypeResponse:
			if string(data) == wire.HeartbeatBody {
				if err := sc.conn.WriteCommand(wire.Nop()); err != nil {
					_ = sc.conn.Close()
					sc.onClose(err)
					return
				}
			}
		case wire.FrameTypeError:
			sc.logger.Warn("broker error frame", "topic", sc.topic, "channel", sc.channel, "body", string(data))
		}
	}
}
