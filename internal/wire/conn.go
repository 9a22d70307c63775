package wire

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jayshah1819/nsq-j/types"
)

// IdentifyPayload is sent as the body of the IDENTIFY command, the opaque
// handshake step every connection performs before any stateful command.
type IdentifyPayload struct {
	ClientID  string `json:"client_id"`
	Hostname  string `json:"hostname"`
	UserAgent string `json:"user_agent"`
}

// Conn is a single framed TCP connection to a broker node. It serializes
// writes behind a mutex and leaves reading to whatever goroutine the caller
// runs against ReadFrame; Conn itself does not start a reader goroutine so
// PubConnection and SubConnection can each drive the read loop the way
// their contract requires.
type Conn struct {
	Addr types.HostAndPort

	netConn net.Conn
	writeMu sync.Mutex
	logger  types.Logger

	closed    atomic.Bool
	closeOnce sync.Once
}

// Dial opens a TCP connection to addr, writes the magic bytes, and performs
// the IDENTIFY handshake. It returns *types.Error with KindTransport on I/O
// failure and KindProtocol on an unexpected handshake reply.
func Dial(addr types.HostAndPort, dialTimeout time.Duration, identify IdentifyPayload, logger types.Logger) (*Conn, error) {
	netConn, err := net.DialTimeout("tcp", addr.String(), dialTimeout)
	if err != nil {
		return nil, types.NewError(types.KindTransport, fmt.Sprintf("dial %s", addr), err)
	}

	c := &Conn{Addr: addr, netConn: netConn, logger: logger}

	if _, err := netConn.Write(Magic); err != nil {
		netConn.Close()
		return nil, types.NewError(types.KindTransport, "write magic", err)
	}

	payload, err := json.Marshal(identify)
	if err != nil {
		netConn.Close()
		return nil, types.NewError(types.KindProtocol, "encode identify payload", err)
	}

	if err := c.WriteCommand(Identify(payload)); err != nil {
		netConn.Close()
		return nil, err
	}

	frameType, data, err := ReadFrame(netConn)
	if err != nil {
		netConn.Close()
		return nil, types.NewError(types.KindTransport, "read identify response", err)
	}
	if frameType != FrameTypeResponse {
		netConn.Close()
		return nil, types.NewError(types.KindProtocol, fmt.Sprintf("unexpected identify frame type %d", frameType), nil)
	}
	if string(data) != OKBody {
		// Broker may reply with a JSON capabilities blob instead of a bare OK;
		// only a bare error frame (handled above via frameType) is fatal here.
		logger.Debug("identify response", "addr", addr.String(), "body", string(data))
	}

	return c, nil
}

// WriteCommand serializes cmd behind the write lock. All writes on one
// connection -- RDY updates, FIN/REQ, PUB/MPUB -- are totally ordered by
// this lock. The lock is held for the whole write and no write deadline is
// set, so a write that blocks keeps the lock until it completes or the
// connection is closed.
func (c *Conn) WriteCommand(cmd []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return types.NewError(types.KindTransport, "write on closed connection", net.ErrClosed)
	}

	if _, err := c.netConn.Write(cmd); err != nil {
		return types.NewError(types.KindTransport, "write command", err)
	}
	return nil
}

// ReadFrame reads the next frame from the connection. Callers run this on
// their own dedicated reader goroutine.
func (c *Conn) ReadFrame() (frameType int32, data []byte, err error) {
	return ReadFrame(c.netConn)
}

// SetReadDeadline forwards to the underlying net.Conn, used to bound
// graceful-close drain reads.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.netConn.SetReadDeadline(t)
}

// IsClosed reports whether Close has been called.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// Close is idempotent and releases the underlying socket.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err = c.netConn.Close()
	})
	return err
}
