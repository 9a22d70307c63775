package testbroker

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jayshah1819/nsq-j/internal/wire"
	"github.com/jayshah1819/nsq-j/types"
)

// FakeBroker is an in-process stand-in for one nsqd node. It speaks just
// enough of the internal/wire framing to exercise PubConnection and
// SubConnection without a real broker: IDENTIFY, SUB, RDY, FIN, REQ, TOUCH,
// CLS, NOP, PUB and MPUB. Tests drive delivery explicitly with Deliver;
// FakeBroker never generates messages on its own.
type FakeBroker struct {
	ln   net.Listener
	addr types.HostAndPort

	mu    sync.Mutex
	conns map[*brokerConn]struct{}

	// FailPublish, when set, makes every PUB/MPUB fail with an error frame
	// instead of OK, simulating a broker that rejects writes.
	FailPublish atomic.Bool

	// RejectMultiOnly, when set, makes only MPUB fail while single PUB
	// still succeeds, simulating a broker whose batch framing is rejected
	// independently of its single-message path.
	RejectMultiOnly atomic.Bool

	// Published records every accepted PUB/MPUB body, topic first.
	mu2       sync.Mutex
	published []PublishedMessage

	closed atomic.Bool
}

// PublishedMessage is one accepted PUB or MPUB sub-message.
type PublishedMessage struct {
	Topic string
	Body  []byte
}

type brokerConn struct {
	nc      net.Conn
	topic   string
	channel string
	rdy     int
	mu      sync.Mutex
}

// StartFakeBroker starts listening on 127.0.0.1 on an ephemeral port and
// returns a broker ready to accept connections. It is stopped automatically
// when the test completes.
func StartFakeBroker(t *testing.T) *FakeBroker {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("testbroker: listen: %v", err)
	}

	tcpAddr := ln.Addr().(*net.TCPAddr)
	b := &FakeBroker{
		ln:    ln,
		addr:  types.FromParts("127.0.0.1", uint16(tcpAddr.Port)),
		conns: make(map[*brokerConn]struct{}),
	}

	go b.acceptLoop()
	t.Cleanup(func() { b.Close() })

	return b
}

// Addr returns the address tests and client code should dial.
func (b *FakeBroker) Addr() types.HostAndPort {
	return b.addr
}

// Close stops accepting connections and closes every open connection.
func (b *FakeBroker) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.ln.Close()

	b.mu.Lock()
	for c := range b.conns {
		c.nc.Close()
	}
	b.mu.Unlock()
}

// Published returns a snapshot of every message accepted so far.
func (b *FakeBroker) Published() []PublishedMessage {
	b.mu2.Lock()
	defer b.mu2.Unlock()
	out := make([]PublishedMessage, len(b.published))
	copy(out, b.published)
	return out
}

// RDYOf returns the remaining RDY credit of a connection subscribed to
// (topic, channel): the last RDY value it sent, minus one for each message
// Deliver has pushed to it since. It returns -1 if no connection is
// subscribed to (topic, channel).
func (b *FakeBroker) RDYOf(topic, channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.conns {
		c.mu.Lock()
		match := c.topic == topic && c.channel == channel
		rdy := c.rdy
		c.mu.Unlock()
		if match {
			return rdy
		}
	}
	return -1
}

// Deliver pushes a FrameTypeMessage to the first connection subscribed to
// (topic, channel) with RDY > 0, decrementing its tracked RDY by one. It
// returns false if no eligible connection is found.
func (b *FakeBroker) Deliver(topic, channel string, id types.MessageID, attempts uint16, body []byte) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for c := range b.conns {
		c.mu.Lock()
		eligible := c.topic == topic && c.channel == channel && c.rdy > 0
		if eligible {
			c.rdy--
		}
		c.mu.Unlock()

		if eligible {
			frame := wire.EncodeMessage(time.Now(), attempts, id, body)
			_ = wire.WriteFrame(c.nc, wire.FrameTypeMessage, frame)
			return true
		}
	}
	return false
}

func (b *FakeBroker) acceptLoop() {
	for {
		nc, err := b.ln.Accept()
		if err != nil {
			return
		}
		bc := &brokerConn{nc: nc}
		b.mu.Lock()
		b.conns[bc] = struct{}{}
		b.mu.Unlock()
		go b.serve(bc)
	}
}

func (b *FakeBroker) serve(bc *brokerConn) {
	defer func() {
		b.mu.Lock()
		delete(b.conns, bc)
		b.mu.Unlock()
		bc.nc.Close()
	}()

	magic := make([]byte, 4)
	if _, err := readFull(bc.nc, magic); err != nil {
		return
	}
	if !bytes.Equal(magic, wire.Magic) {
		return
	}

	r := bufio.NewReader(bc.nc)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\n")
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "IDENTIFY":
			if _, err := readSizedBody(r); err != nil {
				return
			}
			if err := wire.WriteFrame(bc.nc, wire.FrameTypeResponse, []byte(wire.OKBody)); err != nil {
				return
			}
		case "SUB":
			if len(fields) != 3 {
				wire.WriteFrame(bc.nc, wire.FrameTypeError, []byte("E_BAD_BODY SUB requires topic and channel"))
				continue
			}
			bc.mu.Lock()
			bc.topic, bc.channel = fields[1], fields[2]
			bc.mu.Unlock()
			if err := wire.WriteFrame(bc.nc, wire.FrameTypeResponse, []byte(wire.OKBody)); err != nil {
				return
			}
		case "RDY":
			if len(fields) != 2 {
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				continue
			}
			bc.mu.Lock()
			bc.rdy = n
			bc.mu.Unlock()
		case "FIN", "TOUCH":
			// No per-message ack-deadline tracking; accepted unconditionally.
		case "REQ":
			// No redelivery scheduling; accepted unconditionally.
		case "CLS":
			wire.WriteFrame(bc.nc, wire.FrameTypeResponse, []byte("CLOSE_WAIT"))
			return
		case "NOP":
			// No response required.
		case "PUB":
			if len(fields) != 2 {
				wire.WriteFrame(bc.nc, wire.FrameTypeError, []byte("E_BAD_BODY PUB requires topic"))
				continue
			}
			body, err := readSizedBody(r)
			if err != nil {
				return
			}
			if b.FailPublish.Load() {
				wire.WriteFrame(bc.nc, wire.FrameTypeError, []byte("E_PUB_FAILED publish failed"))
				continue
			}
			b.mu2.Lock()
			b.published = append(b.published, PublishedMessage{Topic: fields[1], Body: body})
			b.mu2.Unlock()
			wire.WriteFrame(bc.nc, wire.FrameTypeResponse, []byte(wire.OKBody))
		case "MPUB":
			if len(fields) != 2 {
				wire.WriteFrame(bc.nc, wire.FrameTypeError, []byte("E_BAD_BODY MPUB requires topic"))
				continue
			}
			outer, err := readSizedBody(r)
			if err != nil {
				return
			}
			if b.FailPublish.Load() || b.RejectMultiOnly.Load() {
				wire.WriteFrame(bc.nc, wire.FrameTypeError, []byte("E_MPUB_FAILED publish failed"))
				continue
			}
			bodies, err := wire.DecodeMpubBody(outer)
			if err != nil {
				wire.WriteFrame(bc.nc, wire.FrameTypeError, []byte("E_BAD_BODY "+err.Error()))
				continue
			}
			b.mu2.Lock()
			for _, body := range bodies {
				b.published = append(b.published, PublishedMessage{Topic: fields[1], Body: body})
			}
			b.mu2.Unlock()
			wire.WriteFrame(bc.nc, wire.FrameTypeResponse, []byte(wire.OKBody))
		default:
			wire.WriteFrame(bc.nc, wire.FrameTypeError, []byte(fmt.Sprintf("E_INVALID unknown command %q", fields[0])))
		}
	}
}

func readSizedBody(r *bufio.Reader) ([]byte, error) {
	var sizeBuf [4]byte
	if _, err := readFull(r, sizeBuf[:]); err != nil {
		return nil, err
	}
	size := int(uint32(sizeBuf[0])<<24 | uint32(sizeBuf[1])<<16 | uint32(sizeBuf[2])<<8 | uint32(sizeBuf[3]))
	body := make([]byte, size)
	if size > 0 {
		if _, err := readFull(r, body); err != nil {
			return nil, err
		}
	}
	return body, nil
}

func readFull(r interface{ Read([]byte) (int, error) }, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
