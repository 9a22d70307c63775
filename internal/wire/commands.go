package wire

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/jayshah1819/nsq-j/types"
)

// sizedBody prefixes body with its own 4-byte big-endian length.
func sizedBody(body []byte) []byte {
	buf := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(body)))
	copy(buf[4:], body)
	return buf
}

// Identify builds the IDENTIFY command: a command line followed by the
// JSON-encoded payload as a sized body.
func Identify(payload []byte) []byte {
	return append([]byte("IDENTIFY\n"), sizedBody(payload)...)
}

// Sub builds the SUB command; it must be the first stateful command sent on
// a SubConnection after the handshake completes.
func Sub(topic, channel string) []byte {
	return []byte(fmt.Sprintf("SUB %s %s\n", topic, channel))
}

// Rdy builds the RDY command, announcing readiness for up to count
// in-flight messages.
func Rdy(count int) []byte {
	return []byte(fmt.Sprintf("RDY %d\n", count))
}

// Fin builds the FIN command, acknowledging successful processing of id.
func Fin(id types.MessageID) []byte {
	return []byte(fmt.Sprintf("FIN %s\n", id))
}

// Req builds the REQ command, asking the broker to redeliver id after delay.
func Req(id types.MessageID, delay time.Duration) []byte {
	return []byte(fmt.Sprintf("REQ %s %d\n", id, delay.Milliseconds()))
}

// Touch builds the TOUCH command, extending the broker's ack deadline for id.
func Touch(id types.MessageID) []byte {
	return []byte(fmt.Sprintf("TOUCH %s\n", id))
}

// Cls builds the CLS command, requesting a graceful close: the broker stops
// sending new messages and the connection drains in-flight replies.
func Cls() []byte {
	return []byte("CLS\n")
}

// Nop builds the NOP command, the required reply to a broker heartbeat.
func Nop() []byte {
	return []byte("NOP\n")
}

// Pub builds a single-message PUB command.
func Pub(topic string, body []byte) []byte {
	return append([]byte(fmt.Sprintf("PUB %s\n", topic)), sizedBody(body)...)
}

// Mpub builds a multi-message MPUB command. The wire body is: message
// count (4 bytes BE), then each message as its own sized sub-body, the
// whole thing wrapped in one outer sized body.
func Mpub(topic string, bodies [][]byte) []byte {
	inner := make([]byte, 4)
	binary.BigEndian.PutUint32(inner, uint32(len(bodies)))
	for _, b := range bodies {
		inner = append(inner, sizedBody(b)...)
	}
	return append([]byte(fmt.Sprintf("MPUB %s\n", topic)), sizedBody(inner)...)
}

// DecodeMpubBody is the inverse of the body Mpub builds, used by the
// in-process test broker to recover individual messages from an MPUB frame.
func DecodeMpubBody(body []byte) ([][]byte, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("wire: mpub body too short")
	}
	count := binary.BigEndian.Uint32(body[0:4])
	rest := body[4:]
	out := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(rest) < 4 {
			return nil, fmt.Errorf("wire: mpub body truncated at message %d", i)
		}
		n := binary.BigEndian.Uint32(rest[0:4])
		rest = rest[4:]
		if uint32(len(rest)) < n {
			return nil, fmt.Errorf("wire: mpub message %d truncated", i)
		}
		out = append(out, rest[:n])
		rest = rest[n:]
	}
	return out, nil
}
