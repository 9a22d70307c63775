package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/jayshah1819/nsq-j/types"
)

// Magic is written once, immediately after the TCP connection is
// established, before any command.
var Magic = []byte("  V2")

// Frame types, matching the second 4-byte field of every frame the broker
// sends back.
const (
	FrameTypeResponse int32 = 0
	FrameTypeError    int32 = 1
	FrameTypeMessage  int32 = 2
)

const (
	// HeartbeatBody is the response body sent by the broker to keep an idle
	// connection alive; it must be answered with a NOP, not treated as data.
	HeartbeatBody = "_heartbeat_"
	// OKBody is the successful response body for most commands.
	OKBody = "OK"
)

// ReadFrame reads one length-prefixed frame: a 4-byte big-endian size
// (covering the frame-type field and the data that follows, not itself), a
// 4-byte frame type, and the frame data.
func ReadFrame(r io.Reader) (frameType int32, data []byte, err error) {
	var sizeBuf [4]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return 0, nil, err
	}
	size := binary.BigEndian.Uint32(sizeBuf[:])
	if size < 4 {
		return 0, nil, fmt.Errorf("wire: frame size %d smaller than frame-type field", size)
	}

	var typeBuf [4]byte
	if _, err := io.ReadFull(r, typeBuf[:]); err != nil {
		return 0, nil, err
	}
	frameType = int32(binary.BigEndian.Uint32(typeBuf[:]))

	dataLen := size - 4
	data = make([]byte, dataLen)
	if dataLen > 0 {
		if _, err := io.ReadFull(r, data); err != nil {
			return 0, nil, err
		}
	}

	return frameType, data, nil
}

// WriteFrame writes a length-prefixed frame in the same shape ReadFrame
// reads. It is used by the in-process test broker to answer commands.
func WriteFrame(w io.Writer, frameType int32, data []byte) error {
	buf := make([]byte, 8+len(data))
	binary.BigEndian.PutUint32(buf[0:4], uint32(4+len(data)))
	binary.BigEndian.PutUint32(buf[4:8], uint32(frameType))
	copy(buf[8:], data)
	_, err := w.Write(buf)
	return err
}

// messageIDLen is the fixed width of a broker-assigned message ID.
const messageIDLen = 16

// DecodeMessage parses a FrameTypeMessage body into its fields: 8-byte
// big-endian nanosecond timestamp, 2-byte big-endian attempt count, a
// fixed-width message ID, then the opaque body.
func DecodeMessage(data []byte) (ts time.Time, attempts uint16, id types.MessageID, body []byte, err error) {
	const headerLen = 8 + 2 + messageIDLen
	if len(data) < headerLen {
		return time.Time{}, 0, "", nil, fmt.Errorf("wire: message frame too short: %d bytes", len(data))
	}

	nanos := int64(binary.BigEndian.Uint64(data[0:8]))
	attempts = binary.BigEndian.Uint16(data[8:10])
	idBytes := data[10:26]
	body = data[26:]

	return time.Unix(0, nanos), attempts, types.MessageID(idBytes), body, nil
}

// EncodeMessage is the inverse of DecodeMessage, used by the in-process test
// broker to synthesize deliveries.
func EncodeMessage(ts time.Time, attempts uint16, id types.MessageID, body []byte) []byte {
	buf := make([]byte, 8+2+messageIDLen+len(body))
	binary.BigEndian.PutUint64(buf[0:8], uint64(ts.UnixNano()))
	binary.BigEndian.PutUint16(buf[8:10], attempts)
	idBytes := []byte(id)
	if len(idBytes) > messageIDLen {
		idBytes = idBytes[:messageIDLen]
	}
	copy(buf[10:26], idBytes)
	copy(buf[26:], body)
	return buf
}
