package wire

import (
	"bytes"
	"testing"
	"time"

	"github.com/jayshah1819/nsq-j/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadFrame_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, FrameTypeResponse, []byte(OKBody)))

	frameType, data, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, FrameTypeResponse, frameType)
	assert.Equal(t, OKBody, string(data))
}

func TestEncodeDecodeMessage_RoundTrips(t *testing.T) {
	ts := time.Unix(1700000000, 123456789)
	id := types.MessageID("0123456789abcdef")
	body := []byte("hello")

	encoded := EncodeMessage(ts, 3, id, body)
	gotTS, attempts, gotID, gotBody, err := DecodeMessage(encoded)
	require.NoError(t, err)

	assert.Equal(t, ts.UnixNano(), gotTS.UnixNano())
	assert.Equal(t, uint16(3), attempts)
	assert.Equal(t, id, gotID)
	assert.Equal(t, body, gotBody)
}

func TestDecodeMessage_TooShort(t *testing.T) {
	_, _, _, _, err := DecodeMessage([]byte("short"))
	assert.Error(t, err)
}

func TestMpubEncodeDecode_RoundTrips(t *testing.T) {
	bodies := [][]byte{[]byte("m1"), []byte("m2"), []byte("m3")}
	cmd := Mpub("topic", bodies)

	// Strip "MPUB topic\n" command line and the outer sized-body length prefix.
	nl := bytes.IndexByte(cmd, '\n')
	require.Greater(t, nl, 0)
	outerBody := cmd[nl+1+4:]

	got, err := DecodeMpubBody(outerBody)
	require.NoError(t, err)
	assert.Equal(t, bodies, got)
}
