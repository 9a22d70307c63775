package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlogLogger_WritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlog(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	logger.Info("connected", "host", "nsqd-1:4150")

	out := buf.String()
	assert.Contains(t, out, "connected")
	assert.Contains(t, out, "host=nsqd-1:4150")
}

func TestNopLogger_DoesNotPanic(t *testing.T) {
	logger := NewNop()
	assert.NotPanics(t, func() {
		logger.Debug("x")
		logger.Info("x")
		logger.Warn("x")
		logger.Error("x")
		logger.Fatal("x")
	})
}
