package logging

import "github.com/jayshah1819/nsq-j/types"

// NopLogger discards every log line. It is the default logger for every
// component that isn't given one explicitly.
type NopLogger struct{}

// Compile-time assertion that NopLogger implements types.Logger.
var _ types.Logger = NopLogger{}

// NewNop creates a no-op logger.
func NewNop() NopLogger { return NopLogger{} }

// Debug discards msg.
func (NopLogger) Debug(msg string, keysAndValues ...any) {}

// Info discards msg.
func (NopLogger) Info(msg string, keysAndValues ...any) {}

// Warn discards msg.
func (NopLogger) Warn(msg string, keysAndValues ...any) {}

// Error discards msg.
func (NopLogger) Error(msg string, keysAndValues ...any) {}

// Fatal discards msg without exiting; a no-op logger must never terminate
// the process out from under a caller who never asked for one.
func (NopLogger) Fatal(msg string, keysAndValues ...any) {}
