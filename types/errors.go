package types

import "fmt"

// Kind classifies the errors this client can surface to callers, per the
// error taxonomy: invalid input, transport failure, protocol violation,
// broker-rejected publish, an atomic batch publish failure, an exhausted
// balance strategy, or a discovery lookup failure (never surfaced to
// callers directly, but classified the same way for logging).
type Kind int

const (
	// KindInvalidArgument marks synchronous precondition failures (nil topic, empty batch, ...).
	KindInvalidArgument Kind = iota
	// KindTransport marks TCP I/O or handshake I/O failures.
	KindTransport
	// KindProtocol marks malformed frames or unexpected broker replies.
	KindProtocol
	// KindPublish marks a non-OK broker reply to PUB/MPUB.
	KindPublish
	// KindAtomicBatchPublishFailed marks an MPUB failure under an atomic publisher.
	KindAtomicBatchPublishFailed
	// KindNoNodesAvailable marks an empty balance-strategy node set.
	KindNoNodesAvailable
	// KindLookupFailure marks a discovery HTTP error. Never surfaced to callers.
	KindLookupFailure
)

// String renders the kind's name.
func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindTransport:
		return "TransportError"
	case KindProtocol:
		return "ProtocolError"
	case KindPublish:
		return "PublishError"
	case KindAtomicBatchPublishFailed:
		return "AtomicBatchPublishFailed"
	case KindNoNodesAvailable:
		return "NoNodesAvailable"
	case KindLookupFailure:
		return "LookupFailure"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by nsq-j components. Callers
// distinguish failure kinds with errors.As and Kind(), rather than string
// matching.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// NewError builds an Error of the given kind, optionally wrapping cause.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target has the same Kind, so callers can compare with
// errors.Is(err, &types.Error{Kind: types.KindPublish}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
