package types

// MessageHandler processes a single delivered Message. Returning a non-nil
// error signals handler failure: the subscription will requeue the message
// with a computed backoff delay and transition its backoff state machine.
//
// If the configured worker pool is multi-threaded and a subscription's
// maxInFlight is greater than one, concurrent Handle calls for the same
// subscription can be in flight simultaneously; the handler must be
// reentrant. This is a caller obligation, not something the subscription
// enforces.
type MessageHandler interface {
	HandleMessage(msg *Message) error
}

// MessageHandlerFunc adapts a plain function to MessageHandler.
type MessageHandlerFunc func(msg *Message) error

// HandleMessage calls f.
func (f MessageHandlerFunc) HandleMessage(msg *Message) error { return f(msg) }

// MessageDataHandler is a convenience handler that only sees the message
// body. It is always wrapped in the backoff-aware MessageHandler before
// being attached to a subscription.
type MessageDataHandler interface {
	HandleMessageData(data []byte) error
}

// MessageDataHandlerFunc adapts a plain function to MessageDataHandler.
type MessageDataHandlerFunc func(data []byte) error

// HandleMessageData calls f.
func (f MessageDataHandlerFunc) HandleMessageData(data []byte) error { return f(data) }

// FailedMessageHandler is invoked at most once per message ID, when a
// message's Attempts counter reaches the subscriber's MaxAttempts. The
// message is FIN'd immediately after this call returns, regardless of what
// the handler does.
type FailedMessageHandler interface {
	HandleFailedMessage(msg *Message)
}

// FailedMessageHandlerFunc adapts a plain function to FailedMessageHandler.
type FailedMessageHandlerFunc func(msg *Message)

// HandleFailedMessage calls f.
func (f FailedMessageHandlerFunc) HandleFailedMessage(msg *Message) { f(msg) }
