package subscription

import (
	"time"

	"github.com/jayshah1819/nsq-j/types"
)

// requeueBase is the starting point for the exponential requeue delay
// computed from a message's attempt count.
const requeueBase = 100 * time.Millisecond

// HandlerConfig configures the backoff-wrapping decorator built by
// NewBackoffHandler.
type HandlerConfig struct {
	MaxFlushDelayMillis  int
	MaxAttempts          uint16 // 0 means unbounded
	FailedMessageHandler types.FailedMessageHandler
	Metrics              types.MetricsCollector
	Topic, Channel       string
	Backoff              *BackoffController
}

// backoffHandler wraps a user MessageHandler and always sits between the
// subscription's dispatch path and the user's code: it never lets a
// runtime type check decide whether backoff applies.
type backoffHandler struct {
	user types.MessageHandler
	cfg  HandlerConfig
}

// NewBackoffHandler composes the backoff decorator around user. The
// returned handler always finishes or requeues the message itself; the
// caller (Subscription's dispatch loop) must not also call Finish/Requeue.
func NewBackoffHandler(user types.MessageHandler, cfg HandlerConfig) types.MessageHandler {
	return &backoffHandler{user: user, cfg: cfg}
}

func (h *backoffHandler) HandleMessage(msg *types.Message) error {
	err := h.user.HandleMessage(msg)
	if err == nil {
		if h.cfg.Backoff != nil {
			h.cfg.Backoff.OnSuccess()
		}
		return msg.Finish()
	}

	if h.cfg.Backoff != nil {
		h.cfg.Backoff.OnFailure()
	}

	if h.cfg.MaxAttempts > 0 && msg.Attempts >= h.cfg.MaxAttempts {
		if h.cfg.FailedMessageHandler != nil {
			h.cfg.FailedMessageHandler.HandleFailedMessage(msg)
		}
		if h.cfg.Metrics != nil {
			h.cfg.Metrics.RecordDeadLetter(h.cfg.Topic, h.cfg.Channel)
		}
		return msg.Finish()
	}

	if h.cfg.Metrics != nil {
		h.cfg.Metrics.RecordRequeue(h.cfg.Topic, h.cfg.Channel)
	}

	maxDelay := time.Duration(h.cfg.MaxFlushDelayMillis) * time.Millisecond
	if maxDelay <= 0 {
		maxDelay = DefaultMaxFlushDelayMillis * time.Millisecond
	}
	return msg.Requeue(requeueDelay(msg.Attempts, maxDelay))
}

// requeueDelay grows exponentially with the attempt count, doubling from
// requeueBase, capped at maxDelay.
func requeueDelay(attempts uint16, maxDelay time.Duration) time.Duration {
	if attempts == 0 {
		attempts = 1
	}
	delay := requeueBase
	for i := uint16(1); i < attempts && delay < maxDelay; i++ {
		delay *= 2
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// AsMessageHandler adapts a MessageDataHandler into a types.MessageHandler
// that discards the Message's metadata, for handlers that only care about
// the payload.
func AsMessageHandler(data types.MessageDataHandler) types.MessageHandler {
	return types.MessageHandlerFunc(func(msg *types.Message) error {
		return data.HandleMessageData(msg.Body)
	})
}
