package subscription

import "time"

const (
	// DefaultMaxInFlight is the initial maxInFlight for a new subscription
	// when the caller does not specify one.
	DefaultMaxInFlight = 200

	// DefaultMaxFlushDelayMillis caps the computed requeue delay.
	DefaultMaxFlushDelayMillis = 2000

	// DefaultBackoffBase is the initial backoff duration on the first
	// handler failure.
	DefaultBackoffBase = 1 * time.Second

	// DefaultBackoffMultiplier doubles the backoff duration on consecutive
	// failures.
	DefaultBackoffMultiplier = 2.0

	// DefaultBackoffCap bounds exponential backoff growth.
	DefaultBackoffCap = 120 * time.Second

	// awaitPollInterval is how often awaitNoMessagesInFlight-style polling
	// checks the in-flight count.
	awaitPollInterval = 500 * time.Millisecond
)
