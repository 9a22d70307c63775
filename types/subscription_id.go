package types

import "sync/atomic"

// SubscriptionID identifies a Subscription for its whole lifetime. It is
// minted from a shared, process-wide counter and is stable and
// equality-comparable.
type SubscriptionID uint64

var subscriptionIDCounter atomic.Uint64

// NextSubscriptionID mints a new, monotonically increasing SubscriptionID.
func NextSubscriptionID() SubscriptionID {
	return SubscriptionID(subscriptionIDCounter.Add(1))
}
