package subscription

import (
	"github.com/jayshah1819/nsq-j/types"
	"github.com/puzpuzpuz/xsync/v4"
)

// Registry is the Subscriber's subscription index, keyed by
// SubscriptionID. It is read far more often (every discovery tick, every
// setMaxInFlight/drain call) than it is written to, so it uses xsync.Map
// instead of a mutex-guarded map for the hot lookup path.
type Registry struct {
	byID *xsync.Map[types.SubscriptionID, *Subscription]
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: xsync.NewMap[types.SubscriptionID, *Subscription]()}
}

// Add registers sub under its ID.
func (r *Registry) Add(sub *Subscription) {
	r.byID.Store(sub.ID, sub)
}

// Remove removes and returns the subscription for id, if present.
func (r *Registry) Remove(id types.SubscriptionID) (*Subscription, bool) {
	return r.byID.LoadAndDelete(id)
}

// Get returns the subscription for id, if present.
func (r *Registry) Get(id types.SubscriptionID) (*Subscription, bool) {
	return r.byID.Load(id)
}

// Range calls f for every registered subscription until f returns false.
func (r *Registry) Range(f func(*Subscription) bool) {
	r.byID.Range(func(_ types.SubscriptionID, sub *Subscription) bool {
		return f(sub)
	})
}

// ForTopicChannel returns every subscription bound to (topic, channel).
// More than one subscription can share a binding, each with its own
// handler. SetMaxInFlight acts on all of them; UnsubscribeTopicChannel
// removes only the first one found.
func (r *Registry) ForTopicChannel(topic, channel string) []*Subscription {
	var out []*Subscription
	r.Range(func(sub *Subscription) bool {
		if sub.Topic == topic && sub.Channel == channel {
			out = append(out, sub)
		}
		return true
	})
	return out
}

// Topics returns the deduplicated set of topics with at least one active
// subscription.
func (r *Registry) Topics() []string {
	seen := make(map[string]struct{})
	var out []string
	r.Range(func(sub *Subscription) bool {
		if _, ok := seen[sub.Topic]; !ok {
			seen[sub.Topic] = struct{}{}
			out = append(out, sub.Topic)
		}
		return true
	})
	return out
}

// Len returns the number of registered subscriptions.
func (r *Registry) Len() int {
	n := 0
	r.Range(func(*Subscription) bool { n++; return true })
	return n
}
