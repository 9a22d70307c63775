// Package subscription implements Subscription: one (topic, channel)
// binding owning a set of SubConnections, reconciled against discovery
// results, distributing RDY credit across connections and running the
// backoff state machine on handler failure.
package subscription
