package nsq

import "errors"

// Sentinel errors returned by Client, Publisher and Subscriber construction
// and validation paths. Runtime failures (transport, protocol, publish,
// lookup) use the richer *types.Error taxonomy instead; see types.Kind.
var (
	// ErrTopicRequired is returned when a topic argument is empty.
	ErrTopicRequired = errors.New("nsq: topic is required")

	// ErrChannelRequired is returned when a channel argument is empty.
	ErrChannelRequired = errors.New("nsq: channel is required")

	// ErrHandlerRequired is returned when a nil handler is passed to Subscribe.
	ErrHandlerRequired = errors.New("nsq: handler is required")

	// ErrPayloadsRequired is returned when a batch publish is called with a nil or empty payload list.
	ErrPayloadsRequired = errors.New("nsq: payloads must be non-empty")

	// ErrNoNodesConfigured is returned when a Publisher is constructed with an empty node set.
	ErrNoNodesConfigured = errors.New("nsq: at least one broker node is required")

	// ErrNoLookupHosts is returned when a Subscriber is constructed with no discovery hosts.
	ErrNoLookupHosts = errors.New("nsq: at least one lookup host is required")

	// ErrClientStopped is returned by Subscribe calls made after Subscriber.Stop.
	ErrClientStopped = errors.New("nsq: client is stopped")

	// ErrSubscriptionNotFound names an unknown subscription ID. Unsubscribe
	// does not return it: it reports an unknown ID by returning false.
	ErrSubscriptionNotFound = errors.New("nsq: subscription not found")

	// ErrInvalidConfig is returned by Validate when a configuration value is out of range.
	ErrInvalidConfig = errors.New("nsq: invalid configuration")
)
