package subscription

import "errors"

// ErrTopicRequired indicates a subscribe call with an empty topic.
var ErrTopicRequired = errors.New("subscription: topic is required")

// ErrChannelRequired indicates a subscribe call with an empty channel.
var ErrChannelRequired = errors.New("subscription: channel is required")

// ErrHandlerRequired indicates a subscribe call with a nil handler.
var ErrHandlerRequired = errors.New("subscription: handler is required")

// ErrClosed indicates an operation against an already-stopped subscription.
var ErrClosed = errors.New("subscription: already closed")
