package nsq

import "net/http"

// Option configures a Client with optional dependencies.
type Option func(*clientOptions)

// clientOptions holds optional Client configuration.
type clientOptions struct {
	logger     Logger
	metrics    MetricsCollector
	httpClient *http.Client
	clientID   string
	poolSize   int
}

// WithLogger sets the structured logger used for every long-running loop
// (discovery polling, connection readers).
//
// Example, where logger is any nsq.Logger implementation:
//
//	client := nsq.NewClient(nsq.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics collector used by every Publisher and
// Subscriber built from this Client.
//
// Example, where collector is any nsq.MetricsCollector implementation:
//
//	client := nsq.NewClient(nsq.WithMetrics(collector))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *clientOptions) {
		o.metrics = metrics
	}
}

// WithHTTPClient overrides the *http.Client used for discovery lookups,
// e.g. to install a custom Transport or a shorter global deadline.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = httpClient
	}
}

// WithClientID sets the identifier sent in the IDENTIFY handshake payload
// of every Subscriber connection. Publisher connections send
// PublisherConfig.ClientID instead. Defaults to "nsq-j".
func WithClientID(id string) Option {
	return func(o *clientOptions) {
		o.clientID = id
	}
}

// WithWorkerPoolSize bounds how many message handlers run concurrently
// across every Subscription this Client's Subscribers own. A size of 0
// (the default) means unbounded: each delivered message dispatches to its
// own goroutine.
func WithWorkerPoolSize(size int) Option {
	return func(o *clientOptions) {
		o.poolSize = size
	}
}
