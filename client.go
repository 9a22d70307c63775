package nsq

import (
	"net/http"
	"sync"
	"time"

	"github.com/jayshah1819/nsq-j/internal/logging"
	"github.com/jayshah1819/nsq-j/internal/metrics"
)

var (
	defaultClient     *Client
	defaultClientOnce sync.Once
)

// Client is the shared runtime every Publisher and Subscriber is built
// from: a logger, a metrics collector, the HTTP client used for discovery
// lookups, and a bounded worker pool that message handlers dispatch onto.
//
// The original library exposed a process-wide default client singleton
// implicitly; here that is re-architected as an explicit value callers
// construct and pass to NewPublisher/NewSubscriber. DefaultClient remains
// available as a convenience for callers who don't need more than one.
type Client struct {
	logger     Logger
	metrics    MetricsCollector
	httpClient *http.Client
	clientID   string

	sem chan struct{}

	mu      sync.Mutex
	stopped bool
	timers  []*time.Ticker
}

// NewClient builds a Client. Logger defaults to a no-op logger, metrics to
// a no-op collector, and the HTTP client to one with a generous default
// transport; override any of these with Option values.
func NewClient(opts ...Option) *Client {
	o := clientOptions{clientID: "nsq-j"}
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.metrics == nil {
		o.metrics = metrics.NewNop()
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}

	c := &Client{
		logger:     o.logger,
		metrics:    o.metrics,
		httpClient: o.httpClient,
		clientID:   o.clientID,
	}
	if o.poolSize > 0 {
		c.sem = make(chan struct{}, o.poolSize)
	}
	return c
}

// DefaultClient lazily initializes and returns a shared Client instance,
// guarded by a one-time initializer. It is the convenience constructor for
// callers who don't need a custom logger, metrics collector, or worker
// pool. Call Stop explicitly for teardown; DefaultClient never resets
// itself.
func DefaultClient() *Client {
	defaultClientOnce.Do(func() {
		defaultClient = NewClient()
	})
	return defaultClient
}

// Logger returns the client's configured logger.
func (c *Client) Logger() Logger { return c.logger }

// Metrics returns the client's configured metrics collector.
func (c *Client) Metrics() MetricsCollector { return c.metrics }

// ClientID returns the identifier sent in every Subscriber connection's
// handshake.
func (c *Client) ClientID() string { return c.clientID }

// Dispatch runs f on the client's worker pool. With no pool size
// configured it runs f on a fresh goroutine; with a bounded pool it blocks
// until a slot is free, applying backpressure to the SubConnection reader
// that queued it.
func (c *Client) Dispatch(f func()) {
	if c.sem == nil {
		go f()
		return
	}
	c.sem <- struct{}{}
	go func() {
		defer func() { <-c.sem }()
		f()
	}()
}

// ScheduleAtFixedRate runs fn once immediately if runImmediately is true,
// then every interval, until the returned stop function is called or Stop
// is called on the client. Each tick that hangs does not delay the next
// one: fn is invoked on its own goroutine per tick.
func (c *Client) ScheduleAtFixedRate(interval time.Duration, runImmediately bool, fn func()) (stop func()) {
	ticker := time.NewTicker(interval)

	c.mu.Lock()
	c.timers = append(c.timers, ticker)
	c.mu.Unlock()

	done := make(chan struct{})

	go func() {
		if runImmediately {
			go fn()
		}
		for {
			select {
			case <-ticker.C:
				// A tick already buffered when stop is called must not run fn.
				go func() {
					select {
					case <-done:
					default:
						fn()
					}
				}()
			case <-done:
				return
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(done)
	}
}

// Stop stops every ticker scheduled through ScheduleAtFixedRate and marks
// the client stopped. It does not wait for in-flight dispatched handlers
// to complete; callers that need that guarantee should drain their
// Subscribers with AwaitNoMessagesInFlight first. Idempotent.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	for _, t := range c.timers {
		t.Stop()
	}
}

// IsStopped reports whether Stop has been called.
func (c *Client) IsStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}
