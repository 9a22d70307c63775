package nsq

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SubscriberConfig controls discovery polling, flow control defaults and
// retry accounting for every Subscription a Subscriber owns.
//
// All duration fields accept standard Go duration strings when loaded from
// YAML (e.g. "30s", "1m").
type SubscriberConfig struct {
	// LookupIntervalSecs is the period between discovery polls.
	LookupIntervalSecs int `yaml:"lookupIntervalSecs"`

	// MaxLookupFailuresBeforeError is the per-URL consecutive-failure
	// threshold at which lookup failures escalate from warn to error.
	MaxLookupFailuresBeforeError int `yaml:"maxLookupFailuresBeforeError"`

	// DefaultMaxInFlight is the initial maxInFlight for new subscriptions
	// that don't specify one explicitly.
	DefaultMaxInFlight int `yaml:"defaultMaxInFlight"`

	// MaxFlushDelayMillis caps the computed requeue delay on handler failure.
	MaxFlushDelayMillis int `yaml:"maxFlushDelayMillis"`

	// MaxAttempts caps the broker-side attempt count before dead-lettering.
	// Zero means unbounded.
	MaxAttempts uint16 `yaml:"maxAttempts"`

	// FailedMessageHandler is invoked once a message exceeds MaxAttempts.
	FailedMessageHandler FailedMessageHandler `yaml:"-"`

	// BackoffBase is the initial backoff duration on the first handler failure.
	BackoffBase time.Duration `yaml:"backoffBase"`

	// BackoffCap bounds exponential backoff growth.
	BackoffCap time.Duration `yaml:"backoffCap"`

	// BackoffMultiplier is the exponential growth factor applied on
	// consecutive test-state failures.
	BackoffMultiplier float64 `yaml:"backoffMultiplier"`

	// DialTimeout bounds connecting to a broker node.
	DialTimeout time.Duration `yaml:"dialTimeout"`

	// LookupTimeout bounds a single discovery HTTP round trip (connect + read).
	LookupTimeout time.Duration `yaml:"lookupTimeout"`
}

// DefaultSubscriberConfig returns a SubscriberConfig with production
// defaults for discovery polling, flow control and backoff.
func DefaultSubscriberConfig() SubscriberConfig {
	return SubscriberConfig{
		LookupIntervalSecs:           60,
		MaxLookupFailuresBeforeError: 5,
		DefaultMaxInFlight:           200,
		MaxFlushDelayMillis:          2000,
		MaxAttempts:                  0,
		BackoffBase:                  1 * time.Second,
		BackoffCap:                   120 * time.Second,
		BackoffMultiplier:            2.0,
		DialTimeout:                  5 * time.Second,
		LookupTimeout:                30 * time.Second,
	}
}

// applyDefaults fills in zero-valued fields with production defaults.
func (c *SubscriberConfig) applyDefaults() {
	defaults := DefaultSubscriberConfig()

	if c.LookupIntervalSecs == 0 {
		c.LookupIntervalSecs = defaults.LookupIntervalSecs
	}
	if c.MaxLookupFailuresBeforeError == 0 {
		c.MaxLookupFailuresBeforeError = defaults.MaxLookupFailuresBeforeError
	}
	if c.DefaultMaxInFlight == 0 {
		c.DefaultMaxInFlight = defaults.DefaultMaxInFlight
	}
	if c.MaxFlushDelayMillis == 0 {
		c.MaxFlushDelayMillis = defaults.MaxFlushDelayMillis
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = defaults.BackoffBase
	}
	if c.BackoffCap == 0 {
		c.BackoffCap = defaults.BackoffCap
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = defaults.BackoffMultiplier
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaults.DialTimeout
	}
	if c.LookupTimeout == 0 {
		c.LookupTimeout = defaults.LookupTimeout
	}
}

// Validate checks configuration constraints and returns ErrInvalidConfig
// wrapped with detail for the first violation found.
func (c *SubscriberConfig) Validate() error {
	if c.LookupIntervalSecs <= 0 {
		return fmt.Errorf("%w: LookupIntervalSecs must be > 0, got %d", ErrInvalidConfig, c.LookupIntervalSecs)
	}
	if c.MaxLookupFailuresBeforeError <= 0 {
		return fmt.Errorf("%w: MaxLookupFailuresBeforeError must be > 0, got %d", ErrInvalidConfig, c.MaxLookupFailuresBeforeError)
	}
	if c.DefaultMaxInFlight < 0 {
		return fmt.Errorf("%w: DefaultMaxInFlight must be >= 0, got %d", ErrInvalidConfig, c.DefaultMaxInFlight)
	}
	if c.BackoffMultiplier < 1.0 {
		return fmt.Errorf("%w: BackoffMultiplier must be >= 1.0, got %v", ErrInvalidConfig, c.BackoffMultiplier)
	}
	if c.BackoffCap < c.BackoffBase {
		return fmt.Errorf("%w: BackoffCap (%v) must be >= BackoffBase (%v)", ErrInvalidConfig, c.BackoffCap, c.BackoffBase)
	}
	return nil
}

// TestSubscriberConfig returns a configuration tuned for fast test
// execution: sub-second backoff and lookup intervals instead of the
// production defaults.
func TestSubscriberConfig() SubscriberConfig {
	cfg := DefaultSubscriberConfig()
	cfg.LookupIntervalSecs = 1
	cfg.BackoffBase = 20 * time.Millisecond
	cfg.BackoffCap = 200 * time.Millisecond
	cfg.DialTimeout = time.Second
	cfg.LookupTimeout = time.Second
	return cfg
}

// LoadSubscriberConfig reads a YAML file at path into a SubscriberConfig,
// applying production defaults to any field the file leaves zero-valued
// and validating the result.
func LoadSubscriberConfig(path string) (SubscriberConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SubscriberConfig{}, fmt.Errorf("nsq: failed to read subscriber config file: %w", err)
	}

	var cfg SubscriberConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return SubscriberConfig{}, fmt.Errorf("nsq: failed to parse subscriber config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return SubscriberConfig{}, fmt.Errorf("nsq: invalid subscriber config file: %w", err)
	}
	return cfg, nil
}

// PublisherConfig controls balancing and atomicity policy for a Publisher.
type PublisherConfig struct {
	// Atomic, if true, means batch publishes never fall back to
	// per-message publishing on MPUB failure; failures propagate to the
	// caller as *types.Error(KindAtomicBatchPublishFailed).
	Atomic bool `yaml:"atomic"`

	// FailureBackoff is how long a broker node is skipped after a
	// publish failure, before the round-robin strategy considers it
	// healthy again.
	FailureBackoff time.Duration `yaml:"failureBackoff"`

	// DialTimeout bounds connecting to a broker node.
	DialTimeout time.Duration `yaml:"dialTimeout"`

	// ClientID is sent in the connection handshake's IDENTIFY payload.
	ClientID string `yaml:"clientId"`
}

// DefaultPublisherConfig returns a PublisherConfig with production defaults.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		Atomic:         false,
		FailureBackoff: 10 * time.Second,
		DialTimeout:    5 * time.Second,
		ClientID:       "nsq-j",
	}
}

// applyDefaults fills in zero-valued fields with production defaults.
func (c *PublisherConfig) applyDefaults() {
	defaults := DefaultPublisherConfig()
	if c.FailureBackoff == 0 {
		c.FailureBackoff = defaults.FailureBackoff
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaults.DialTimeout
	}
	if c.ClientID == "" {
		c.ClientID = defaults.ClientID
	}
}

// Validate checks configuration constraints.
func (c *PublisherConfig) Validate() error {
	if c.DialTimeout <= 0 {
		return fmt.Errorf("%w: DialTimeout must be > 0, got %v", ErrInvalidConfig, c.DialTimeout)
	}
	if c.FailureBackoff < 0 {
		return fmt.Errorf("%w: FailureBackoff must be >= 0, got %v", ErrInvalidConfig, c.FailureBackoff)
	}
	return nil
}

// TestPublisherConfig returns a configuration tuned for fast test execution.
func TestPublisherConfig() PublisherConfig {
	cfg := DefaultPublisherConfig()
	cfg.FailureBackoff = 50 * time.Millisecond
	cfg.DialTimeout = time.Second
	return cfg
}

// LoadPublisherConfig reads a YAML file at path into a PublisherConfig,
// applying production defaults to any field the file leaves zero-valued
// and validating the result.
func LoadPublisherConfig(path string) (PublisherConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PublisherConfig{}, fmt.Errorf("nsq: failed to read publisher config file: %w", err)
	}

	var cfg PublisherConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return PublisherConfig{}, fmt.Errorf("nsq: failed to parse publisher config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return PublisherConfig{}, fmt.Errorf("nsq: invalid publisher config file: %w", err)
	}
	return cfg, nil
}
