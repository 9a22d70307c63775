package subscription

import (
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/jayshah1819/nsq-j/types"
)

// BackoffState is one of the three states in a subscription's backoff
// state machine.
type BackoffState int

const (
	// StateNormal is the default state: RDY is distributed normally.
	StateNormal BackoffState = iota
	// StateBackoff sets RDY to 0 on every connection while a computed
	// duration elapses.
	StateBackoff
	// StateTest sets RDY to 1 on exactly one connection to probe recovery.
	StateTest
)

// String renders the state's name, used for metric labels and logging.
func (s BackoffState) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateBackoff:
		return "backoff"
	case StateTest:
		return "test"
	default:
		return "unknown"
	}
}

// jitterBackoff implements Full Jitter exponential backoff with a cap.
// Given the previous delay, it computes the next one as a random value in
// [base, prev*mult), never exceeding capDur.
func jitterBackoff(prev, base time.Duration, mult float64, capDur time.Duration, rng *rand.Rand) time.Duration {
	if base <= 0 {
		base = DefaultBackoffBase
	}
	if mult < 1.0 {
		mult = 1.0
	}
	if capDur > 0 && capDur < base {
		return capDur
	}

	if prev <= 0 {
		return base
	}

	maxDuration := time.Duration(float64(prev)*mult) - base
	if maxDuration <= 0 {
		maxDuration = base
	}

	var jitter int64
	if rng != nil {
		jitter = rng.Int64N(int64(maxDuration))
	} else {
		jitter = rand.Int64N(int64(maxDuration)) //nolint:gosec // non-crypto backoff jitter
	}

	next := base + time.Duration(jitter)
	if capDur > 0 && next > capDur {
		return capDur
	}
	return next
}

// BackoffController owns one subscription's backoff state machine. It is
// driven by OnFailure/OnSuccess calls from the message dispatch path and
// notifies onStateChange whenever the state transitions, so the owning
// Subscription can re-run RDY distribution without the controller knowing
// about connections at all.
type BackoffController struct {
	base, cap time.Duration
	mult      float64
	rng       *rand.Rand

	mc      types.MetricsCollector
	topic   string
	channel string

	onStateChange func(BackoffState)

	mu      sync.Mutex
	state   BackoffState
	current time.Duration
	timer   *time.Timer
}

// NewBackoffController builds a controller with the given tuning
// parameters. onStateChange is called synchronously under the controller's
// lock's release boundary (never while the lock is held), so it is safe
// for it to call back into the controller.
func NewBackoffController(base, capDur time.Duration, mult float64, mc types.MetricsCollector, topic, channel string, onStateChange func(BackoffState)) *BackoffController {
	if base <= 0 {
		base = DefaultBackoffBase
	}
	if capDur <= 0 {
		capDur = DefaultBackoffCap
	}
	if mult < 1.0 {
		mult = DefaultBackoffMultiplier
	}
	return &BackoffController{
		base:          base,
		cap:           capDur,
		mult:          mult,
		mc:            mc,
		topic:         topic,
		channel:       channel,
		onStateChange: onStateChange,
		state:         StateNormal,
	}
}

// State returns the current backoff state.
func (b *BackoffController) State() BackoffState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// OnFailure records a handler failure. From Normal or Test it transitions
// to Backoff, computing the next delay (the previous delay times the
// multiplier, capped, on a Test failure; starting fresh from the base delay
// from Normal), and schedules the automatic transition to
// Test once that delay elapses.
func (b *BackoffController) OnFailure() {
	b.mu.Lock()
	wasTest := b.state == StateTest
	if wasTest {
		b.current = time.Duration(float64(b.current) * b.mult)
		if b.current > b.cap {
			b.current = b.cap
		}
	} else {
		b.current = jitterBackoff(0, b.base, b.mult, b.cap, b.rng)
	}
	b.state = StateBackoff
	delay := b.current
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(delay, b.enterTest)
	b.mu.Unlock()

	b.emitTransition(StateBackoff)
}

// OnSuccess records a handler success. Only meaningful in Test state, where
// it resets the machine to Normal and clears the accumulated delay; a
// success in Normal state is a no-op.
func (b *BackoffController) OnSuccess() {
	b.mu.Lock()
	if b.state != StateTest {
		b.mu.Unlock()
		return
	}
	b.state = StateNormal
	b.current = 0
	b.mu.Unlock()

	b.emitTransition(StateNormal)
}

func (b *BackoffController) enterTest() {
	b.mu.Lock()
	if b.state != StateBackoff {
		b.mu.Unlock()
		return
	}
	b.state = StateTest
	b.mu.Unlock()

	b.emitTransition(StateTest)
}

func (b *BackoffController) emitTransition(state BackoffState) {
	if b.mc != nil {
		b.mc.RecordBackoffTransition(b.topic, b.channel, state.String())
	}
	if b.onStateChange != nil {
		b.onStateChange(state)
	}
}

// Stop cancels any pending scheduled transition. Called when the owning
// Subscription is destroyed.
func (b *BackoffController) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
}
