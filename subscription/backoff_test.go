package subscription

import (
	"testing"
	"time"

	rand "math/rand/v2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJitterBackoff_BasicBoundsAndCap(t *testing.T) {
	base := 200 * time.Millisecond
	mult := 1.6
	capDur := 500 * time.Millisecond
	rng := rand.New(rand.NewPCG(42, 42^0x9e3779b97f4a7c15))

	prev := time.Duration(0)
	for i := 0; i < 10; i++ {
		next := jitterBackoff(prev, base, mult, capDur, rng)
		require.GreaterOrEqual(t, next, minDuration(base, capDur))
		require.LessOrEqual(t, next, capDur)
		prev = next
	}
}

func TestJitterBackoff_CapLessThanBase(t *testing.T) {
	base := 200 * time.Millisecond
	capDur := 100 * time.Millisecond
	mult := 1.6

	next0 := jitterBackoff(0, base, mult, capDur, nil)
	require.Equal(t, capDur, next0)
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func TestBackoffController_FailureThenTestThenSuccess(t *testing.T) {
	var states []BackoffState
	bc := NewBackoffController(20*time.Millisecond, time.Second, 2.0, nil, "t", "c", func(s BackoffState) {
		states = append(states, s)
	})

	assert.Equal(t, StateNormal, bc.State())

	bc.OnFailure()
	assert.Equal(t, StateBackoff, bc.State())

	require.Eventually(t, func() bool {
		return bc.State() == StateTest
	}, time.Second, 5*time.Millisecond)

	bc.OnSuccess()
	assert.Equal(t, StateNormal, bc.State())
	assert.Contains(t, states, StateBackoff)
	assert.Contains(t, states, StateTest)
	assert.Contains(t, states, StateNormal)
}

func TestBackoffController_FailureDuringTestDoublesDelay(t *testing.T) {
	bc := NewBackoffController(20*time.Millisecond, time.Second, 2.0, nil, "t", "c", nil)

	bc.OnFailure()
	first := bc.current

	require.Eventually(t, func() bool { return bc.State() == StateTest }, time.Second, 5*time.Millisecond)

	bc.OnFailure()
	second := bc.current
	assert.Greater(t, second, first)
	assert.Equal(t, StateBackoff, bc.State())
}

func TestBackoffController_SuccessInNormalIsNoop(t *testing.T) {
	var transitions int
	bc := NewBackoffController(20*time.Millisecond, time.Second, 2.0, nil, "t", "c", func(BackoffState) {
		transitions++
	})
	bc.OnSuccess()
	assert.Equal(t, StateNormal, bc.State())
	assert.Zero(t, transitions)
}
