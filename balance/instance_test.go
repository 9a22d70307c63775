package balance

import (
	"testing"
	"time"

	"github.com/jayshah1819/nsq-j/internal/logging"
	"github.com/jayshah1819/nsq-j/types"
	"github.com/stretchr/testify/assert"
)

func newTestInstance(host string) *Instance {
	return NewInstance(types.FromParts(host, 4150), time.Second, "test-client", logging.NewNop())
}

func TestInstance_MarkFailure(t *testing.T) {
	t.Run("healthy before any failure", func(t *testing.T) {
		inst := newTestInstance("nsqd-0")
		assert.True(t, inst.IsHealthy(time.Now(), 10*time.Second))
	})

	t.Run("unhealthy immediately after failure", func(t *testing.T) {
		inst := newTestInstance("nsqd-0")
		now := time.Now()
		inst.MarkFailure(now)
		assert.False(t, inst.IsHealthy(now, 10*time.Second))
	})

	t.Run("healthy again once backoff elapses", func(t *testing.T) {
		inst := newTestInstance("nsqd-0")
		now := time.Now()
		inst.MarkFailure(now)
		assert.True(t, inst.IsHealthy(now.Add(11*time.Second), 10*time.Second))
	})

	t.Run("idempotent within the failure window", func(t *testing.T) {
		inst := newTestInstance("nsqd-0")
		now := time.Now()
		inst.MarkFailure(now)
		inst.MarkFailure(now.Add(100 * time.Millisecond))
		assert.Equal(t, now, inst.LastFailureAt())
	})

	t.Run("advances again outside the failure window", func(t *testing.T) {
		inst := newTestInstance("nsqd-0")
		first := time.Now()
		inst.MarkFailure(first)
		second := first.Add(2 * time.Second)
		inst.MarkFailure(second)
		assert.Equal(t, second, inst.LastFailureAt())
	})
}
