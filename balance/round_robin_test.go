package balance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRobinFailover_GetInstance(t *testing.T) {
	t.Run("returns error for empty node set", func(t *testing.T) {
		strategy := NewRoundRobinFailover(nil, 0)
		_, err := strategy.GetInstance()
		require.ErrorIs(t, err, ErrNoNodesAvailable)
	})

	t.Run("rotates across healthy nodes", func(t *testing.T) {
		instances := []*Instance{newTestInstance("nsqd-0"), newTestInstance("nsqd-1"), newTestInstance("nsqd-2")}
		strategy := NewRoundRobinFailover(instances, 10*time.Second)

		seen := make(map[string]bool)
		for i := 0; i < len(instances)*3; i++ {
			inst, err := strategy.GetInstance()
			require.NoError(t, err)
			seen[inst.Addr().String()] = true
		}
		assert.Len(t, seen, 3)
	})

	t.Run("skips a node within its failure backoff", func(t *testing.T) {
		instances := []*Instance{newTestInstance("nsqd-0"), newTestInstance("nsqd-1")}
		strategy := NewRoundRobinFailover(instances, 10*time.Second)

		var failed *Instance
		for _, inst := range strategy.Instances() {
			failed = inst
			break
		}
		failed.MarkFailure(time.Now())

		for i := 0; i < 10; i++ {
			inst, err := strategy.GetInstance()
			require.NoError(t, err)
			assert.NotEqual(t, failed.Addr(), inst.Addr())
		}
	})

	t.Run("falls back to least-recently-failed when all unhealthy", func(t *testing.T) {
		instances := []*Instance{newTestInstance("nsqd-0"), newTestInstance("nsqd-1")}
		strategy := NewRoundRobinFailover(instances, 10*time.Second)

		older := strategy.Instances()[0]
		newer := strategy.Instances()[1]
		older.MarkFailure(time.Now().Add(-5 * time.Second))
		newer.MarkFailure(time.Now())

		inst, err := strategy.GetInstance()
		require.NoError(t, err)
		assert.Equal(t, older.Addr(), inst.Addr())
	})

	t.Run("ring order is stable regardless of input order", func(t *testing.T) {
		a := newTestInstance("nsqd-0")
		b := newTestInstance("nsqd-1")
		s1 := NewRoundRobinFailover([]*Instance{a, b}, 0)
		s2 := NewRoundRobinFailover([]*Instance{b, a}, 0)

		addrs1 := make([]string, 0, 2)
		for _, inst := range s1.Instances() {
			addrs1 = append(addrs1, inst.Addr().String())
		}
		addrs2 := make([]string, 0, 2)
		for _, inst := range s2.Instances() {
			addrs2 = append(addrs2, inst.Addr().String())
		}
		assert.Equal(t, addrs1, addrs2)
	})
}
