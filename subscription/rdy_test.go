package subscription

import (
	"testing"

	"github.com/jayshah1819/nsq-j/types"
	"github.com/stretchr/testify/assert"
)

func addrs(n int) []types.HostAndPort {
	out := make([]types.HostAndPort, n)
	for i := range out {
		out[i] = types.FromParts("nsqd", uint16(4150+i))
	}
	return out
}

func TestDistributeRDY_Drain(t *testing.T) {
	got := DistributeRDY(addrs(3), 0, 0)
	for _, n := range got {
		assert.Equal(t, 0, n)
	}
}

func TestDistributeRDY_FewerConnectionsThanMaxInFlight(t *testing.T) {
	got := DistributeRDY(addrs(4), 10, 0)
	sum := 0
	for _, n := range got {
		sum += n
	}
	assert.Equal(t, 10, sum)
	// base is 10/4 = 2, remainder 2 connections get 3
	counts := map[int]int{}
	for _, n := range got {
		counts[n]++
	}
	assert.Equal(t, 2, counts[3])
	assert.Equal(t, 2, counts[2])
}

func TestDistributeRDY_MoreConnectionsThanMaxInFlight(t *testing.T) {
	got := DistributeRDY(addrs(5), 2, 0)
	sum := 0
	ones := 0
	for _, n := range got {
		sum += n
		if n == 1 {
			ones++
		}
	}
	assert.Equal(t, 2, sum)
	assert.Equal(t, 2, ones)
}

func TestDistributeRDY_RotationChangesSubset(t *testing.T) {
	a := DistributeRDY(addrs(5), 2, 0)
	b := DistributeRDY(addrs(5), 2, 1)
	assert.NotEqual(t, a, b)
}

func TestDistributeRDY_NoConnections(t *testing.T) {
	got := DistributeRDY(nil, 5, 0)
	assert.Empty(t, got)
}

func TestDistributeRDY_ExactMatch(t *testing.T) {
	got := DistributeRDY(addrs(3), 3, 0)
	for _, n := range got {
		assert.Equal(t, 1, n)
	}
}
