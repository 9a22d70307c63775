package subscription

import (
	"sort"

	"github.com/jayshah1819/nsq-j/types"
	"github.com/zeebo/xxh3"
)

// DistributeRDY computes the RDY value each connection in addrs should be
// set to for a subscription with the given maxInFlight, following these
// flow-control rules:
//
//   - maxInFlight == 0: every connection gets 0 (drain state).
//   - maxInFlight < len(addrs): exactly maxInFlight connections get RDY=1,
//     the rest get 0. Which connections get the credit rotates on each
//     call (via rotation) so no connection starves permanently.
//   - otherwise: every connection gets floor(maxInFlight/k), and
//     the first maxInFlight%k connections on the ring get one extra; this
//     subset is stable and does not depend on rotation.
//
// Connections are first ordered by an xxh3 hash of their address, giving a
// stable ring independent of map iteration order; the rotation offset
// applies to that ring. This mirrors the deterministic-ring technique
// balance.RoundRobinFailover uses for node selection.
func DistributeRDY(addrs []types.HostAndPort, maxInFlight int, rotation uint64) map[types.HostAndPort]int {
	result := make(map[types.HostAndPort]int, len(addrs))
	k := len(addrs)
	if k == 0 {
		return result
	}

	ring := append([]types.HostAndPort(nil), addrs...)
	sort.Slice(ring, func(i, j int) bool {
		return xxh3.HashString(ring[i].String()) < xxh3.HashString(ring[j].String())
	})

	for _, addr := range ring {
		result[addr] = 0
	}

	if maxInFlight <= 0 {
		return result
	}

	start := int(rotation % uint64(k))

	if maxInFlight < k {
		for i := 0; i < maxInFlight; i++ {
			idx := (start + i) % k
			result[ring[idx]] = 1
		}
		return result
	}

	base := maxInFlight / k
	remainder := maxInFlight % k
	for _, addr := range ring {
		result[addr] = base
	}
	for i := 0; i < remainder; i++ {
		result[ring[i]]++
	}
	return result
}
