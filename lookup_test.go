package nsq

import (
	"net/http"
	"testing"
	"time"

	"github.com/jayshah1819/nsq-j/internal/logging"
	"github.com/jayshah1819/nsq-j/internal/metrics"
	"github.com/jayshah1819/nsq-j/internal/testbroker"
	"github.com/jayshah1819/nsq-j/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLookupClient(hosts []types.HostAndPort, maxFailures int) *lookupClient {
	return newLookupClient(hosts, &http.Client{}, time.Second, maxFailures, logging.NewNop(), metrics.NewNop())
}

func TestLookupClient_ReturnsRegisteredProducers(t *testing.T) {
	lookupd := testbroker.StartFakeLookupd(t)
	node := types.FromParts("10.0.0.1", 4150)
	lookupd.SetProducers("topic-a", []types.HostAndPort{node})

	lc := newTestLookupClient([]types.HostAndPort{lookupd.Addr()}, 5)
	nodes := lc.lookup("topic-a")

	require.Len(t, nodes, 1)
	assert.Equal(t, node, nodes[0])
}

func TestLookupClient_UnknownTopicReturnsEmpty(t *testing.T) {
	lookupd := testbroker.StartFakeLookupd(t)

	lc := newTestLookupClient([]types.HostAndPort{lookupd.Addr()}, 5)
	nodes := lc.lookup("nonexistent")

	assert.Empty(t, nodes)
}

// The legacy envelope ({"data":{"producers":[...]}}) must unwrap the same
// as the bare shape.
func TestLookupClient_UnwrapsLegacyEnvelope(t *testing.T) {
	lookupd := testbroker.StartFakeLookupd(t)
	lookupd.LegacyEnvelope = true
	node := types.FromParts("10.0.0.2", 4150)
	lookupd.SetProducers("topic-b", []types.HostAndPort{node})

	lc := newTestLookupClient([]types.HostAndPort{lookupd.Addr()}, 5)
	nodes := lc.lookup("topic-b")

	require.Len(t, nodes, 1)
	assert.Equal(t, node, nodes[0])
}

func TestLookupClient_DedupesAcrossHosts(t *testing.T) {
	lookupd1 := testbroker.StartFakeLookupd(t)
	lookupd2 := testbroker.StartFakeLookupd(t)
	node := types.FromParts("10.0.0.3", 4150)
	lookupd1.SetProducers("topic-c", []types.HostAndPort{node})
	lookupd2.SetProducers("topic-c", []types.HostAndPort{node})

	lc := newTestLookupClient([]types.HostAndPort{lookupd1.Addr(), lookupd2.Addr()}, 5)
	nodes := lc.lookup("topic-c")

	assert.Len(t, nodes, 1)
}

// A non-200 response is ignored: it must not increment the URL's failure
// counter, per the source library's exact (if asymmetric) behavior.
func TestLookupClient_NonOKResponseDoesNotCountAsFailure(t *testing.T) {
	lookupd := testbroker.StartFakeLookupd(t)
	lookupd.FailNext("topic-d", 1)

	lc := newTestLookupClient([]types.HostAndPort{lookupd.Addr()}, 2)

	nodes := lc.lookup("topic-d")
	assert.Empty(t, nodes)

	u := "http://" + lc.hosts[0].String() + "/lookup?topic=topic-d"
	lc.mu.Lock()
	_, recorded := lc.failures[u]
	lc.mu.Unlock()
	// no URL key should have been recorded at all for a non-200 response.
	assert.False(t, recorded)
}

// A transport failure (unreachable host) counts toward the per-URL
// consecutive failure total and clears once a lookup succeeds.
func TestLookupClient_TransportFailureCountsAndClears(t *testing.T) {
	dead := types.FromParts("127.0.0.1", 1) // nothing listens on port 1
	lookupd := testbroker.StartFakeLookupd(t)
	lookupd.SetProducers("topic-e", []types.HostAndPort{types.FromParts("10.0.0.4", 4150)})

	lc := newTestLookupClient([]types.HostAndPort{dead}, 3)
	lc.lookup("topic-e")
	lc.lookup("topic-e")

	u := "http://" + dead.String() + "/lookup?topic=topic-e"
	lc.mu.Lock()
	count := lc.failures[u]
	lc.mu.Unlock()
	assert.Equal(t, 2, count)

	// once a URL with recorded failures answers with a real producer list,
	// its failure counter clears.
	okURL := "http://" + lookupd.Addr().String() + "/lookup?topic=topic-e"
	lc.recordFailure(okURL, lookupd.Addr(), "topic-e", assert.AnError)
	lc.hosts = []types.HostAndPort{lookupd.Addr()}
	lc.lookup("topic-e")
	lc.mu.Lock()
	_, stillPresent := lc.failures[okURL]
	lc.mu.Unlock()
	assert.False(t, stillPresent)
}
