package testbroker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jayshah1819/nsq-j/types"
)

// FakeLookupd is an in-process stand-in for nsqlookupd's /lookup endpoint.
// Tests register producers per topic with SetProducers; requests for an
// unregistered topic get an empty producer list, matching a real
// nsqlookupd's response for a topic with no active producers.
type FakeLookupd struct {
	srv *httptest.Server

	mu        sync.Mutex
	producers map[string][]types.HostAndPort
	failNext  map[string]int

	// LegacyEnvelope wraps responses in the deprecated
	// {"status_code":200,"status_txt":"OK","data":{"producers":[...]}}
	// shape instead of the bare {"producers":[...]} shape, for testing the
	// legacy-envelope unwrap path.
	LegacyEnvelope bool
}

type lookupProducer struct {
	BroadcastAddress string `json:"broadcast_address"`
	TCPPort          int    `json:"tcp_port"`
}

type lookupResponse struct {
	Producers []lookupProducer `json:"producers"`
}

type legacyLookupResponse struct {
	StatusCode int            `json:"status_code"`
	StatusTxt  string         `json:"status_txt"`
	Data       lookupResponse `json:"data"`
}

// StartFakeLookupd starts an httptest server implementing /lookup. It is
// closed automatically when the test completes.
func StartFakeLookupd(t *testing.T) *FakeLookupd {
	t.Helper()

	l := &FakeLookupd{
		producers: make(map[string][]types.HostAndPort),
		failNext:  make(map[string]int),
	}
	l.srv = httptest.NewServer(http.HandlerFunc(l.handleLookup))
	t.Cleanup(l.srv.Close)

	return l
}

// Addr returns the discovery service address, suitable for
// types.ParseHostAndPort or direct use as a lookup URL host.
func (l *FakeLookupd) Addr() types.HostAndPort {
	hp, _ := types.ParseHostAndPort(l.srv.Listener.Addr().String(), 4161)
	return hp
}

// URL returns the base HTTP URL of the fake discovery service.
func (l *FakeLookupd) URL() string {
	return l.srv.URL
}

// SetProducers registers the broker nodes returned for topic.
func (l *FakeLookupd) SetProducers(topic string, nodes []types.HostAndPort) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.producers[topic] = nodes
}

// FailNext makes the next n lookups for topic return 500, simulating a
// transient discovery outage.
func (l *FakeLookupd) FailNext(topic string, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNext[topic] = n
}

func (l *FakeLookupd) handleLookup(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")

	l.mu.Lock()
	if n := l.failNext[topic]; n > 0 {
		l.failNext[topic] = n - 1
		l.mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	nodes := l.producers[topic]
	legacy := l.LegacyEnvelope
	l.mu.Unlock()

	producers := make([]lookupProducer, 0, len(nodes))
	for _, n := range nodes {
		producers = append(producers, lookupProducer{BroadcastAddress: n.Host, TCPPort: int(n.Port)})
	}

	w.Header().Set("Content-Type", "application/json")
	if legacy {
		json.NewEncoder(w).Encode(legacyLookupResponse{
			StatusCode: 200,
			StatusTxt:  "OK",
			Data:       lookupResponse{Producers: producers},
		})
		return
	}
	json.NewEncoder(w).Encode(lookupResponse{Producers: producers})
}
