package nsq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/jayshah1819/nsq-j/types"
)

// lookupProducer is one entry in a discovery response's producer list.
type lookupProducer struct {
	BroadcastAddress string `json:"broadcast_address"`
	TCPPort          int    `json:"tcp_port"`
}

// lookupResponse decodes both the current discovery response shape and the
// legacy pre-1.0 envelope (`{status_code, data:{producers}}`), which some
// discovery deployments still return.
type lookupResponse struct {
	Producers []lookupProducer `json:"producers"`
	Data      *struct {
		Producers []lookupProducer `json:"producers"`
	} `json:"data"`
}

// producers returns the response's producer list, unwrapping the legacy
// envelope when present.
func (r lookupResponse) producers() []lookupProducer {
	if r.Data != nil {
		return r.Data.Producers
	}
	return r.Producers
}

// lookupClient polls a set of discovery hosts for the broker nodes hosting
// a topic, tracking a per-URL consecutive failure count that drives log
// escalation without ever stopping polling.
type lookupClient struct {
	hosts      []types.HostAndPort
	httpClient *http.Client
	timeout    time.Duration
	maxFailures int
	logger     types.Logger
	metrics    types.MetricsCollector

	mu       sync.Mutex
	failures map[string]int
}

func newLookupClient(hosts []types.HostAndPort, httpClient *http.Client, timeout time.Duration, maxFailures int, logger types.Logger, metrics types.MetricsCollector) *lookupClient {
	return &lookupClient{
		hosts:       hosts,
		httpClient:  httpClient,
		timeout:     timeout,
		maxFailures: maxFailures,
		logger:      logger,
		metrics:     metrics,
		failures:    make(map[string]int),
	}
}

// lookup queries every configured discovery host for topic and unions the
// producers they report into a deduplicated node set.
//
// Non-200 responses are logged at debug and skipped without incrementing
// the URL's failure counter -- this mirrors the source library's behavior
// exactly rather than "fixing" what may be an unintended asymmetry: transport
// and decode errors, unlike a non-200 status, do increment the counter.
func (l *lookupClient) lookup(topic string) []types.HostAndPort {
	seen := make(map[types.HostAndPort]struct{})
	var nodes []types.HostAndPort

	for _, host := range l.hosts {
		u := fmt.Sprintf("http://%s/lookup?topic=%s", host.String(), url.QueryEscape(topic))

		prods, err := l.fetch(u)
		if err != nil {
			l.recordFailure(u, host, topic, err)
			continue
		}
		if prods == nil {
			// non-200: ignored, not a failure.
			continue
		}

		l.recordSuccess(u)
		for _, p := range prods {
			addr := types.FromParts(p.BroadcastAddress, uint16(p.TCPPort))
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			nodes = append(nodes, addr)
		}
	}

	return nodes
}

// fetch performs one discovery HTTP round trip. A nil, nil return means a
// non-200 response (ignored, not a failure); a non-nil error means a
// transport or decode failure (counted toward the URL's failure total).
func (l *lookupClient) fetch(u string) ([]lookupProducer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		l.logger.Debug("ignoring lookup response", "status", resp.StatusCode, "url", u)
		return nil, nil
	}

	var parsed lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return parsed.producers(), nil
}

func (l *lookupClient) recordFailure(u string, host types.HostAndPort, topic string, cause error) {
	l.mu.Lock()
	l.failures[u]++
	count := l.failures[u]
	l.mu.Unlock()

	if l.metrics != nil {
		l.metrics.RecordLookupFailure(u, count)
	}

	if count >= l.maxFailures {
		l.logger.Error("lookup failure", "consecutiveFailures", count, "lookupHost", host.String(), "topic", topic, "error", cause)
	} else {
		l.logger.Warn("lookup failure", "consecutiveFailures", count, "lookupHost", host.String(), "topic", topic, "error", cause)
	}
}

func (l *lookupClient) recordSuccess(u string) {
	l.mu.Lock()
	delete(l.failures, u)
	l.mu.Unlock()
}
