package nsq_test

import (
	"sync"
	"testing"
	"time"

	nsq "github.com/jayshah1819/nsq-j"
	"github.com/jayshah1819/nsq-j/internal/testbroker"
	"github.com/jayshah1819/nsq-j/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSubscriber(t *testing.T, lookupd *testbroker.FakeLookupd) *nsq.Subscriber {
	t.Helper()
	sub, err := nsq.NewSubscriber(nsq.NewClient(), []types.HostAndPort{lookupd.Addr()}, nsq.TestSubscriberConfig())
	require.NoError(t, err)
	t.Cleanup(sub.Stop)
	return sub
}

// Subscribing reconciles immediately against the current discovery state:
// one registered producer means one open connection without waiting for a
// poll tick.
func TestSubscriber_SubscribeReconcilesImmediately(t *testing.T) {
	broker := testbroker.StartFakeBroker(t)
	lookupd := testbroker.StartFakeLookupd(t)
	lookupd.SetProducers("orders", []types.HostAndPort{broker.Addr()})

	sub := newTestSubscriber(t, lookupd)

	var mu sync.Mutex
	var seen [][]byte
	_, err := sub.Subscribe("orders", "worker", nsq.MessageHandlerFunc(func(msg *nsq.Message) error {
		mu.Lock()
		seen = append(seen, msg.Body)
		mu.Unlock()
		return nil
	}))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sub.GetConnectionCount() == 1 }, oneSecond, tick)
}

// Discovery polling reconciles the connection set as producers come and go.
func TestSubscriber_PollingAddsAndRemovesConnections(t *testing.T) {
	brokerA := testbroker.StartFakeBroker(t)
	brokerB := testbroker.StartFakeBroker(t)
	lookupd := testbroker.StartFakeLookupd(t)
	lookupd.SetProducers("events", []types.HostAndPort{brokerA.Addr()})

	sub := newTestSubscriber(t, lookupd)
	_, err := sub.Subscribe("events", "worker", nsq.MessageHandlerFunc(func(msg *nsq.Message) error {
		return nil
	}))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sub.GetConnectionCount() == 1 }, oneSecond, tick)

	lookupd.SetProducers("events", []types.HostAndPort{brokerA.Addr(), brokerB.Addr()})
	require.Eventually(t, func() bool { return sub.GetConnectionCount() == 2 }, 2*time.Second, tick)

	lookupd.SetProducers("events", []types.HostAndPort{brokerB.Addr()})
	require.Eventually(t, func() bool { return sub.GetConnectionCount() == 1 }, 2*time.Second, tick)
}

// A delivered message reaches the handler and FIN clears the in-flight
// count back to zero.
func TestSubscriber_DeliversMessageToHandler(t *testing.T) {
	broker := testbroker.StartFakeBroker(t)
	lookupd := testbroker.StartFakeLookupd(t)
	lookupd.SetProducers("orders", []types.HostAndPort{broker.Addr()})

	sub := newTestSubscriber(t, lookupd)

	received := make(chan []byte, 1)
	_, err := sub.Subscribe("orders", "worker", nsq.MessageHandlerFunc(func(msg *nsq.Message) error {
		received <- msg.Body
		return nil
	}))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sub.GetConnectionCount() == 1 }, oneSecond, tick)
	require.Eventually(t, func() bool { return broker.RDYOf("orders", "worker") > 0 }, oneSecond, tick)

	require.True(t, broker.Deliver("orders", "worker", "msg-1", 1, []byte("payload")))

	select {
	case body := <-received:
		assert.Equal(t, "payload", string(body))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message delivery")
	}

	assert.Eventually(t, func() bool { return sub.GetCurrentInFlightCount() == 0 }, oneSecond, tick)
}

// DrainInFlight plus AwaitNoMessagesInFlight returns true once the
// in-flight count reaches zero.
func TestSubscriber_DrainThenAwaitReturnsTrue(t *testing.T) {
	broker := testbroker.StartFakeBroker(t)
	lookupd := testbroker.StartFakeLookupd(t)
	lookupd.SetProducers("orders", []types.HostAndPort{broker.Addr()})

	sub := newTestSubscriber(t, lookupd)
	_, err := sub.Subscribe("orders", "worker", nsq.MessageHandlerFunc(func(msg *nsq.Message) error {
		return nil
	}))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sub.GetConnectionCount() == 1 }, oneSecond, tick)

	sub.DrainInFlight()
	assert.True(t, sub.AwaitNoMessagesInFlight(time.Second))
}

// AwaitNoMessagesInFlight gives up and returns false once its timeout
// elapses while a message is still in flight.
func TestSubscriber_AwaitNoMessagesInFlightTimesOut(t *testing.T) {
	broker := testbroker.StartFakeBroker(t)
	lookupd := testbroker.StartFakeLookupd(t)
	lookupd.SetProducers("orders", []types.HostAndPort{broker.Addr()})

	sub := newTestSubscriber(t, lookupd)
	block := make(chan struct{})
	_, err := sub.Subscribe("orders", "worker", nsq.MessageHandlerFunc(func(msg *nsq.Message) error {
		<-block
		return nil
	}))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sub.GetConnectionCount() == 1 }, oneSecond, tick)
	require.Eventually(t, func() bool { return broker.RDYOf("orders", "worker") > 0 }, oneSecond, tick)
	require.True(t, broker.Deliver("orders", "worker", "msg-1", 1, []byte("x")))

	require.Eventually(t, func() bool { return sub.GetCurrentInFlightCount() == 1 }, oneSecond, tick)

	assert.False(t, sub.AwaitNoMessagesInFlight(100*time.Millisecond))
	close(block)
}

// Unsubscribe removes the subscription and closes its connections, taking
// the total connection count back to zero.
func TestSubscriber_UnsubscribeClosesConnections(t *testing.T) {
	broker := testbroker.StartFakeBroker(t)
	lookupd := testbroker.StartFakeLookupd(t)
	lookupd.SetProducers("orders", []types.HostAndPort{broker.Addr()})

	sub := newTestSubscriber(t, lookupd)
	id, err := sub.Subscribe("orders", "worker", nsq.MessageHandlerFunc(func(msg *nsq.Message) error {
		return nil
	}))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sub.GetConnectionCount() == 1 }, oneSecond, tick)

	assert.True(t, sub.Unsubscribe(id))
	assert.False(t, sub.Unsubscribe(id))
	assert.Eventually(t, func() bool { return sub.GetConnectionCount() == 0 }, oneSecond, tick)
}

func TestSubscriber_SubscribeRejectsMissingTopicOrChannel(t *testing.T) {
	lookupd := testbroker.StartFakeLookupd(t)
	sub := newTestSubscriber(t, lookupd)

	_, err := sub.Subscribe("", "worker", nsq.MessageHandlerFunc(func(*nsq.Message) error { return nil }))
	assert.ErrorIs(t, err, nsq.ErrTopicRequired)

	_, err = sub.Subscribe("orders", "", nsq.MessageHandlerFunc(func(*nsq.Message) error { return nil }))
	assert.ErrorIs(t, err, nsq.ErrChannelRequired)

	_, err = sub.Subscribe("orders", "worker", nil)
	assert.ErrorIs(t, err, nsq.ErrHandlerRequired)
}

func TestNewSubscriber_RejectsEmptyLookupHosts(t *testing.T) {
	_, err := nsq.NewSubscriber(nsq.NewClient(), nil, nsq.TestSubscriberConfig())
	assert.ErrorIs(t, err, nsq.ErrNoLookupHosts)
}
