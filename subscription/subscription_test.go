package subscription_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jayshah1819/nsq-j/internal/testbroker"
	"github.com/jayshah1819/nsq-j/subscription"
	"github.com/jayshah1819/nsq-j/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscription_ReconcileOpensAndClosesConnections(t *testing.T) {
	brokerA := testbroker.StartFakeBroker(t)
	brokerB := testbroker.StartFakeBroker(t)

	sub := subscription.New(types.NextSubscriptionID(), "orders", "default",
		types.MessageHandlerFunc(func(*types.Message) error { return nil }),
		10, subscription.Config{DialTimeout: time.Second})
	defer sub.Close()

	sub.Reconcile([]types.HostAndPort{brokerA.Addr(), brokerB.Addr()})
	assert.Equal(t, 2, sub.ConnectionCount())

	sub.Reconcile([]types.HostAndPort{brokerA.Addr()})
	assert.Equal(t, 1, sub.ConnectionCount())
}

func TestSubscription_DeliversAndFinishesMessage(t *testing.T) {
	broker := testbroker.StartFakeBroker(t)

	var handled atomic.Int64
	sub := subscription.New(types.NextSubscriptionID(), "orders", "default",
		types.MessageHandlerFunc(func(msg *types.Message) error {
			handled.Add(1)
			return nil
		}),
		10, subscription.Config{DialTimeout: time.Second})
	defer sub.Close()

	sub.Reconcile([]types.HostAndPort{broker.Addr()})
	require.Eventually(t, func() bool {
		return broker.RDYOf("orders", "default") == 10
	}, time.Second, 5*time.Millisecond)

	require.True(t, broker.Deliver("orders", "default", types.MessageID("m-1"), 1, []byte("payload")))

	require.Eventually(t, func() bool { return handled.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return sub.InFlightCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSubscription_DrainSetsRDYToZero(t *testing.T) {
	broker := testbroker.StartFakeBroker(t)

	sub := subscription.New(types.NextSubscriptionID(), "orders", "default",
		types.MessageHandlerFunc(func(*types.Message) error { return nil }),
		10, subscription.Config{DialTimeout: time.Second})
	defer sub.Close()

	sub.Reconcile([]types.HostAndPort{broker.Addr()})
	require.Eventually(t, func() bool {
		return broker.RDYOf("orders", "default") == 10
	}, time.Second, 5*time.Millisecond)

	sub.SetMaxInFlight(0)
	require.Eventually(t, func() bool {
		return broker.RDYOf("orders", "default") == 0
	}, time.Second, 5*time.Millisecond)
}

func TestSubscription_HandlerFailureTriggersBackoff(t *testing.T) {
	broker := testbroker.StartFakeBroker(t)

	sub := subscription.New(types.NextSubscriptionID(), "orders", "default",
		types.MessageHandlerFunc(func(*types.Message) error { return assertError{} }),
		10, subscription.Config{
			DialTimeout: time.Second,
			BackoffBase: 20 * time.Millisecond,
			BackoffCap:  200 * time.Millisecond,
		})
	defer sub.Close()

	sub.Reconcile([]types.HostAndPort{broker.Addr()})
	require.Eventually(t, func() bool {
		return broker.RDYOf("orders", "default") == 10
	}, time.Second, 5*time.Millisecond)

	require.True(t, broker.Deliver("orders", "default", types.MessageID("m-2"), 1, []byte("payload")))

	require.Eventually(t, func() bool {
		return broker.RDYOf("orders", "default") == 0
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return broker.RDYOf("orders", "default") == 1
	}, time.Second, 5*time.Millisecond)
}

type assertError struct{}

func (assertError) Error() string { return "handler failed" }
