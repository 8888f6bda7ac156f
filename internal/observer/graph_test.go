package observer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmitDispatchesInSubscriptionOrder(t *testing.T) {
	g := New()

	var order []int
	g.On("asset", "balance", func(any) { order = append(order, 1) })
	g.On("asset", "balance", func(any) { order = append(order, 2) })
	g.On("asset", "balance", func(any) { order = append(order, 3) })

	g.Emit("asset", "balance", nil)
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestEmitOnlyMatchingTopicAndEvent(t *testing.T) {
	g := New()

	calls := 0
	g.On("btc", "balance", func(any) { calls++ })
	g.On("btc", "transaction", func(any) { calls++ })
	g.On("ltc", "balance", func(any) { calls++ })

	g.Emit("btc", "balance", nil)
	require.Equal(t, 1, calls)
}

func TestPayloadDelivered(t *testing.T) {
	g := New()

	var got any
	g.On("market", "orders:change", func(p any) { got = p })
	g.Emit("market", "orders:change", []string{"LTC", "BTC"})
	require.Equal(t, []string{"LTC", "BTC"}, got)
}

func TestOffStopsDelivery(t *testing.T) {
	g := New()

	calls := 0
	id := g.On("asset", "balance", func(any) { calls++ })
	g.Emit("asset", "balance", nil)
	g.Off(id)
	g.Emit("asset", "balance", nil)
	require.Equal(t, 1, calls)
}

func TestOffDuringEmissionSuppressesPendingDispatch(t *testing.T) {
	g := New()

	var second Subscription
	secondCalls := 0
	g.On("asset", "balance", func(any) { g.Off(second) })
	second = g.On("asset", "balance", func(any) { secondCalls++ })

	g.Emit("asset", "balance", nil)
	require.Equal(t, 0, secondCalls, "listener revoked mid-emission must not fire")
}

func TestSubscribeDuringEmissionFiresNextPassOnly(t *testing.T) {
	g := New()

	lateCalls := 0
	g.On("asset", "balance", func(any) {
		if lateCalls == 0 {
			g.On("asset", "balance", func(any) { lateCalls++ })
		}
	})

	g.Emit("asset", "balance", nil)
	require.Equal(t, 0, lateCalls)

	g.Emit("asset", "balance", nil)
	require.Equal(t, 1, lateCalls)
}

func TestEmitExceptSkipsNamedListeners(t *testing.T) {
	g := New()

	reconcilerCalls, viewCalls := 0, 0
	reconciler := g.On("draft", "change:total", func(any) { reconcilerCalls++ })
	g.On("draft", "change:total", func(any) { viewCalls++ })

	g.EmitExcept("draft", "change:total", nil, reconciler)
	require.Equal(t, 0, reconcilerCalls)
	require.Equal(t, 1, viewCalls)

	g.Emit("draft", "change:total", nil)
	require.Equal(t, 1, reconcilerCalls)
	require.Equal(t, 2, viewCalls)
}
