package service

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/artisan-storefront/internal/core/domain"
)

func product(id string, price int64) domain.Product {
	return domain.Product{ID: id, Name: "Item " + id, Price: price, Image: "/" + id + ".jpg", Artisan: "Priya"}
}

func assertTotals(t *testing.T, cart *CartService, items int, price int64) {
	t.Helper()
	gotItems, gotPrice := cart.Totals()
	assert.Equal(t, items, gotItems, "totalItems")
	assert.Equal(t, price, gotPrice, "totalPrice")
}

func TestCart_EndToEndScenario(t *testing.T) {
	ctx := context.Background()
	cart := NewCartService(ctx, newMockKV(), "", zap.NewNop())

	assertTotals(t, cart, 0, 0)

	require.NoError(t, cart.AddItem(ctx, product("p1", 100)))
	assertTotals(t, cart, 1, 100)

	require.NoError(t, cart.AddItem(ctx, product("p2", 50)))
	require.NoError(t, cart.AddItem(ctx, product("p2", 50)))
	assertTotals(t, cart, 3, 200)

	cart.UpdateQuantity(ctx, "p1", 0)
	assertTotals(t, cart, 2, 100)

	cart.ClearCart(ctx)
	assertTotals(t, cart, 0, 0)
}

func TestCart_AddTwiceMergesLine(t *testing.T) {
	ctx := context.Background()
	cart := NewCartService(ctx, newMockKV(), "", zap.NewNop())

	require.NoError(t, cart.AddItem(ctx, product("p1", 100)))
	require.NoError(t, cart.AddItem(ctx, product("p1", 100)))

	state := cart.State()
	require.Len(t, state.Lines, 1)
	assert.Equal(t, 2, state.Lines["p1"].Quantity)
}

func TestCart_UpdateQuantityNonPositiveRemoves(t *testing.T) {
	for _, qty := range []int{0, -1} {
		ctx := context.Background()
		cart := NewCartService(ctx, newMockKV(), "", zap.NewNop())
		require.NoError(t, cart.AddItem(ctx, product("p1", 100)))

		cart.UpdateQuantity(ctx, "p1", qty)

		assert.Empty(t, cart.State().Lines, "quantity %d", qty)
		assertTotals(t, cart, 0, 0)
	}
}

func TestCart_UpdateQuantityUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	cart := NewCartService(ctx, newMockKV(), "", zap.NewNop())
	require.NoError(t, cart.AddItem(ctx, product("p1", 100)))

	cart.UpdateQuantity(ctx, "ghost", 5)
	cart.RemoveItem(ctx, "ghost")

	assertTotals(t, cart, 1, 100)
}

func TestCart_SnapshotIgnoresLaterPriceChanges(t *testing.T) {
	ctx := context.Background()
	cart := NewCartService(ctx, newMockKV(), "", zap.NewNop())

	require.NoError(t, cart.AddItem(ctx, product("p1", 100)))
	require.NoError(t, cart.AddItem(ctx, product("p1", 999)))

	line := cart.State().Lines["p1"]
	assert.Equal(t, int64(100), line.Price)
	assertTotals(t, cart, 2, 200)
}

func TestCart_MissingProductID(t *testing.T) {
	ctx := context.Background()
	cart := NewCartService(ctx, newMockKV(), "", zap.NewNop())

	err := cart.AddItem(ctx, domain.Product{Name: "nameless"})
	assert.ErrorIs(t, err, domain.ErrMissingProductID)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assertTotals(t, cart, 0, 0)
}

func TestCart_TotalsInvariantUnderRandomMutations(t *testing.T) {
	ctx := context.Background()
	cart := NewCartService(ctx, newMockKV(), "", zap.NewNop())
	rng := rand.New(rand.NewSource(42))
	ids := []string{"a", "b", "c", "d"}
	prices := map[string]int64{"a": 10, "b": 25, "c": 99, "d": 1500}

	for i := 0; i < 500; i++ {
		id := ids[rng.Intn(len(ids))]
		switch rng.Intn(4) {
		case 0, 1:
			require.NoError(t, cart.AddItem(ctx, product(id, prices[id])))
		case 2:
			cart.UpdateQuantity(ctx, id, rng.Intn(6)-1)
		case 3:
			cart.RemoveItem(ctx, id)
		}

		state := cart.State()
		var items int
		var price int64
		for _, line := range state.Lines {
			require.GreaterOrEqual(t, line.Quantity, 1)
			items += line.Quantity
			price += int64(line.Quantity) * line.Price
		}
		require.Equal(t, items, state.TotalItems)
		require.Equal(t, price, state.TotalPrice)
	}
}

func TestCart_PersistsAndRehydrates(t *testing.T) {
	ctx := context.Background()
	kv := newMockKV()

	cart := NewCartService(ctx, kv, "", zap.NewNop())
	require.NoError(t, cart.AddItem(ctx, product("p1", 100)))
	require.NoError(t, cart.AddItem(ctx, product("p2", 50)))
	cart.UpdateQuantity(ctx, "p2", 3)

	raw, ok := kv.raw(CartStateKey)
	require.True(t, ok)
	var snap cartSnapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &snap))
	assert.Equal(t, 4, snap.TotalItems)
	assert.Equal(t, int64(250), snap.TotalPrice)

	reloaded := NewCartService(ctx, kv, "", zap.NewNop())
	assert.Equal(t, cart.State(), reloaded.State())
}

func TestCart_RehydrateRecomputesTotals(t *testing.T) {
	ctx := context.Background()
	kv := newMockKV()
	kv.put(CartStateKey, `{"lines":[
		{"productId":"p1","quantity":2,"price":100},
		{"productId":"p1","quantity":9,"price":1},
		{"productId":"","quantity":1,"price":5},
		{"productId":"p3","quantity":0,"price":5}
	],"totalItems":999,"totalPrice":999}`)

	cart := NewCartService(ctx, kv, "", zap.NewNop())
	assertTotals(t, cart, 2, 200)
	assert.Len(t, cart.State().Lines, 1)
}

func TestCart_CorruptOrMissingStateStartsEmpty(t *testing.T) {
	ctx := context.Background()

	kv := newMockKV()
	kv.put(CartStateKey, "{not json")
	assertTotals(t, NewCartService(ctx, kv, "", zap.NewNop()), 0, 0)

	failing := newMockKV()
	failing.failGet = true
	assertTotals(t, NewCartService(ctx, failing, "", zap.NewNop()), 0, 0)

	assertTotals(t, NewCartService(ctx, newMockKV(), "", zap.NewNop()), 0, 0)
}

func TestCart_PersistFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	kv := newMockKV()
	kv.failSet = true

	cart := NewCartService(ctx, kv, "", zap.NewNop())
	require.NoError(t, cart.AddItem(ctx, product("p1", 100)))
	cart.UpdateQuantity(ctx, "p1", 4)

	assertTotals(t, cart, 4, 400)
	assert.Equal(t, 2, kv.setCalls)
}

func TestCart_SubscribersSeeEveryIntermediateState(t *testing.T) {
	ctx := context.Background()
	cart := NewCartService(ctx, newMockKV(), "", zap.NewNop())

	var seen []int
	unsubscribe := cart.Subscribe(func(state domain.CartState) {
		seen = append(seen, state.TotalItems)
	})

	require.NoError(t, cart.AddItem(ctx, product("p1", 100)))
	require.NoError(t, cart.AddItem(ctx, product("p1", 100)))
	cart.UpdateQuantity(ctx, "p1", 5)
	cart.RemoveItem(ctx, "p1")

	unsubscribe()
	require.NoError(t, cart.AddItem(ctx, product("p1", 100)))

	assert.Equal(t, []int{1, 2, 5, 0}, seen)
}

func TestCart_IndependentKeys(t *testing.T) {
	ctx := context.Background()
	kv := newMockKV()

	a := NewCartService(ctx, kv, SessionKey("a", CartStateKey), zap.NewNop())
	b := NewCartService(ctx, kv, SessionKey("b", CartStateKey), zap.NewNop())
	require.NoError(t, a.AddItem(ctx, product("p1", 100)))

	assertTotals(t, b, 0, 0)
	assertTotals(t, NewCartService(ctx, kv, SessionKey("a", CartStateKey), zap.NewNop()), 1, 100)
}

func TestCart_ConcurrentMutationsNotifyInOrder(t *testing.T) {
	ctx := context.Background()
	cart := NewCartService(ctx, newMockKV(), "", zap.NewNop())

	var seen []int
	cart.Subscribe(func(state domain.CartState) {
		seen = append(seen, state.TotalItems)
	})

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, cart.AddItem(ctx, product("p1", 10)))
		}()
	}
	wg.Wait()

	require.Len(t, seen, writers)
	for i, items := range seen {
		assert.Equal(t, i+1, items)
	}
}
