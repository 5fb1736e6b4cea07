package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/artisan-storefront/internal/adapter/storage"
	"github.com/rl1809/artisan-storefront/internal/config"
	"github.com/rl1809/artisan-storefront/internal/core/domain"
	"github.com/rl1809/artisan-storefront/internal/core/service"
)

const (
	stressKey         = "stress:cart-state"
	instanceCount     = 8
	mutationsPerStore = 200
)

var products = []domain.Product{
	{ID: "pot", Name: "Clay Pot", Price: 450},
	{ID: "scarf", Name: "Silk Scarf", Price: 1200},
	{ID: "lamp", Name: "Brass Lamp", Price: 2299},
}

func main() {
	ctx := context.Background()
	cfg := config.Load()
	logger := zap.NewNop()

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect redis: %v\n", err)
		os.Exit(1)
	}
	defer rdb.Close()

	kv := storage.NewRedisAdapter(rdb, cfg.Store.KeyPrefix, 0)

	// Clear previous run
	if err := kv.Delete(ctx, stressKey); err != nil {
		fmt.Fprintf(os.Stderr, "failed to reset key: %v\n", err)
		os.Exit(1)
	}

	// Every instance rehydrates from the same key, then mutates independently
	carts := make([]*service.CartService, instanceCount)
	for i := range carts {
		carts[i] = service.NewCartService(ctx, kv, stressKey, logger)
	}

	var violations atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i, cart := range carts {
		wg.Add(1)
		go func(id int, cart *service.CartService) {
			defer wg.Done()

			for n := 0; n < mutationsPerStore; n++ {
				p := products[(id+n)%len(products)]
				switch n % 5 {
				case 0, 1, 2:
					cart.AddItem(ctx, p)
				case 3:
					cart.UpdateQuantity(ctx, p.ID, n%4)
				case 4:
					cart.RemoveItem(ctx, p.ID)
				}

				if !consistent(cart.State()) {
					violations.Add(1)
				}
			}
		}(i, cart)
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Which instance wrote last is not predictable; the stored value must match one of them
	reloaded := service.NewCartService(ctx, kv, stressKey, logger)
	final := reloaded.State()

	matched := -1
	for i, cart := range carts {
		state := cart.State()
		if state.TotalItems == final.TotalItems && state.TotalPrice == final.TotalPrice {
			matched = i
			break
		}
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Instances:          %d\n", instanceCount)
	fmt.Printf("Mutations/instance: %d\n", mutationsPerStore)
	fmt.Printf("Invariant breaks:   %d\n", violations.Load())
	fmt.Printf("Stored totals:      %d items, %d\n", final.TotalItems, final.TotalPrice)
	fmt.Printf("Duration:           %v\n", elapsed)
	fmt.Println("==========================================")

	if violations.Load() == 0 {
		fmt.Println("PASS: every instance kept its totals consistent")
	} else {
		fmt.Printf("FAIL: %d inconsistent snapshots observed\n", violations.Load())
	}

	if consistent(final) && matched >= 0 {
		fmt.Printf("PASS: stored state is instance %d's last write\n", matched)
	} else {
		fmt.Println("FAIL: stored state matches no instance")
	}
}

func consistent(state domain.CartState) bool {
	var items int
	var price int64
	for _, line := range state.Lines {
		if line.Quantity < 1 {
			return false
		}
		items += line.Quantity
		price += line.Subtotal()
	}
	return items == state.TotalItems && price == state.TotalPrice
}
