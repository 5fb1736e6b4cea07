package tests

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/artisan-storefront/internal/adapter/storage"
	"github.com/rl1809/artisan-storefront/internal/core/domain"
	"github.com/rl1809/artisan-storefront/internal/core/service"
)

type testEnv struct {
	redis   *redis.Client
	mysql   *sql.DB
	kv      *storage.RedisAdapter
	catalog *storage.SQLCatalogAdapter
	cleanup func()
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id VARCHAR(64) PRIMARY KEY,
	full_name VARCHAR(255)
);
CREATE TABLE IF NOT EXISTS products (
	id VARCHAR(64) PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	description TEXT,
	price DECIMAL(12,2),
	category VARCHAR(64),
	images TEXT,
	artisan_id VARCHAR(64),
	artisan_name VARCHAR(255),
	is_new BOOLEAN NOT NULL DEFAULT FALSE,
	is_trending BOOLEAN NOT NULL DEFAULT FALSE,
	featured BOOLEAN NOT NULL DEFAULT FALSE,
	status VARCHAR(16) NOT NULL,
	created_at DATETIME NOT NULL
)`

func setupTestEnv(t *testing.T) *testEnv {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	mysqlDSN := os.Getenv("CATALOG_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/storefront?parseTime=true&multiStatements=true"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if _, err := db.Exec(schema); err != nil {
		t.Skipf("MySQL schema setup failed: %v", err)
	}

	prefix := "it:" + uuid.NewString() + ":"

	return &testEnv{
		redis:   rdb,
		mysql:   db,
		kv:      storage.NewRedisAdapter(rdb, prefix, time.Minute),
		catalog: storage.NewSQLCatalogAdapter(db, storage.DialectMySQL, zap.NewNop()),
		cleanup: func() {
			keys, _ := rdb.Keys(context.Background(), prefix+"*").Result()
			if len(keys) > 0 {
				rdb.Del(context.Background(), keys...)
			}
			rdb.Close()
			db.Close()
		},
	}
}

func TestIntegration_ListingAppearsInCatalogAndCart(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	logger := zap.NewNop()

	drafts := service.NewDraftStore(env.kv, logger)
	catalog := service.NewCatalogService(env.catalog, drafts, 5*time.Second, logger)
	listings := service.NewListingService(env.catalog, drafts, catalog, logger)

	name := "Integration Basket " + uuid.NewString()[:8]
	result, err := listings.Submit(ctx, domain.Listing{Name: name, Price: 799, Category: "Baskets"})
	if err != nil {
		t.Fatalf("submit listing: %v", err)
	}
	defer env.mysql.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, result.Product.ID)

	if result.SavedLocally {
		t.Fatalf("expected listing to reach MySQL, got local draft %s", result.Product.ID)
	}

	p, ok := catalog.Product(result.Product.ID)
	if !ok {
		t.Fatalf("listing %s missing from refreshed catalog", result.Product.ID)
	}
	if p.Image != domain.PlaceholderImage || p.Artisan != domain.DefaultArtisan {
		t.Errorf("expected defaults applied, got image=%q artisan=%q", p.Image, p.Artisan)
	}

	cartKey := service.SessionKey(uuid.NewString(), service.CartStateKey)
	cart := service.NewCartService(ctx, env.kv, cartKey, logger)
	if err := cart.AddItem(ctx, p); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	cart.AddItem(ctx, p)

	// A second process sees the same cart from Redis
	restored := service.NewCartService(ctx, env.kv, cartKey, logger)
	items, total := restored.Totals()
	if items != 2 || total != 1598 {
		t.Errorf("expected 2 items totalling 1598, got %d / %d", items, total)
	}
}

func TestIntegration_ConcurrentCartMutationsStayConsistent(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	cart := service.NewCartService(ctx, env.kv, "concurrent-cart", zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			cart.AddItem(ctx, domain.Product{ID: "p" + string(rune('a'+n%4)), Price: int64(100 * (n%4 + 1))})
		}(i)
	}
	wg.Wait()

	items, total := cart.Totals()
	if items != 20 {
		t.Errorf("expected 20 items, got %d", items)
	}
	if total != 5000 {
		t.Errorf("expected total 5000, got %d", total)
	}

	restored := service.NewCartService(ctx, env.kv, "concurrent-cart", zap.NewNop())
	if got, _ := restored.Totals(); got != items {
		t.Errorf("expected persisted %d items, got %d", items, got)
	}
}

func TestIntegration_CatalogFallsBackWhenMySQLIsDown(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	ctx := context.Background()
	logger := zap.NewNop()

	drafts := service.NewDraftStore(env.kv, logger)
	if err := drafts.Prepend(ctx, domain.Product{ID: "c-offline", Name: "Offline Draft"}); err != nil {
		t.Fatalf("prepend draft: %v", err)
	}

	closed, err := sql.Open("mysql", "root:root@tcp(127.0.0.1:1)/none")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closed.Close()

	catalog := service.NewCatalogService(storage.NewSQLCatalogAdapter(closed, storage.DialectMySQL, logger), drafts, time.Second, logger)
	products := catalog.Refresh(ctx)

	if len(products) != 1 || products[0].ID != "c-offline" {
		t.Errorf("expected only the local draft, got %+v", products)
	}
	if catalog.RemoteHealthy() {
		t.Error("expected remote to be reported unhealthy")
	}
}
