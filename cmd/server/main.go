package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/artisan-storefront/internal/adapter/handler"
	"github.com/rl1809/artisan-storefront/internal/adapter/storage"
	"github.com/rl1809/artisan-storefront/internal/config"
	"github.com/rl1809/artisan-storefront/internal/core/domain"
	"github.com/rl1809/artisan-storefront/internal/core/service"
	"github.com/rl1809/artisan-storefront/internal/logger"
	"github.com/rl1809/artisan-storefront/internal/port"
	"github.com/rl1809/artisan-storefront/internal/telemetry"
)

const (
	serviceName = "artisan-storefront"
	workerCount = 4
	queueSize   = 1000
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp := telemetry.NewTracerProvider(serviceName, cfg.Server.Environment)

	// Initialize key-value store
	kv, closeKV := openStore(ctx, cfg.Store, log)

	// Initialize remote catalog
	source, db := openCatalog(ctx, cfg.Catalog, log)

	// Initialize services
	drafts := service.NewDraftStore(kv, log)
	catalog := service.NewCatalogService(source, drafts, cfg.Catalog.FetchTimeout, log)
	products := catalog.Refresh(ctx)
	log.Info("catalog loaded",
		zap.Int("products", len(products)),
		zap.Bool("remote_healthy", catalog.RemoteHealthy()),
	)

	sessions := service.NewSessionRegistry(kv, catalog, cfg.Search.Latency, cfg.Session.Limit, cfg.Session.IdleTTL, log)
	listings := service.NewListingService(source, drafts, catalog, log)
	checkout := service.NewCheckoutService(cfg.Search.PaymentLatency, queueSize, log)
	orders := service.NewOrderArchive(kv, log)

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(id, checkout.GetOrderQueue(), orders, log)
		}(i)
	}
	log.Info("started order workers", zap.Int("count", workerCount))

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	health := handler.NewHealthReporter(catalog, cfg.Server.HealthInterval, log)
	health.Register(grpcServer)
	go health.Run(ctx)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Fatal("failed to listen", zap.String("addr", cfg.Server.GRPCAddr), zap.Error(err))
	}

	go func() {
		log.Info("gRPC server listening", zap.String("addr", cfg.Server.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(catalog, sessions, listings, checkout, orders, log)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           otelhttp.NewHandler(httpHandler.Routes(), "storefront-http"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown", zap.Error(err))
	}
	log.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")

	// Close order queue and wait for workers
	checkout.Close()
	wg.Wait()
	log.Info("workers stopped")

	if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
		log.Warn("tracer shutdown", zap.Error(err))
	}

	closeKV()
	if db != nil {
		db.Close()
	}
	log.Info("connections closed")
}

func openStore(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (port.KeyValueStore, func()) {
	if cfg.Backend == "memory" {
		log.Warn("using in-memory store; state will not survive a restart")
		return storage.NewMemoryAdapter(), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	adapter := storage.NewRedisAdapter(rdb, cfg.KeyPrefix, cfg.KeyTTL)
	if err := adapter.Ping(ctx); err != nil {
		log.Fatal("failed to connect redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	return adapter, func() { rdb.Close() }
}

// openCatalog never fails: an unreachable database leaves the storefront
// running on local drafts, and later refreshes retry through the pool.
func openCatalog(ctx context.Context, cfg config.CatalogConfig, log *zap.Logger) (port.CatalogSource, *sql.DB) {
	if !cfg.RemoteConfigured() {
		log.Warn("remote catalog not configured")
		return storage.NewUnavailableCatalogAdapter("remote catalog not configured"), nil
	}

	dialect := storage.DialectMySQL
	if cfg.Driver == "postgres" {
		dialect = storage.DialectPostgres
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		log.Error("failed to open catalog database", zap.String("driver", cfg.Driver), zap.Error(err))
		return storage.NewUnavailableCatalogAdapter(err.Error()), nil
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Warn("catalog database unreachable", zap.String("driver", cfg.Driver), zap.Error(err))
	} else {
		log.Info("connected to catalog database", zap.String("driver", cfg.Driver))
	}

	return storage.NewSQLCatalogAdapter(db, dialect, log), db
}

func workerLoop(id int, queue <-chan domain.Order, orders *service.OrderArchive, log *zap.Logger) {
	for order := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if err := orders.Save(ctx, order); err != nil {
			log.Error("failed to archive order",
				zap.Int("worker", id),
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
		} else {
			log.Debug("archived order", zap.Int("worker", id), zap.String("order_id", order.ID))
		}

		cancel()
	}
}
