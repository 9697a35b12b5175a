package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bekzatkz/dastarhan/internal/adapter/logger"
	"github.com/bekzatkz/dastarhan/internal/adapter/postgres"
	"github.com/bekzatkz/dastarhan/internal/adapter/rabbitmq"
	"github.com/bekzatkz/dastarhan/internal/adapter/rediscache"
	"github.com/bekzatkz/dastarhan/internal/app/analytics"
	"github.com/bekzatkz/dastarhan/internal/app/inventory"
	"github.com/bekzatkz/dastarhan/internal/app/lifecycle"
	"github.com/bekzatkz/dastarhan/internal/app/pricing"
	"github.com/bekzatkz/dastarhan/internal/app/repair"
	"github.com/bekzatkz/dastarhan/internal/app/reporting"
	"github.com/bekzatkz/dastarhan/internal/app/stats"
	"github.com/bekzatkz/dastarhan/internal/config"
	"github.com/bekzatkz/dastarhan/internal/interfaces"

	httpAdapter "github.com/bekzatkz/dastarhan/internal/adapter/http"
)

func main() {
	// Parse command-line flags
	mode := flag.String("mode", "", "Service mode: order-service, repair-worker")
	port := flag.Int("port", 3000, "HTTP port")
	opTimeout := flag.Int("op-timeout", 5, "Per-operation timeout in seconds")
	flag.Parse()

	if *mode == "" {
		log.Fatal("--mode flag is required")
	}

	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Initialize logger
	lgr := logger.New(*mode)

	// Connect to PostgreSQL
	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()

	lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
		"host": cfg.Database.Host,
		"db":   cfg.Database.Database,
	})

	// Route to appropriate service
	switch *mode {
	case "order-service":
		runOrderService(ctx, db, cfg, lgr, *port, *opTimeout)

	case "repair-worker":
		runRepairWorker(ctx, db, cfg, lgr)

	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}
}

func runOrderService(ctx context.Context, db postgres.DB, cfg *config.Config, lgr logger.Logger, port, opTimeout int) {
	// Connect to RabbitMQ
	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer mqConn.Close()

	lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
		"host": cfg.RabbitMQ.Host,
	})

	// Initialize repositories
	orderRepo := postgres.NewOrderRepository(db)
	statsRepo := postgres.NewStatsRepository(db)
	analyticsRepo := postgres.NewAnalyticsRepository(db)
	idemRepo := postgres.NewIdempotencyRepository(db)

	// Catalog reads go through Redis when it is reachable; a connect
	// failure degrades to direct Postgres reads.
	var catalogRepo interfaces.CatalogRepository = postgres.NewCatalogRepository(db)
	redisClient, err := rediscache.Connect(cfg.Redis)
	if err != nil {
		lgr.Error("redis_unavailable", "Redis unreachable, catalog cache disabled", "startup", nil, err)
	} else {
		defer redisClient.Close()
		ttl := time.Duration(cfg.Redis.CacheTTLSecs) * time.Second
		catalogRepo = rediscache.NewCatalogCache(catalogRepo, redisClient, ttl, lgr)
		lgr.Info("redis_connected", "Connected to Redis", "startup", map[string]interface{}{
			"host": cfg.Redis.Host,
		})
	}

	// Initialize messaging
	publisher := rabbitmq.NewPublisher(mqConn)

	// Initialize services
	calc := pricing.NewCalculator(cfg.Pricing.TaxRate, cfg.Pricing.DeliveryFee)
	adjuster := inventory.NewAdjuster(catalogRepo, lgr)
	statsUpdater := stats.NewUpdater(statsRepo, idemRepo, lgr)
	rollupWriter := analytics.NewWriter(analyticsRepo, idemRepo, lgr)

	orchestrator := lifecycle.NewOrchestrator(
		orderRepo,
		catalogRepo,
		calc,
		adjuster,
		statsUpdater,
		rollupWriter,
		publisher,
		lgr,
		time.Duration(opTimeout)*time.Second,
	)
	reportingService := reporting.NewService(orderRepo, analyticsRepo, lgr)

	// Initialize HTTP handlers
	orderHandler := httpAdapter.NewOrderHandler(orchestrator, lgr)
	operatorHandler := httpAdapter.NewOperatorHandler(orchestrator, lgr)
	reportingHandler := httpAdapter.NewReportingHandler(reportingService, lgr)

	// Setup HTTP server
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", orderHandler.CreateOrder)
	mux.HandleFunc("/orders/", operatorHandler.HandleOrders)
	mux.HandleFunc("/tracking/", reportingHandler.HandleTracking)
	mux.HandleFunc("/restaurants/", reportingHandler.GetAnalytics)

	// Apply middleware
	handler := httpAdapter.LoggingMiddleware(lgr)(mux)
	handler = httpAdapter.RecoveryMiddleware(lgr)(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lgr.Info("service_started", fmt.Sprintf("Order Service started on port %d", port), "startup", map[string]interface{}{
		"port": port,
	})

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		lgr.Info("shutdown_initiated", "Shutting down Order Service", "shutdown", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		lgr.Error("server_error", "Server error", "runtime", nil, err)
	}
}

func runRepairWorker(ctx context.Context, db postgres.DB, cfg *config.Config, lgr logger.Logger) {
	// Initialize repositories
	orderRepo := postgres.NewOrderRepository(db)
	statsRepo := postgres.NewStatsRepository(db)
	analyticsRepo := postgres.NewAnalyticsRepository(db)
	idemRepo := postgres.NewIdempotencyRepository(db)

	// Initialize service
	repairService := repair.NewService(
		orderRepo,
		statsRepo,
		analyticsRepo,
		idemRepo,
		lgr,
		time.Duration(cfg.Repair.IntervalSecs)*time.Second,
	)

	if err := repairService.Start(ctx); err != nil {
		log.Fatalf("Failed to start repair worker: %v", err)
	}

	lgr.Info("service_started", "Repair Worker started", "startup", map[string]interface{}{
		"interval_seconds": cfg.Repair.IntervalSecs,
	})

	// Wait for shutdown signal
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	<-sigint

	lgr.Info("graceful_shutdown", "Shutting down Repair Worker", "shutdown", nil)

	if err := repairService.Shutdown(ctx); err != nil {
		lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
	}
}
