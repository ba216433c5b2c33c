package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/api"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/config"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/events"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/gateway"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/handlers"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/interfaces"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/repository"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/service"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/telemetry"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	if err := telemetry.InitTelemetry("checkout-orchestrator", cfg.JaegerEndpoint); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	telemetry.Logger.Info("Starting Checkout Orchestrator",
		zap.String("storage_driver", cfg.StorageDriver),
		zap.Int("gateway_success_rate", cfg.Gateway.SuccessRate),
	)

	// Payment storage
	var repo interfaces.PaymentRepository
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			telemetry.Logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		pgRepo := repository.NewPaymentRepository(db)
		if err := pgRepo.RunMigrations(); err != nil {
			telemetry.Logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		repo = pgRepo
	default:
		telemetry.Logger.Warn("Using in-memory payment storage")
		repo = repository.NewMemoryPaymentRepository()
	}

	// Carts and locks
	var (
		carts  interfaces.CartStore
		locker interfaces.Locker
	)
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			telemetry.Logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		cancel()

		carts = repository.NewRedisCartStore(redisClient, cfg.CartTTL)
		locker = repository.NewRedisLocker(redisClient, cfg.LockTTL)
	} else {
		telemetry.Logger.Warn("REDIS_URL not set, carts and locks are process-local")
		carts = repository.NewMemoryCartStore()
		locker = repository.NewMemoryLocker()
	}

	// Events
	var (
		writer events.MessageWriter
		nc     events.SubjectPublisher
	)
	if len(cfg.KafkaBrokers) > 0 {
		writer = events.NewKafkaWriter(cfg.KafkaBrokers)
	}
	if cfg.NatsURL != "" {
		conn, err := events.NewNATSConn(cfg.NatsURL)
		if err != nil {
			telemetry.Logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		nc = conn
	}
	publisher := events.NewPublisher(writer, nc)
	defer func() {
		if err := publisher.Close(); err != nil {
			telemetry.Logger.Error("Failed to close event publisher", zap.Error(err))
		}
	}()

	// Gateway
	seed := cfg.Gateway.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	simulator := gateway.NewSimulator(gateway.Config{
		BaseURL:        cfg.Gateway.BaseURL,
		SuccessRate:    cfg.Gateway.SuccessRate,
		ProcessLatency: gateway.LatencyRange{Min: cfg.Gateway.ProcessLatencyMin, Max: cfg.Gateway.ProcessLatencyMax},
		VerifyLatency:  gateway.LatencyRange{Min: cfg.Gateway.VerifyLatencyMin, Max: cfg.Gateway.VerifyLatencyMax},
		RefundLatency:  gateway.LatencyRange{Min: cfg.Gateway.RefundLatencyMin, Max: cfg.Gateway.RefundLatencyMax},
	}, gateway.NewRandomSource(seed))
	gw := gateway.NewBreakerGateway(simulator, gateway.BreakerConfig{
		ConsecutiveFailures: cfg.Gateway.BreakerFailures,
		OpenTimeout:         cfg.Gateway.BreakerOpenTimeout,
	})

	payments := service.NewPaymentService(repo, gw, locker, publisher, service.WithPaymentExpiry(cfg.PaymentExpiry))
	router := api.NewRouter(api.Services{
		Payments: payments,
		Checkout: service.NewCheckoutService(payments, carts, locker, publisher),
		Stats:    service.NewStatsService(repo, nil),
		Carts:    carts,
		Locker:   locker,

		ReturnURLHosts: cfg.ReturnURLHosts,
	})

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", handlers.SessionHeader},
		ExposedHeaders: []string{handlers.SessionHeader, "X-Trace-ID"},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		telemetry.Logger.Info("Checkout Orchestrator starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	telemetry.Logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	telemetry.Logger.Info("Server exited")
}
