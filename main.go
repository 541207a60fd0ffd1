package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"github.com/Davayme/chasquigo-backend-sub000/internal/auth"
	"github.com/Davayme/chasquigo-backend-sub000/internal/config"
	"github.com/Davayme/chasquigo-backend-sub000/internal/database"
	"github.com/Davayme/chasquigo-backend-sub000/internal/database/migrations"
	"github.com/Davayme/chasquigo-backend-sub000/internal/kafka"
	"github.com/Davayme/chasquigo-backend-sub000/internal/logger"
	"github.com/Davayme/chasquigo-backend-sub000/internal/monitoring"
	"github.com/Davayme/chasquigo-backend-sub000/internal/payment"
	"github.com/Davayme/chasquigo-backend-sub000/internal/payment/payment_api"
	"github.com/Davayme/chasquigo-backend-sub000/internal/purchase"
	"github.com/Davayme/chasquigo-backend-sub000/internal/purchase/purchase_api"
	purchaseredis "github.com/Davayme/chasquigo-backend-sub000/internal/purchase/redis"
	"github.com/Davayme/chasquigo-backend-sub000/internal/seats"
	ticket_db "github.com/Davayme/chasquigo-backend-sub000/internal/tickets/db"
	qr "github.com/Davayme/chasquigo-backend-sub000/internal/tickets/qr_generator"
	tickets "github.com/Davayme/chasquigo-backend-sub000/internal/tickets/service"
	"github.com/Davayme/chasquigo-backend-sub000/internal/tickets/ticket_api"
	"github.com/Davayme/chasquigo-backend-sub000/internal/utils"
)

func connectDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) *bun.DB {
	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	log.Info("DATABASE", fmt.Sprintf("✅ %s connection successful", cfg.Database.Driver))

	if !cfg.Database.AutoMigrate {
		return bunDB
	}
	if cfg.Database.Driver == "sqlite" {
		if err := database.CreateSchema(ctx, bunDB); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Failed to create schema: %v", err))
		}
		return bunDB
	}

	runner := migrations.NewRunner(bunDB, log)
	if err := runner.MigrateUp(ctx); err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
	if err := runner.Close(); err != nil {
		log.Warn("MIGRATE", err.Error())
	}
	return bunDB
}

// connectRedis returns nil when Redis is disabled or unreachable. Purchases
// then rely on the database alone.
func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	if !cfg.Enabled {
		log.Info("REDIS", "Redis disabled, seat holds and webhook dedupe are off")
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Redis at %s unreachable, continuing without it: %v", cfg.Addr, err))
		client.Close()
		return nil
	}
	log.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Addr, client.Options().DB))
	return client
}

func identityVerifier(ctx context.Context, cfg config.AuthConfig, log *logger.Logger) auth.Verifier {
	if cfg.OIDCIssuer == "" {
		log.Warn("AUTH", "OIDC_ISSUER_URL not set, bearer tokens are NOT verified")
		return auth.UnverifiedVerifier{}
	}
	verifier, err := auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.OIDCClientID)
	if err != nil {
		log.Fatal("AUTH", err.Error())
	}
	log.Info("AUTH", fmt.Sprintf("Verifying tokens issued by %s", cfg.OIDCIssuer))
	return verifier
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger("purchase-service", cfg.Log.Dir, logger.ParseLevel(cfg.Log.Level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}
	log.Info("APP", "Starting purchase service initialization")

	ctx := context.Background()
	bunDB := connectDatabase(ctx, cfg, log)
	defer bunDB.Close()

	// Interfaces stay nil, not typed-nil, when a backing service is off.
	var (
		holds          purchase.SeatHolder
		eventLog       payment.EventLog
		gateway        purchase.Gateway
		purchaseEvents purchase.EventPublisher
		boardingEvents tickets.BoardingPublisher
	)

	if client := connectRedis(ctx, cfg.Redis, log); client != nil {
		defer client.Close()
		guard := purchaseredis.NewRedis(client, cfg.Redis.SeatHoldTTL, cfg.Redis.EventDedupTTL)
		holds = guard
		eventLog = guard
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, kafka.TopicNames(cfg.Kafka.Topics), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		events := kafka.NewEvents(producer, cfg.Kafka.Topics, log)
		purchaseEvents = events
		boardingEvents = events
		log.Info("KAFKA", "Kafka producer initialized successfully")
	} else {
		log.Info("KAFKA", "Kafka disabled, lifecycle events are not published")
	}

	if cfg.Stripe.SecretKey != "" {
		gateway = payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.Currency, log)
	} else {
		log.Warn("STRIPE", "STRIPE_SECRET_KEY not set, only cash purchases are accepted")
	}
	if cfg.Stripe.WebhookSecret == "" {
		log.Warn("STRIPE", "STRIPE_WEBHOOK_SECRET not set, every webhook will be rejected")
	}
	if cfg.Tickets.QRSecret == "" {
		log.Fatal("CONFIG", "QR_SECRET_KEY not set")
	}

	purchaseService := purchase.NewService(bunDB, holds, gateway, purchaseEvents, log, purchase.Options{
		CashEpsilon: cfg.Cash.Epsilon,
		CodePrefix:  cfg.Tickets.CodePrefix,
	})
	processor := payment.NewProcessor(payment.NewStripeVerifier(cfg.Stripe.WebhookSecret), purchaseService, eventLog, log)
	signer := qr.NewSigner(cfg.Tickets.QRSecret, cfg.Tickets.HashLength, cfg.Tickets.QRSize)
	ticketService := tickets.NewTicketService(ticket_db.New(bunDB), bunDB, signer, cfg.Tickets.QRTTL, boardingEvents, log)

	purchaseHandler := purchase_api.NewHandler(purchaseService, seats.NewChecker(bunDB), log)
	ticketHandler := ticket_api.NewHandler(ticketService, log)
	webhookHandler := payment_api.NewHandler(processor, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(monitoring.Middleware)

	// --- Public Routes ---
	r.Handle("/metrics", monitoring.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := bunDB.PingContext(r.Context()); err != nil {
			utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("Unhealthy", "database unreachable"))
			return
		}
		utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("OK", nil))
	})
	r.Post("/api/payments/webhook", webhookHandler.StripeWebhook)
	log.Info("ROUTER", "Public webhook registered at /api/payments/webhook")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(identityVerifier(ctx, cfg.Auth, log), log))
		r.Route("/api", func(r chi.Router) {
			purchaseHandler.RegisterRoutes(r)
			ticketHandler.RegisterRoutes(r)
		})
		log.Info("ROUTER", "Purchase and ticket routes registered under /api")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Purchase service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Purchase service shutdown complete")
	}
}
