package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"user-webhook-sync/config"
	"user-webhook-sync/events"
	"user-webhook-sync/handlers"
	"user-webhook-sync/producer"
	"user-webhook-sync/replay"
	"user-webhook-sync/routes"
	"user-webhook-sync/store"
	"user-webhook-sync/webhook"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 10 * time.Second

// NewRouter builds the echo instance with middleware and routes
func NewRouter(cfg *config.AppConfig, webhookHandler *handlers.WebhookHandler, healthHandler *handlers.HealthHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET,
			echo.POST,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
		},
	}))

	routes.RegisterRoutes(e, webhookHandler, healthHandler)
	return e
}

// NewVerifier builds the webhook verifier; a bad secret is a ConfigError
func NewVerifier(cfg *config.AppConfig) (*webhook.Verifier, error) {
	verifier, err := webhook.NewVerifier(cfg.Webhook.Secret, webhook.WithTolerance(cfg.Webhook.Tolerance))
	if err != nil {
		return nil, &config.ConfigError{Field: "WEBHOOK_SECRET", Reason: err.Error()}
	}
	return verifier, nil
}

func openStore(ctx context.Context, cfg *config.AppConfig) (store.UserStore, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := config.ConnectPostgres(cfg.Server, cfg.Database)
		if err != nil {
			return nil, err
		}
		users := store.NewGormUserStore(db)
		if err := users.Migrate(); err != nil {
			return nil, err
		}
		log.Println("✅ Database migrations completed")
		return users, nil
	default:
		client, err := config.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		users := store.NewMongoUserStore(client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection))
		if err := users.EnsureIndexes(ctx); err != nil {
			_ = users.Close(ctx)
			return nil, err
		}
		log.Println("✅ MongoDB indexes ensured")
		return users, nil
	}
}

func openPublisher(cfg *config.AppConfig) (events.Publisher, func(), error) {
	if !cfg.RabbitMQ.Enabled {
		return events.NopPublisher{}, func() {}, nil
	}

	if err := config.WaitForRabbitMQ(cfg.RabbitMQ); err != nil {
		return nil, nil, err
	}

	log.Println("🔧 Initializing producer...")
	prod, err := producer.NewProducer(cfg.RabbitMQ)
	if err != nil {
		return nil, nil, err
	}
	return prod, func() { _ = prod.Close() }, nil
}

// RunAPI wires every dependency and serves until SIGINT/SIGTERM
func RunAPI(cfg *config.AppConfig) error {
	log.Println("🚀 Starting in API mode...")
	ctx := context.Background()

	verifier, err := NewVerifier(cfg)
	if err != nil {
		return err
	}

	users, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open user store: %w", err)
	}
	defer func() {
		log.Println("🔌 Closing user store...")
		if err := users.Close(context.Background()); err != nil {
			log.Printf("⚠️  Error closing user store: %v", err)
		}
	}()

	checks := map[string]handlers.Pinger{"store": users}

	var guard replay.Guard = replay.NopGuard{}
	redisClient, err := config.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		guard = replay.NewRedisGuard(redisClient, 2*cfg.Webhook.Tolerance)
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	publisher, closePublisher, err := openPublisher(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize producer: %w", err)
	}
	defer closePublisher()

	webhookHandler := handlers.NewWebhookHandler(
		verifier,
		handlers.NewDispatcher(users, publisher),
		guard,
		cfg.Server.RequestTimeout,
	)
	e := NewRouter(cfg, webhookHandler, handlers.NewHealthHandler(checks))

	port := cfg.Server.Port
	log.Printf("🚀 Server running at http://localhost:%s", port)
	log.Printf("📍 Environment: %s", cfg.Server.Env)
	log.Println("📍 Webhook endpoint: http://localhost:" + port + "/api/webhooks")
	log.Println("📍 Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	return serve(e, ":"+port, quit)
}

// serve runs e on addr until quit fires or the listener fails
func serve(e *echo.Echo, addr string, quit <-chan os.Signal) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		log.Printf("❌ Server failed: %v", err)
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Println("🛑 Shutting down API server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Error closing server: %v", err)
	}

	log.Println("✅ API Server stopped")
	return nil
}
