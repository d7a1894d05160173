package server

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"user-webhook-sync/config"
	"user-webhook-sync/consumer"
)

// RunConsumer consumes USER_CREATED tasks until a signal or consumer error
func RunConsumer(cfg *config.AppConfig) error {
	log.Println("🎧 Starting in Consumer mode...")

	if !cfg.RabbitMQ.Enabled {
		return &config.ConfigError{Field: "RABBITMQ_ENABLED", Reason: "must be true to run the consumer"}
	}

	rmqConfig := cfg.RabbitMQ
	if err := config.WaitForRabbitMQ(rmqConfig); err != nil {
		return fmt.Errorf("rabbitmq not ready: %w", err)
	}

	log.Println("🔧 Initializing consumer service...")
	consumerService, err := consumer.InitializeConsumer(rmqConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize consumer: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Println("🚀 Starting consumer service...")
		log.Printf("📥 Listening to queue %s (routing key: %s)", rmqConfig.CreatedQueue, rmqConfig.CreatedRoutingKey)
		log.Printf("📍 Environment: %s", cfg.Server.Env)
		log.Printf("⚙️  Prefetch Count: %d", rmqConfig.PrefetchCount)
		log.Printf("⚙️  Pool Size: %d", rmqConfig.PoolSize)
		log.Println("📍 Press Ctrl+C to stop")

		if err := consumerService.Start(); err != nil {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		log.Printf("⚠️  Received signal: %v. Shutting down gracefully...", sig)
	case err := <-errChan:
		log.Printf("❌ Consumer error: %v. Shutting down...", err)
	}

	if err := consumerService.Close(); err != nil {
		log.Printf("⚠️  Error during cleanup: %v", err)
	}

	log.Println("✅ Consumer service stopped")
	return nil
}
