package config

import (
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQConf struct {
	Enabled           bool   `env:"RABBITMQ_ENABLED" envDefault:"false"`
	Host              string `env:"RABBITMQ_HOST" envDefault:"localhost"`
	Port              string `env:"RABBITMQ_PORT" envDefault:"5672"`
	User              string `env:"RABBITMQ_USER" envDefault:"guest"`
	Password          string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	Exchange          string `env:"RABBITMQ_EXCHANGE" envDefault:"user.events"`
	ExchangeType      string `env:"RABBITMQ_EXCHANGE_TYPE" envDefault:"direct"`
	DLX               string `env:"RABBITMQ_DLX" envDefault:"user.dlx"`
	CreatedQueue      string `env:"RABBITMQ_CREATED_QUEUE" envDefault:"user.created.queue"`
	CreatedRoutingKey string `env:"RABBITMQ_CREATED_ROUTING_KEY" envDefault:"user.created"`
	PrefetchCount     uint   `env:"RABBITMQ_PREFETCH_COUNT" envDefault:"10"`
	PoolSize          uint   `env:"RABBITMQ_POOL_SIZE" envDefault:"2"`
}

// GetRabbitMQURL constructs the RabbitMQ connection URL
func (r *RabbitMQConf) GetRabbitMQURL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		r.User,
		r.Password,
		r.Host,
		r.Port,
	)
}

// ValidateRabbitMQConfig validates RabbitMQ configuration
func (r *RabbitMQConf) ValidateRabbitMQConfig() error {
	requiredFields := map[string]string{
		"RABBITMQ_HOST":          r.Host,
		"RABBITMQ_PORT":          r.Port,
		"RABBITMQ_USER":          r.User,
		"RABBITMQ_PASSWORD":      r.Password,
		"RABBITMQ_EXCHANGE":      r.Exchange,
		"RABBITMQ_CREATED_QUEUE": r.CreatedQueue,
	}

	for field, value := range requiredFields {
		if value == "" {
			return &ConfigError{Field: field, Reason: "is required"}
		}
	}

	if r.PrefetchCount == 0 {
		log.Println("⚠️  Warning: PrefetchCount should be > 0, defaulting to 10")
		r.PrefetchCount = 10
	}

	if r.PoolSize == 0 {
		log.Println("⚠️  Warning: PoolSize should be > 0, defaulting to 2")
		r.PoolSize = 2
	}

	return nil
}

// WaitForRabbitMQ dials the broker until it accepts a connection
func WaitForRabbitMQ(r RabbitMQConf) error {
	maxAttempts := 5
	retryInterval := 2 * time.Second

	log.Println("⏳ Waiting for RabbitMQ to be ready...")

	var err error
	for i := 1; i <= maxAttempts; i++ {
		var conn *amqp.Connection
		conn, err = amqp.Dial(r.GetRabbitMQURL())
		if err == nil {
			_ = conn.Close()
			log.Println("✅ RabbitMQ is ready")
			return nil
		}

		log.Printf("   Attempt %d/%d: %v", i, maxAttempts, err)
		if i < maxAttempts {
			time.Sleep(retryInterval)
		}
	}

	return fmt.Errorf("rabbitmq not reachable after %d attempts: %w", maxAttempts, err)
}
