package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"user-webhook-sync/config"
	"user-webhook-sync/events"

	paotaconfig "github.com/surendratiwari3/paota/config"
	"github.com/surendratiwari3/paota/schema"
	"github.com/surendratiwari3/paota/workerpool"
)

const (
	TaskUserCreated = "USER_CREATED"

	retryCount   = 3
	retryTimeout = 30
)

// ProducerService publishes user events as paota tasks over AMQP
type ProducerService struct {
	pool      workerpool.Pool
	rmqConfig config.RabbitMQConf
	mu        sync.RWMutex
}

// NewProducer creates the USER_CREATED producer pool
func NewProducer(rmqConfig config.RabbitMQConf) (*ProducerService, error) {
	if err := rmqConfig.ValidateRabbitMQConfig(); err != nil {
		return nil, fmt.Errorf("invalid RabbitMQ configuration: %w", err)
	}

	paotaConfig := paotaconfig.Config{
		Broker:        "amqp",
		TaskQueueName: rmqConfig.CreatedQueue,
		AMQP: &paotaconfig.AMQPConfig{
			Url:                rmqConfig.GetRabbitMQURL(),
			Exchange:           rmqConfig.Exchange,
			ExchangeType:       rmqConfig.ExchangeType,
			BindingKey:         rmqConfig.CreatedRoutingKey,
			PrefetchCount:      int(rmqConfig.PrefetchCount),
			ConnectionPoolSize: int(rmqConfig.PoolSize),
			FailedQueue:        rmqConfig.DLX,
		},
	}

	// Single worker: the pool is only used to send
	pool, err := workerpool.NewWorkerPoolWithConfig(context.Background(), 1, "user_created_producer", paotaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer pool for %s: %w", rmqConfig.CreatedQueue, err)
	}
	if pool == nil {
		return nil, fmt.Errorf("producer pool creation returned nil for %s", rmqConfig.CreatedQueue)
	}

	log.Println("✅ Paota producer initialized successfully")
	return &ProducerService{pool: pool, rmqConfig: rmqConfig}, nil
}

// BuildSignature wraps event as a paota task carrying its JSON encoding
func BuildSignature(event events.UserEvent, routingKey string) (*schema.Signature, error) {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return &schema.Signature{
		Name:       TaskUserCreated,
		RoutingKey: routingKey,
		Args: []schema.Arg{
			{
				Type:  "string",
				Value: string(eventJSON),
			},
		},
		RetryCount:   retryCount,
		RetryTimeout: retryTimeout,
	}, nil
}

// PublishUserCreated publishes a USER_CREATED task
func (p *ProducerService) PublishUserCreated(ctx context.Context, event events.UserEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.pool == nil {
		return fmt.Errorf("%s producer pool not initialized", TaskUserCreated)
	}

	signature, err := BuildSignature(event, p.rmqConfig.CreatedRoutingKey)
	if err != nil {
		return err
	}

	state, err := p.pool.SendTaskWithContext(ctx, signature)
	if err != nil {
		return fmt.Errorf("failed to send %s event: %w", TaskUserCreated, err)
	}

	if state != nil {
		log.Printf("📤 [%s] Event published (ExternalUserID: %s, TaskID: %s, Status: %s)",
			TaskUserCreated, event.Data.ExternalUserID, state.Request.UUID, state.Status)
	}

	return nil
}

// Close stops the producer pool
func (p *ProducerService) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	log.Println("🔌 Closing producer pool...")
	if p.pool != nil {
		p.pool.Stop()
		p.pool = nil
	}
	log.Println("✅ Producer pool closed")
	return nil
}
