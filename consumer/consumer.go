package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"user-webhook-sync/config"
	"user-webhook-sync/events"
	"user-webhook-sync/producer"

	paotaconfig "github.com/surendratiwari3/paota/config"
	"github.com/surendratiwari3/paota/schema"
	"github.com/surendratiwari3/paota/workerpool"
)

type ConsumerService struct {
	workerPool workerpool.Pool
	rmqConfig  config.RabbitMQConf
}

// InitializeConsumer initializes the Paota consumer for the user.created queue
func InitializeConsumer(rmqConfig config.RabbitMQConf) (*ConsumerService, error) {
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

	workerPool, err := workerpool.NewWorkerPoolWithConfig(
		context.Background(),
		rmqConfig.PrefetchCount,
		"user_created_consumer",
		paotaConfig,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool for %s: %w", rmqConfig.CreatedQueue, err)
	}
	if workerPool == nil {
		return nil, fmt.Errorf("worker pool creation returned nil for %s", rmqConfig.CreatedQueue)
	}

	log.Println("✅ Paota consumer initialized successfully")
	return &ConsumerService{workerPool: workerPool, rmqConfig: rmqConfig}, nil
}

// Start registers the task handler and blocks consuming until stopped
func (c *ConsumerService) Start() error {
	tasks := map[string]interface{}{
		producer.TaskUserCreated: c.handleUserCreated,
	}
	if err := c.workerPool.RegisterTasks(tasks); err != nil {
		return fmt.Errorf("failed to register %s handler: %w", producer.TaskUserCreated, err)
	}

	log.Printf("🎧 Starting %s consumer for queue: %s", producer.TaskUserCreated, c.rmqConfig.CreatedQueue)

	if err := c.workerPool.Start(); err != nil {
		return fmt.Errorf("failed to start %s consumer: %w", producer.TaskUserCreated, err)
	}
	return nil
}

// decodeUserEvent reads the JSON event carried in the first task argument
func decodeUserEvent(signature *schema.Signature) (events.UserEvent, error) {
	var event events.UserEvent
	if signature == nil || len(signature.Args) == 0 {
		return event, fmt.Errorf("no arguments in signature")
	}

	eventJSON, ok := signature.Args[0].Value.(string)
	if !ok {
		return event, fmt.Errorf("invalid argument type, expected string")
	}

	if err := json.Unmarshal([]byte(eventJSON), &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal %s event: %w", producer.TaskUserCreated, err)
	}
	return event, nil
}

// handleUserCreated processes USER_CREATED tasks. Returning an error leaves
// the message to the broker's retry and dead-letter policy.
func (c *ConsumerService) handleUserCreated(ctx context.Context, signature *schema.Signature) error {
	event, err := decodeUserEvent(signature)
	if err != nil {
		log.Printf("❌ %v", err)
		return err
	}

	// Welcome mail delivery is owned by the mailer service; this is its hook.
	log.Printf("📧 [%s] Welcome email queued for %s (ExternalUserID: %s, EventID: %s)",
		producer.TaskUserCreated,
		event.Data.Email,
		event.Data.ExternalUserID,
		event.ID,
	)

	return nil
}

// Close stops the consumer worker pool
func (c *ConsumerService) Close() error {
	log.Println("🔌 Stopping consumer worker pool...")
	c.workerPool.Stop()
	log.Println("✅ Consumer worker pool stopped")
	return nil
}
