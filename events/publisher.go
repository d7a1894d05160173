package events

import (
	"context"
	"log"
)

// Publisher fans user events out to downstream consumers
type Publisher interface {
	PublishUserCreated(ctx context.Context, event UserEvent) error
}

// NopPublisher is used when no broker is configured
type NopPublisher struct{}

func (NopPublisher) PublishUserCreated(_ context.Context, event UserEvent) error {
	log.Printf("📭 [%s] Broker disabled, event not published (ExternalUserID: %s)",
		event.Event, event.Data.ExternalUserID)
	return nil
}
