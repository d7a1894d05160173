package events

import (
	"time"

	"user-webhook-sync/models"

	"github.com/google/uuid"
)

const (
	UserCreated = "user.created"

	eventVersion = "1.0"
)

type UserEvent struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Data      UserData  `json:"data"`
}

type UserData struct {
	ExternalUserID string `json:"externalUserId"`
	Email          string `json:"email"`
}

// NewUserCreated builds the domain event emitted after a user is first stored
func NewUserCreated(user models.User) UserEvent {
	return UserEvent{
		ID:        uuid.NewString(),
		Event:     UserCreated,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Data: UserData{
			ExternalUserID: user.ExternalUserID,
			Email:          user.Email,
		},
	}
}
