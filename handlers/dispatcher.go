package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"user-webhook-sync/events"
	"user-webhook-sync/metrics"
	"user-webhook-sync/models"
	"user-webhook-sync/store"
	"user-webhook-sync/webhook"

	"github.com/go-playground/validator/v10"
)

// MalformedEventError means a recognised event type arrived without the
// fields it is contractually required to carry.
type MalformedEventError struct {
	EventType string
	Reason    string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed %s event: %s", e.EventType, e.Reason)
}

type emailAddress struct {
	EmailAddress string `json:"email_address"`
}

type userCreatedData struct {
	ID             string         `json:"id"`
	EmailAddresses []emailAddress `json:"email_addresses"`
}

// newUser only requires presence; address syntax belongs to the identity
// provider.
type newUser struct {
	ExternalUserID string `validate:"required"`
	Email          string `validate:"required"`
}

// Dispatcher routes verified events to their domain action. Unknown event
// types are acknowledged without side effects.
type Dispatcher struct {
	users     store.UserStore
	publisher events.Publisher
	validate  *validator.Validate
}

func NewDispatcher(users store.UserStore, publisher events.Publisher) *Dispatcher {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Dispatcher{
		users:     users,
		publisher: publisher,
		validate:  validator.New(),
	}
}

// Dispatch applies evt and returns the outcome label recorded in metrics.
func (d *Dispatcher) Dispatch(ctx context.Context, evt webhook.VerifiedEvent) (string, error) {
	switch evt.Type {
	case events.UserCreated:
		return d.handleUserCreated(ctx, evt)
	default:
		log.Printf("ℹ️  Ignoring webhook %s of type %s", evt.ID, evt.Type)
		return metrics.OutcomeIgnored, nil
	}
}

func (d *Dispatcher) handleUserCreated(ctx context.Context, evt webhook.VerifiedEvent) (string, error) {
	u, err := d.extractNewUser(evt)
	if err != nil {
		return metrics.OutcomeMalformed, err
	}

	user, created, err := d.users.CreateUser(ctx, u.ExternalUserID, u.Email)
	if err != nil {
		return metrics.OutcomeFailed, err
	}
	if !created {
		log.Printf("♻️  User %s already stored, skipping", user.ExternalUserID)
		return metrics.OutcomeDuplicate, nil
	}

	metrics.UsersCreated.Inc()
	log.Printf("✅ User saved (ExternalUserID: %s, Email: %s)", user.ExternalUserID, user.Email)

	d.publishUserCreated(ctx, user)
	return metrics.OutcomeHandled, nil
}

// extractNewUser takes the first listed address, whichever one the event
// marks as primary.
func (d *Dispatcher) extractNewUser(evt webhook.VerifiedEvent) (newUser, error) {
	var data userCreatedData
	if err := evt.DecodeData(&data); err != nil {
		return newUser{}, &MalformedEventError{EventType: evt.Type, Reason: err.Error()}
	}
	if len(data.EmailAddresses) == 0 {
		return newUser{}, &MalformedEventError{EventType: evt.Type, Reason: "email_addresses is empty"}
	}

	u := newUser{
		ExternalUserID: strings.TrimSpace(data.ID),
		Email:          strings.TrimSpace(data.EmailAddresses[0].EmailAddress),
	}
	if err := d.validate.Struct(u); err != nil {
		return newUser{}, &MalformedEventError{EventType: evt.Type, Reason: validationReason(err)}
	}
	return u, nil
}

func validationReason(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	reasons := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		reasons = append(reasons, fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag()))
	}
	return strings.Join(reasons, "; ")
}

// publishUserCreated never fails the webhook; the record is already stored.
func (d *Dispatcher) publishUserCreated(ctx context.Context, user models.User) {
	if err := d.publisher.PublishUserCreated(ctx, events.NewUserCreated(user)); err != nil {
		metrics.EventsPublished.WithLabelValues("failed").Inc()
		log.Printf("⚠️  Failed to publish %s for %s: %v", events.UserCreated, user.ExternalUserID, err)
		return
	}
	metrics.EventsPublished.WithLabelValues("published").Inc()
}
