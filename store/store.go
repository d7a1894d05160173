// Package store persists user records keyed by the identity provider's user id.
package store

import (
	"context"
	"fmt"

	"user-webhook-sync/models"
)

// UserStore creates user records idempotently.
type UserStore interface {
	// CreateUser inserts a record for externalUserID unless one already
	// exists. created reports whether this call inserted it; when false the
	// stored record is returned unchanged.
	CreateUser(ctx context.Context, externalUserID, email string) (user models.User, created bool, err error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// PersistenceError wraps any failure of the underlying database.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
