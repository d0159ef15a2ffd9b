package store

import (
	"context"
	"time"
)

type Store interface {
	Users() UserStore
	Sessions() SessionStore
	Events() EventStore

	// Database access for advanced operations
	GetDB() interface{} // Returns the underlying database connection
}

type UserStore interface {
	Get(ctx context.Context, login string) (*User, error)

	Upsert(ctx context.Context, login, name string) (*User, error)
}

type SessionStore interface {
	Get(ctx context.Context, ID string) (*Session, error)

	Create(ctx context.Context, userID, accessToken string) (*Session, error)
	Delete(ctx context.Context, ID string) error
	DeleteExpired(ctx context.Context, expirationPoint time.Time) error
}

type EventStore interface {
	Append(ctx context.Context, event, user string, properties map[string]interface{}) error
}
