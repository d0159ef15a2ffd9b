package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ifc-query-api/res/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type sessionStore struct {
	*storeImpl
}

func NewSessionStore(rootStore *storeImpl) *sessionStore {
	return &sessionStore{storeImpl: rootStore}
}

// MUTATIONS

func (sStore *sessionStore) Create(ctx context.Context, userID, accessToken string) (*store.Session, error) {
	if userID == "" || accessToken == "" {
		return nil, store.ErrInvalidInput
	}

	now := time.Now().UTC()
	newSession := &store.Session{
		// A v4 UUID carries 122 random bits, enough to make handle
		// collisions negligible.
		ID:          uuid.NewString(),
		UserID:      userID,
		AccessToken: accessToken,
		ExpiresAt:   now.Add(store.SessionTTL),
		CreatedAt:   now,
	}

	result := sStore.db.WithContext(ctx).Create(newSession)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, store.ErrUniqueViolation
		}
		return nil, result.Error
	} else if result.RowsAffected != 1 {
		return nil, fmt.Errorf("failed to create session (user: %s)", userID)
	}

	return newSession, nil
}

func (sStore *sessionStore) Delete(ctx context.Context, ID string) error {
	// Deleting a nonexistent session is a no-op, not an error.
	result := sStore.db.WithContext(ctx).Where("session_id = ?", ID).Delete(&store.Session{})
	if result.Error != nil {
		return result.Error
	}

	return nil
}

func (sStore *sessionStore) DeleteExpired(ctx context.Context, expirationPoint time.Time) error {
	result := sStore.db.WithContext(ctx).Where("expires_at <= ?", expirationPoint).Delete(&store.Session{})
	if result.Error != nil {
		return result.Error
	}

	return nil
}

// QUERIES

// Get treats an expired row as absent by query predicate; no sweep or
// delete happens on the read path.
func (sStore *sessionStore) Get(ctx context.Context, ID string) (*store.Session, error) {
	var session store.Session
	result := sStore.db.WithContext(ctx).
		Where("session_id = ? AND expires_at > ?", ID, time.Now().UTC()).
		First(&session)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &session, nil
}
