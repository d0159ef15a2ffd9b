package postgresql

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"ifc-query-api/res/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userStore struct {
	*storeImpl
}

func NewUserStore(rootStore *storeImpl) *userStore {
	return &userStore{storeImpl: rootStore}
}

// MUTATIONS

// Upsert inserts or replaces the identity record for login. Last writer
// wins on the display name; the plan column is left untouched on update so
// a re-login never downgrades a paid account.
func (uStore *userStore) Upsert(ctx context.Context, login, name string) (*store.User, error) {
	// Login validation

	if !utf8.ValidString(login) {
		return nil, fmt.Errorf("invalid user login string (%s)", login)
	}

	loginLength := utf8.RuneCountInString(login)
	if loginLength == 0 {
		return nil, fmt.Errorf("invalid user login (empty)")
	} else if loginLength > 256 {
		return nil, fmt.Errorf("invalid user login length (%d > 256)", loginLength)
	}

	// Display name validation

	if !utf8.ValidString(name) {
		return nil, fmt.Errorf("invalid user display name string (%s)", name)
	}
	if utf8.RuneCountInString(name) > 256 {
		return nil, fmt.Errorf("invalid user display name length (%d > 256)", utf8.RuneCountInString(name))
	}

	newUser := &store.User{Login: login, Name: name, Plan: store.UserPlanFree}

	result := uStore.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "login"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(newUser)
	if result.Error != nil {
		return nil, result.Error
	}

	return uStore.Get(ctx, login)
}

// QUERIES

func (uStore *userStore) Get(ctx context.Context, login string) (*store.User, error) {
	var user store.User
	result := uStore.db.WithContext(ctx).Where("login = ?", login).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}
