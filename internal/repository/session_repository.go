package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/oil_storefront/internal/domain"
	"github.com/fjod/oil_storefront/internal/kv"
)

var ErrNoSession = errors.New("no active session")

// SessionRepository persists the logged-in user marker.
type SessionRepository struct {
	store kv.Store
}

func NewSessionRepository(store kv.Store) *SessionRepository {
	return &SessionRepository{store: store}
}

func (r *SessionRepository) GetCurrentUser(ctx context.Context) (domain.AuthUser, error) {
	data, err := r.store.Get(ctx, CurrentUserKey)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return domain.AuthUser{}, ErrNoSession
	}
	if err != nil {
		return domain.AuthUser{}, fmt.Errorf("failed to get session: %w", err)
	}

	var user domain.AuthUser
	if err := json.Unmarshal(data, &user); err != nil {
		return domain.AuthUser{}, fmt.Errorf("unmarshal session failed: %w", err)
	}
	return user, nil
}

func (r *SessionRepository) SetCurrentUser(ctx context.Context, user domain.AuthUser) error {
	return kv.SaveJSON(ctx, r.store, CurrentUserKey, user)
}

func (r *SessionRepository) ClearCurrentUser(ctx context.Context) error {
	return r.store.Delete(ctx, CurrentUserKey)
}
