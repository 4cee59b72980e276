package core

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// TokenRepository stores token bundles keyed by external user id. Saving an
// existing user replaces the whole bundle; partial updates do not exist.
type TokenRepository interface {
	Save(ctx context.Context, bundle *TokenBundle) error

	Find(ctx context.Context, userID string) (*TokenBundle, error)

	Delete(ctx context.Context, userID string) error
}

// StateStore tracks login states issued by BeginLogin. States are single
// use: ConsumeState removes the state and returns ErrNotFound when it was
// never issued, already consumed, or expired.
type StateStore interface {
	SaveState(ctx context.Context, state string, expiresAt time.Time) error

	ConsumeState(ctx context.Context, state string) error
}
