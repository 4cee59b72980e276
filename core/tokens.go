package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotAuthenticated = errors.New("user not authenticated with identity provider")
	ErrRefreshFailed    = errors.New("stored token refresh failed")
)

// TokenService maps external user ids to provider token bundles and
// transparently refreshes expired access tokens on read.
type TokenService struct {
	repo     TokenRepository
	provider IdentityProvider
	crypto   *CryptoService
	now      func() time.Time
}

func NewTokenService(repo TokenRepository, provider IdentityProvider, crypto *CryptoService) *TokenService {
	return &TokenService{
		repo:     repo,
		provider: provider,
		crypto:   crypto,
		now:      time.Now,
	}
}

// SetNow overrides the time function (for testing).
func (s *TokenService) SetNow(fn func() time.Time) {
	s.now = fn
}

// Store saves a fresh token bundle for the user, replacing any prior one.
func (s *TokenService) Store(ctx context.Context, userID string, tokens *OAuthTokens) error {
	encrypted, err := s.crypto.EncryptToken(tokens.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	bundle := &TokenBundle{
		UserID:       userID,
		AccessToken:  tokens.AccessToken,
		RefreshToken: encrypted,
		ExpiresAt:    s.now().Add(time.Duration(tokens.ExpiresIn) * time.Second),
	}

	if err := s.repo.Save(ctx, bundle); err != nil {
		return fmt.Errorf("failed to save token bundle: %w", err)
	}

	return nil
}

// ValidAccessToken returns an access token usable against the resource API.
//
// Unknown users fail with ErrNotAuthenticated before any network call. An
// expired bundle triggers exactly one refresh; the refresh replaces the
// whole bundle, keeping the prior refresh token when the provider omits a
// new one. A failed refresh is not retried: the bundle is dropped and the
// user must redo the full login.
func (s *TokenService) ValidAccessToken(ctx context.Context, userID string) (string, error) {
	bundle, err := s.repo.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotAuthenticated
		}
		return "", fmt.Errorf("failed to find token bundle: %w", err)
	}

	if s.now().Before(bundle.ExpiresAt) {
		return bundle.AccessToken, nil
	}

	refreshToken, err := s.crypto.DecryptToken(bundle.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	refreshed, err := s.provider.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		_ = s.repo.Delete(ctx, userID)
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	nextRefresh := refreshed.RefreshToken
	if nextRefresh == "" {
		nextRefresh = refreshToken
	}

	encrypted, err := s.crypto.EncryptToken(nextRefresh)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	bundle = &TokenBundle{
		UserID:       userID,
		AccessToken:  refreshed.AccessToken,
		RefreshToken: encrypted,
		ExpiresAt:    s.now().Add(time.Duration(refreshed.ExpiresIn) * time.Second),
	}

	if err := s.repo.Save(ctx, bundle); err != nil {
		return "", fmt.Errorf("failed to save refreshed bundle: %w", err)
	}

	return refreshed.AccessToken, nil
}
