package core_test

import (
	"context"
	"testing"
	"time"

	"notesd/core"
	"notesd/core/providers"
	"notesd/storage"

	"github.com/stretchr/testify/assert"
)

func setupTokenService(seed ...*core.TokenBundle) (*core.TokenService, *providers.MockProvider, *storage.MockStore, *core.CryptoService) {
	provider := providers.NewMockProvider()
	store := storage.NewMockStore(seed...)
	crypto, _ := core.NewCryptoService(storage.TestEncryptionKey)
	return core.NewTokenService(store, provider, crypto), provider, store, crypto
}

func TestValidAccessToken_UnknownUser(t *testing.T) {
	service, provider, _, _ := setupTokenService()

	_, err := service.ValidAccessToken(context.Background(), "nobody")

	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
	assert.Equal(t, 0, provider.RefreshAccessTokenCalls, "unknown user must not reach the provider")
}

func TestValidAccessToken_FreshBundle(t *testing.T) {
	service, provider, store, _ := setupTokenService(storage.FreshBundle())

	access, err := service.ValidAccessToken(context.Background(), "ms_user_1")

	assert.NoError(t, err)
	assert.Equal(t, "mock_access_token_1", access)
	assert.Equal(t, 0, provider.RefreshAccessTokenCalls)
	assert.Equal(t, 0, store.SaveCalls)
}

func TestValidAccessToken_ExpiredBundleRefreshes(t *testing.T) {
	service, provider, store, crypto := setupTokenService(storage.ExpiredBundle())

	access, err := service.ValidAccessToken(context.Background(), "ms_user_2")

	assert.NoError(t, err)
	assert.Equal(t, "mock_access_token_2_refreshed", access)
	assert.Equal(t, 1, provider.RefreshAccessTokenCalls)
	assert.Equal(t, 1, store.SaveCalls)

	// Tokens2Refreshed omits a new refresh token; the old one is retained.
	stored, err := store.Find(context.Background(), "ms_user_2")
	assert.NoError(t, err)
	retained, err := crypto.DecryptToken(stored.RefreshToken)
	assert.NoError(t, err)
	assert.Equal(t, "mock_refresh_token_2", retained)
	assert.True(t, stored.ExpiresAt.After(time.Now()))
}

func TestValidAccessToken_RefreshReplacesBundle(t *testing.T) {
	service, provider, store, crypto := setupTokenService()

	encrypted, err := crypto.EncryptToken("mock_refresh_token_1")
	assert.NoError(t, err)
	err = store.Save(context.Background(), &core.TokenBundle{
		UserID:       "ms_user_1",
		AccessToken:  "stale_access_token",
		RefreshToken: encrypted,
		ExpiresAt:    time.Now().Add(-time.Minute),
	})
	assert.NoError(t, err)

	access, err := service.ValidAccessToken(context.Background(), "ms_user_1")

	assert.NoError(t, err)
	assert.Equal(t, "mock_access_token_1_refreshed", access)
	assert.Equal(t, 1, provider.RefreshAccessTokenCalls)

	stored, err := store.Find(context.Background(), "ms_user_1")
	assert.NoError(t, err)
	assert.Equal(t, "mock_access_token_1_refreshed", stored.AccessToken)
}

func TestValidAccessToken_RefreshFailureDropsBundle(t *testing.T) {
	service, provider, store, crypto := setupTokenService()

	encrypted, err := crypto.EncryptToken("revoked_refresh_token")
	assert.NoError(t, err)
	err = store.Save(context.Background(), &core.TokenBundle{
		UserID:       "ms_user_3",
		AccessToken:  "stale_access_token",
		RefreshToken: encrypted,
		ExpiresAt:    time.Now().Add(-time.Minute),
	})
	assert.NoError(t, err)

	_, err = service.ValidAccessToken(context.Background(), "ms_user_3")

	assert.ErrorIs(t, err, core.ErrRefreshFailed)
	assert.Equal(t, 1, provider.RefreshAccessTokenCalls, "refresh is attempted exactly once")
	assert.Equal(t, 1, store.DeleteCalls)

	// The user is back to square one and must redo the full login.
	_, err = service.ValidAccessToken(context.Background(), "ms_user_3")
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
	assert.Equal(t, 1, provider.RefreshAccessTokenCalls)
}

func TestStore_EncryptsRefreshToken(t *testing.T) {
	service, _, store, crypto := setupTokenService()

	err := service.Store(context.Background(), "ms_user_1", providers.Tokens1)
	assert.NoError(t, err)

	stored, err := store.Find(context.Background(), "ms_user_1")
	assert.NoError(t, err)
	assert.NotEqual(t, providers.Tokens1.RefreshToken, stored.RefreshToken)

	decrypted, err := crypto.DecryptToken(stored.RefreshToken)
	assert.NoError(t, err)
	assert.Equal(t, providers.Tokens1.RefreshToken, decrypted)
}
