package storage

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"
	"sync"
	"time"

	"notesd/core"
)

// TestEncryptionKey is the fixed AES-256 key unit tests construct their
// CryptoService with, so fixtures below decrypt cleanly.
const TestEncryptionKey = "12345678901234567890123456789012"

func testEncrypt(plaintext string) string {
	block, _ := aes.NewCipher([]byte(TestEncryptionKey))
	gcm, _ := cipher.NewGCM(block)
	nonce := make([]byte, gcm.NonceSize())
	io.ReadFull(rand.Reader, nonce)
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext)
}

// Fixture bundles: one with a live access token, one whose access token
// expired an hour ago.
func FreshBundle() *core.TokenBundle {
	return &core.TokenBundle{
		UserID:       "ms_user_1",
		AccessToken:  "mock_access_token_1",
		RefreshToken: testEncrypt("mock_refresh_token_1"),
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func ExpiredBundle() *core.TokenBundle {
	return &core.TokenBundle{
		UserID:       "ms_user_2",
		AccessToken:  "mock_access_token_2",
		RefreshToken: testEncrypt("mock_refresh_token_2"),
		ExpiresAt:    time.Now().Add(-time.Hour),
	}
}

// MockStore is an in-memory store that tracks method calls for
// verification in tests.
type MockStore struct {
	mu      sync.Mutex
	bundles map[string]core.TokenBundle
	states  map[string]time.Time

	SaveCalls         int
	FindCalls         int
	DeleteCalls       int
	SaveStateCalls    int
	ConsumeStateCalls int
}

func NewMockStore(seed ...*core.TokenBundle) *MockStore {
	store := &MockStore{
		bundles: make(map[string]core.TokenBundle),
		states:  make(map[string]time.Time),
	}

	for _, bundle := range seed {
		store.bundles[bundle.UserID] = *bundle
	}

	return store
}

func (m *MockStore) Save(ctx context.Context, bundle *core.TokenBundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls++
	m.bundles[bundle.UserID] = *bundle
	return nil
}

func (m *MockStore) Find(ctx context.Context, userID string) (*core.TokenBundle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FindCalls++

	bundle, ok := m.bundles[userID]
	if !ok {
		return nil, core.ErrNotFound
	}

	return &bundle, nil
}

func (m *MockStore) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls++
	delete(m.bundles, userID)
	return nil
}

func (m *MockStore) SaveState(ctx context.Context, state string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveStateCalls++
	m.states[state] = expiresAt
	return nil
}

func (m *MockStore) ConsumeState(ctx context.Context, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ConsumeStateCalls++

	expiresAt, ok := m.states[state]
	if !ok {
		return core.ErrNotFound
	}

	delete(m.states, state)

	if time.Now().After(expiresAt) {
		return core.ErrNotFound
	}

	return nil
}
