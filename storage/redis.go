package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"notesd/core"
)

const (
	bundleKeyPrefix = "token_bundle:"
	stateKeyPrefix  = "login_state:"

	// bundleTTL matches the Microsoft refresh token lifetime; a bundle older
	// than that can never be refreshed and only wastes space.
	bundleTTL = 90 * 24 * time.Hour
)

// RedisStore is the production token and state store for multi-instance
// deployments. State expiry rides on key TTLs.
type RedisStore struct {
	client *goredis.Client
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisStore(cfg *RedisConfig) (*RedisStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Health checks Redis connectivity.
func (r *RedisStore) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type bundleData struct {
	UserID       string    `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (r *RedisStore) Save(ctx context.Context, bundle *core.TokenBundle) error {
	data := bundleData{
		UserID:       bundle.UserID,
		AccessToken:  bundle.AccessToken,
		RefreshToken: bundle.RefreshToken,
		ExpiresAt:    bundle.ExpiresAt,
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal token bundle: %w", err)
	}

	key := bundleKeyPrefix + bundle.UserID
	if err := r.client.Set(ctx, key, jsonData, bundleTTL).Err(); err != nil {
		return fmt.Errorf("failed to store token bundle: %w", err)
	}

	return nil
}

func (r *RedisStore) Find(ctx context.Context, userID string) (*core.TokenBundle, error) {
	key := bundleKeyPrefix + userID

	jsonData, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get token bundle: %w", err)
	}

	var data bundleData
	if err := json.Unmarshal([]byte(jsonData), &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token bundle: %w", err)
	}

	return &core.TokenBundle{
		UserID:       data.UserID,
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
		ExpiresAt:    data.ExpiresAt,
	}, nil
}

func (r *RedisStore) Delete(ctx context.Context, userID string) error {
	return r.client.Del(ctx, bundleKeyPrefix+userID).Err()
}

// SaveState stores the state with a TTL; SetNX guards against the
// astronomically unlikely collision.
func (r *RedisStore) SaveState(ctx context.Context, state string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("state already expired")
	}

	ok, err := r.client.SetNX(ctx, stateKeyPrefix+state, "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store login state: %w", err)
	}
	if !ok {
		return core.ErrAlreadyExists
	}

	return nil
}

// ConsumeState deletes the state; a missing key means it was never issued,
// already used, or aged out via TTL.
func (r *RedisStore) ConsumeState(ctx context.Context, state string) error {
	deleted, err := r.client.Del(ctx, stateKeyPrefix+state).Result()
	if err != nil {
		return fmt.Errorf("failed to consume login state: %w", err)
	}
	if deleted == 0 {
		return core.ErrNotFound
	}

	return nil
}
