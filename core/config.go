package core

import (
	"fmt"
	"time"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8000"`

	// Microsoft identity platform configuration
	MicrosoftClientID     string `env:"MICROSOFT_CLIENT_ID,required"`
	MicrosoftClientSecret string `env:"MICROSOFT_CLIENT_SECRET,required"`
	MicrosoftTenantID     string `env:"MICROSOFT_TENANT_ID" envDefault:"common"`
	RedirectURI           string `env:"REDIRECT_URI" envDefault:"http://localhost:8000/auth/callback"`
	FrontendURL           string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`

	// JWTSecret signs session tokens; EncryptionKey (32 bytes, AES-256)
	// encrypts stored refresh tokens. Neither has a default on purpose.
	JWTSecret     string `env:"JWT_SECRET,required"`
	EncryptionKey string `env:"TOKEN_ENCRYPTION_KEY,required"`

	// Outbound HTTP calls share one timeout; there are no retries.
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`

	// MeetingsFetchFallback selects what happens when both the filtered and
	// the fallback meetings query fail: "placeholder" serves fixed demo
	// meetings, "propagate" surfaces the error.
	MeetingsFetchFallback string `env:"MEETINGS_FETCH_FALLBACK" envDefault:"placeholder"`

	// Token store selection
	StoreType     string `env:"STORE_TYPE" envDefault:"memory"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"notesd.db"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`
}

func (c *Config) Validate() error {
	switch c.MeetingsFetchFallback {
	case "placeholder", "propagate":
	default:
		return fmt.Errorf("invalid MEETINGS_FETCH_FALLBACK %q (expected placeholder or propagate)", c.MeetingsFetchFallback)
	}

	switch c.StoreType {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("invalid STORE_TYPE %q (expected memory, sqlite, or redis)", c.StoreType)
	}

	return nil
}
