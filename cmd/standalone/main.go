package main

import (
	"context"
	"net/http"
	"time"

	"notesd/core"
	"notesd/core/graph"
	"notesd/core/providers"
	"notesd/storage"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	var config core.Config
	if err := env.Parse(&config); err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if err := config.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	crypto, err := core.NewCryptoService(config.EncryptionKey)
	if err != nil {
		logger.Fatal("failed to initialize crypto service", zap.Error(err))
	}

	repo, states, cleanup := initStore(&config, logger)
	defer cleanup()

	provider := providers.NewMicrosoftProvider(&providers.MicrosoftConfig{
		ClientID:     config.MicrosoftClientID,
		ClientSecret: config.MicrosoftClientSecret,
		TenantID:     config.MicrosoftTenantID,
		RedirectURI:  config.RedirectURI,
		Timeout:      config.HTTPTimeout,
	})

	graphFactory := graph.NewFactory(&graph.Config{
		Timeout:  config.HTTPTimeout,
		Fallback: graph.FallbackMode(config.MeetingsFetchFallback),
	}, logger)

	tokens := core.NewTokenService(repo, provider, crypto)
	authService := core.NewAuthService(provider, graphFactory.Client, tokens, states, &config)
	server := core.NewServer(authService, &config, logger)

	logger.Info("starting notesd server",
		zap.String("port", config.Port),
		zap.String("tenant", config.MicrosoftTenantID),
		zap.String("store", config.StoreType),
		zap.String("meetings_fetch_fallback", config.MeetingsFetchFallback),
	)

	if err := http.ListenAndServe(":"+config.Port, server.Router()); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func initStore(config *core.Config, logger *zap.Logger) (core.TokenRepository, core.StateStore, func()) {
	switch config.StoreType {
	case "sqlite":
		store, err := storage.NewSQLiteStore(config.SQLitePath)
		if err != nil {
			logger.Fatal("failed to initialize SQLite store", zap.Error(err))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if n, err := store.DeleteExpiredStates(ctx); err == nil && n > 0 {
			logger.Info("cleared expired login states", zap.Int64("count", n))
		}

		logger.Info("using SQLite store", zap.String("path", config.SQLitePath))
		return store, store, func() { store.Close() }

	case "redis":
		store, err := storage.NewRedisStore(&storage.RedisConfig{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		})
		if err != nil {
			logger.Fatal("failed to initialize Redis store", zap.Error(err))
		}

		logger.Info("using Redis store", zap.String("addr", config.RedisAddr))
		return store, store, func() { store.Close() }

	default:
		logger.Info("using in-memory store (tokens are lost on restart)")
		store := storage.NewMemoryStore()
		return store, store, func() {}
	}
}
