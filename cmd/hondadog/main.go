package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vbonduro/hondadog/internal/api"
	"github.com/vbonduro/hondadog/internal/cache"
	"github.com/vbonduro/hondadog/internal/cache/memory"
	"github.com/vbonduro/hondadog/internal/cache/redis"
	"github.com/vbonduro/hondadog/internal/config"
	"github.com/vbonduro/hondadog/internal/db"
	"github.com/vbonduro/hondadog/internal/logging"
	"github.com/vbonduro/hondadog/internal/service"
	"github.com/vbonduro/hondadog/internal/store"
	"github.com/vbonduro/hondadog/internal/telemetry"
	"github.com/vbonduro/hondadog/internal/web"
	"github.com/vbonduro/hondadog/internal/web/templates"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, cleanup, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.New(cfg.TraceSampleRatio)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		return
	}
	defer func() {
		if err := tel.Shutdown(); err != nil {
			logger.Error("failed to shut down tracing", "error", err)
		}
	}()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	locationCache, closeCache, err := newLocationCache(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize cache", "backend", cfg.CacheBackend, "error", err)
		return
	}
	defer closeCache()

	client, err := api.NewClient(cfg.APIBaseURL, cfg.APITimeout)
	if err != nil {
		logger.Error("failed to create backend client", "error", err)
		return
	}

	key, err := csrfKey(cfg.CSRFKey)
	if err != nil {
		logger.Error("failed to derive csrf key", "error", err)
		return
	}
	if cfg.CSRFKey == "" {
		logger.Warn("CSRF_KEY is not set; using a random key, forms will break across restarts")
	}

	svc := service.NewDaycareService(
		client,
		store.NewFavoriteStore(database),
		store.NewOptionStore(database),
		locationCache,
		cfg.CacheTTL,
		logger,
	)
	server := web.NewServer(svc, templates.FS, web.Options{
		CookieSecure: cfg.CookieSecure,
		CSRFKey:      key,
		StoreLimit:   cfg.StoreLimit,
	}, logger)

	logger.Info("backend configured", "api_base_url", cfg.APIBaseURL, "cache", cfg.CacheBackend)
	if err := server.ListenAndServe(ctx, cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

// newLocationCache builds the store lookup cache selected by CACHE_BACKEND.
// "none" yields a nil cache, which disables caching.
func newLocationCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Cache, func(), error) {
	switch cfg.CacheBackend {
	case "memory":
		c := memory.NewMemoryCache()
		go c.Run(ctx, time.Minute)
		logger.Info("using in-memory cache", "ttl", cfg.CacheTTL)
		return c, func() {}, nil
	case "redis":
		c := redis.NewRedisCache(redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := c.Ping(pingCtx); err != nil {
			_ = c.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("using redis cache", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		return c, func() {
			if err := c.Close(); err != nil {
				logger.Error("failed to close redis", "error", err)
			}
		}, nil
	case "none":
		return nil, func() {}, nil
	}
	return nil, nil, errors.New("unknown cache backend " + cfg.CacheBackend)
}

// csrfKey derives the 32-byte CSRF signing key from the configured secret,
// or generates a random one when none is set.
func csrfKey(secret string) ([]byte, error) {
	if secret != "" {
		sum := sha256.Sum256([]byte(secret))
		return sum[:], nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}
