// Package backend opens the storage.Store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/partykeeper/internal/config"
	"github.com/mmynk/partykeeper/internal/storage"
	"github.com/mmynk/partykeeper/internal/storage/jsonfile"
	"github.com/mmynk/partykeeper/internal/storage/redisstore"
	"github.com/mmynk/partykeeper/internal/storage/sqlite"
)

// Provider names accepted in config.Storage.Provider.
const (
	ProviderJSON   = "json"
	ProviderSQLite = "sqlite"
	ProviderRedis  = "redis"
)

// Open returns the configured store. If that backend cannot be opened, the
// failure is logged and the JSON file store is returned instead, so the
// server still starts. An error is returned only when the JSON fallback
// itself cannot be created.
func Open(ctx context.Context, cfg config.Storage, logger *slog.Logger) (storage.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case ProviderJSON, "":
		return openJSON(cfg, logger)
	case ProviderSQLite:
		store, err := sqlite.New(cfg.SQLitePath, cfg.TablePrefix)
		if err == nil {
			logger.Info("Storage initialized", "provider", provider, "database", cfg.SQLitePath)
			return store, nil
		}
		logger.Error("Failed to open storage, falling back to json", "provider", provider, "error", err)
	case ProviderRedis:
		dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
		store, err := redisstore.New(dialCtx, redisstore.Options{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisPrefix,
		})
		if err == nil {
			logger.Info("Storage initialized", "provider", provider, "addr", cfg.RedisAddr)
			return store, nil
		}
		logger.Error("Failed to open storage, falling back to json", "provider", provider, "error", err)
	default:
		logger.Warn("Unknown storage provider, using json", "provider", cfg.Provider)
	}

	return openJSON(cfg, logger)
}

func openJSON(cfg config.Storage, logger *slog.Logger) (storage.Store, error) {
	store, err := jsonfile.New(cfg.JSONPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open json storage: %w", err)
	}
	logger.Info("Storage initialized", "provider", ProviderJSON, "path", store.Path())
	return store, nil
}
