package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mailtriage/mailtriage/internal/adapters/store"
	"github.com/mailtriage/mailtriage/internal/config"
	"github.com/mailtriage/mailtriage/internal/core"
)

// StoreFactory creates reputation stores based on configuration.
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory.
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{cfg: cfg, logger: logger}
}

// CreateReputationStore creates the configured reputation store backend.
func (f *StoreFactory) CreateReputationStore() (core.ReputationStore, error) {
	c := f.cfg.GetStore()
	switch c.Type {
	case "memory":
		return store.NewMemoryStore(f.logger), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(c.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return store.NewSQLiteStore(c.SQLitePath, f.logger)
	case "mysql":
		return store.NewMySQLStore(c.MySQLDSN, f.logger)
	case "postgres":
		return store.NewPostgresStore(c.PostgresDSN, f.logger)
	case "redis":
		return store.NewRedisStore(c.RedisAddr, c.RedisPassword, c.RedisDB, f.logger)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", c.Type)
	}
}
