package database

import (
	"fmt"
	"os"
	"path/filepath"

	"sc-go/internal/config"
	"sc-go/internal/sc"
)

// NewDatabaseFromConfig creates a Database implementation based on the database config type.
// The returned database is migrated to the latest schema.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, clock sc.Clock) (sc.Database, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("path required for sqlite database")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		return NewSQLiteDatabase(cfg.Path, clock)
	case "memory":
		return NewSQLiteDatabase(":memory:", clock)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
