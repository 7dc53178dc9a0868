package database

import (
	"path/filepath"
	"testing"

	"sc-go/internal/config"
)

func TestNewDatabaseFromConfig(t *testing.T) {
	t.Run("memory database", func(t *testing.T) {
		cfg := config.DatabaseConfig{Type: "memory"}
		got, err := NewDatabaseFromConfig(cfg, nil)
		if err != nil {
			t.Fatalf("NewDatabaseFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if pending, err := got.GetPendingMigrations(); err != nil || len(pending) != 0 {
			t.Errorf("GetPendingMigrations() = %v, %v; want none", pending, err)
		}
	})

	t.Run("sqlite database creates parent directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "sc.db")
		cfg := config.DatabaseConfig{Type: "sqlite", Path: path}
		got, err := NewDatabaseFromConfig(cfg, nil)
		if err != nil {
			t.Fatalf("NewDatabaseFromConfig() unexpected error: %v", err)
		}
		got.Close()
	})

	t.Run("sqlite database without path", func(t *testing.T) {
		cfg := config.DatabaseConfig{Type: "sqlite"}
		if _, err := NewDatabaseFromConfig(cfg, nil); err == nil {
			t.Error("NewDatabaseFromConfig() expected error for missing path")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		cfg := config.DatabaseConfig{Type: "postgres"}
		if _, err := NewDatabaseFromConfig(cfg, nil); err == nil {
			t.Error("NewDatabaseFromConfig() expected error for unknown type")
		}
	})
}
