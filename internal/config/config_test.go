package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir:   "/home/user/.local/share/sc",
		LogDir:    "/home/user/.local/share/sc/log",
		BackupDir: "/srv/sc-backups",
		Database:  DatabaseConfig{Type: "sqlite", Path: "/home/user/.local/share/sc/sc.db"},
		Safety:    SafetyConfig{MaxLevel: "ADVANCED"},
		Undo:      UndoConfig{Disabled: true},
		Plugins: PluginsConfig{
			Disabled:        []string{"journal"},
			TempMinAgeDays:  14,
			JournalKeepDays: 10,
			Protect:         []string{"*.kdbx", "~/.cache/keep"},
		},
		Isolation: IsolationConfig{Mode: "bwrap", TimeoutSeconds: 30, BwrapArgs: []string{"--ro-bind", "/", "/"}},
		Archive: ArchiveConfig{
			Enabled: true,
			Vault:   VaultConfig{Type: "s3", Name: "offsite", S3Bucket: "bucket", S3Region: "eu-west-1"},
			Encryption: EncryptionConfig{
				Type:           "age",
				PublicKeyPath:  "/home/user/.local/share/sc/keys/sc.pub",
				PrivateKeyPath: "/home/user/.local/share/sc/keys/sc.key",
			},
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.BackupDir != original.BackupDir {
		t.Errorf("BackupDir = %q, want %q", got.BackupDir, original.BackupDir)
	}
	if got.Database.Path != original.Database.Path {
		t.Errorf("Database.Path = %q, want %q", got.Database.Path, original.Database.Path)
	}
	if got.Safety.MaxLevel != "ADVANCED" {
		t.Errorf("Safety.MaxLevel = %q, want %q", got.Safety.MaxLevel, "ADVANCED")
	}
	if !got.Undo.Disabled {
		t.Error("Undo.Disabled = false, want true")
	}
	if len(got.Plugins.Protect) != 2 {
		t.Fatalf("len(Plugins.Protect) = %d, want 2", len(got.Plugins.Protect))
	}
	if got.Isolation.Mode != "bwrap" || len(got.Isolation.BwrapArgs) != 3 {
		t.Errorf("Isolation = %+v, want bwrap with 3 args", got.Isolation)
	}
	if got.Archive.Vault.S3Bucket != "bucket" {
		t.Errorf("Archive.Vault.S3Bucket = %q, want %q", got.Archive.Vault.S3Bucket, "bucket")
	}
	if got.Archive.Encryption.PrivateKeyPath != original.Archive.Encryption.PrivateKeyPath {
		t.Errorf("Archive.Encryption.PrivateKeyPath = %q, want %q",
			got.Archive.Encryption.PrivateKeyPath, original.Archive.Encryption.PrivateKeyPath)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/sc")

	checks := []struct {
		name string
		got  string
		want string
	}{
		{"LogDir", cfg.LogDir, "/data/sc/log"},
		{"BackupDir", cfg.BackupDir, "/data/sc/backups"},
		{"Database.Type", cfg.Database.Type, "sqlite"},
		{"Database.Path", cfg.Database.Path, "/data/sc/sc.db"},
		{"Safety.MaxLevel", cfg.Safety.MaxLevel, "CAUTION"},
		{"Isolation.Mode", cfg.Isolation.Mode, "none"},
		{"Archive.Vault.FSVaultRoot", cfg.Archive.Vault.FSVaultRoot, "/data/sc/archive"},
		{"Archive.Encryption.Type", cfg.Archive.Encryption.Type, "none"},
		{"Archive.Encryption.PublicKeyPath", cfg.Archive.Encryption.PublicKeyPath, "/data/sc/keys/sc.pub"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
	if cfg.Plugins.TempMinAgeDays != DefaultTempMinAgeDays {
		t.Errorf("Plugins.TempMinAgeDays = %d, want %d", cfg.Plugins.TempMinAgeDays, DefaultTempMinAgeDays)
	}
	if cfg.Isolation.TimeoutSeconds != DefaultTimeoutSeconds {
		t.Errorf("Isolation.TimeoutSeconds = %d, want %d", cfg.Isolation.TimeoutSeconds, DefaultTimeoutSeconds)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		BaseDir:  "/data/sc",
		Database: DatabaseConfig{Type: "memory"},
		Safety:   SafetyConfig{MaxLevel: "SAFE"},
	}
	cfg.ApplyDefaults()

	if cfg.Database.Path != "" {
		t.Errorf("memory database got a path: %q", cfg.Database.Path)
	}
	if cfg.Safety.MaxLevel != "SAFE" {
		t.Errorf("Safety.MaxLevel = %q, want %q", cfg.Safety.MaxLevel, "SAFE")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("config file not created: %v", err)
		}
		if !strings.Contains(string(data), "max_level = \"CAUTION\"") {
			t.Errorf("config file missing safety level:\n%s", data)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		cfg := NewConfig(dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
	})

	t.Run("applies defaults to sparse file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		content := "base_dir = \"" + dir + "\"\n[safety]\nmax_level = \"SAFE\"\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing config: %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Safety.MaxLevel != "SAFE" {
			t.Errorf("Safety.MaxLevel = %q, want %q", got.Safety.MaxLevel, "SAFE")
		}
		if got.BackupDir != filepath.Join(dir, "backups") {
			t.Errorf("BackupDir = %q, want %q", got.BackupDir, filepath.Join(dir, "backups"))
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/config.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
