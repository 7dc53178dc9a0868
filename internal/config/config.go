package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for sc.
type Config struct {
	BaseDir   string          `toml:"base_dir"`
	LogDir    string          `toml:"log_dir"`
	BackupDir string          `toml:"backup_dir"`
	Database  DatabaseConfig  `toml:"database"`
	Safety    SafetyConfig    `toml:"safety"`
	Undo      UndoConfig      `toml:"undo"`
	Plugins   PluginsConfig   `toml:"plugins"`
	Isolation IsolationConfig `toml:"isolation"`
	Archive   ArchiveConfig   `toml:"archive"`
}

// DatabaseConfig represents configuration for the operation history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type string `toml:"type"`           // "sqlite" or "memory"
	Path string `toml:"path,omitempty"` // only used for type=sqlite
}

// SafetyConfig holds the highest safety level acted on by default.
type SafetyConfig struct {
	MaxLevel string `toml:"max_level"` // SAFE, CAUTION, ADVANCED or DANGEROUS
}

// UndoConfig controls backups of cleaned files.
type UndoConfig struct {
	// Disabled turns off backups; cleans are then neither logged nor reversible.
	Disabled bool `toml:"disabled"`
}

// PluginsConfig selects and tunes the built-in plugins.
type PluginsConfig struct {
	Disabled        []string `toml:"disabled"` // plugin names to leave unregistered
	TempMinAgeDays  int      `toml:"temp_min_age_days"`
	JournalKeepDays int      `toml:"journal_keep_days"`
	Protect         []string `toml:"protect"` // patterns never reported by directory plugins
	ProtectFile     string   `toml:"protect_file,omitempty"`
	ManifestDir     string   `toml:"manifest_dir,omitempty"` // YAML manifests of external plugins
}

// IsolationConfig controls running plugins in a separate process.
type IsolationConfig struct {
	Mode           string   `toml:"mode"` // "none", "subprocess", "bwrap" or "userns"
	TimeoutSeconds int      `toml:"timeout_seconds"`
	BwrapArgs      []string `toml:"bwrap_args,omitempty"`
}

// ArchiveConfig controls archiving of backups before they are pruned.
type ArchiveConfig struct {
	Enabled    bool             `toml:"enabled"`
	Vault      VaultConfig      `toml:"vault"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// EncryptionConfig holds paths to the age key pair used for encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// VaultConfig represents configuration for an archive backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"` // for S3-compatible stores
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// Default values applied by NewConfig and ApplyDefaults.
const (
	DefaultMaxLevel        = "CAUTION"
	DefaultTempMinAgeDays  = 7
	DefaultJournalKeepDays = 30
	DefaultTimeoutSeconds  = 120
)

// NewConfig creates a new Config rooted at baseDir with default values.
func NewConfig(baseDir string) *Config {
	cfg := &Config{BaseDir: baseDir}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in every unset field that has a default.
func (c *Config) ApplyDefaults() {
	if c.LogDir == "" && c.BaseDir != "" {
		c.LogDir = filepath.Join(c.BaseDir, "log")
	}
	if c.BackupDir == "" && c.BaseDir != "" {
		c.BackupDir = filepath.Join(c.BaseDir, "backups")
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type == "sqlite" && c.Database.Path == "" && c.BaseDir != "" {
		c.Database.Path = filepath.Join(c.BaseDir, "sc.db")
	}
	if c.Safety.MaxLevel == "" {
		c.Safety.MaxLevel = DefaultMaxLevel
	}
	if c.Plugins.TempMinAgeDays <= 0 {
		c.Plugins.TempMinAgeDays = DefaultTempMinAgeDays
	}
	if c.Plugins.JournalKeepDays <= 0 {
		c.Plugins.JournalKeepDays = DefaultJournalKeepDays
	}
	if c.Isolation.Mode == "" {
		c.Isolation.Mode = "none"
	}
	if c.Isolation.TimeoutSeconds <= 0 {
		c.Isolation.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Archive.Vault.Type == "" {
		c.Archive.Vault.Type = "filesystem"
	}
	if c.Archive.Vault.Name == "" {
		c.Archive.Vault.Name = "archive"
	}
	if c.Archive.Vault.Type == "filesystem" && c.Archive.Vault.FSVaultRoot == "" && c.BaseDir != "" {
		c.Archive.Vault.FSVaultRoot = filepath.Join(c.BaseDir, "archive")
	}
	if c.Archive.Encryption.Type == "" {
		c.Archive.Encryption.Type = "none"
	}
	if c.Archive.Encryption.PublicKeyPath == "" && c.BaseDir != "" {
		c.Archive.Encryption.PublicKeyPath = filepath.Join(c.BaseDir, "keys", "sc.pub")
	}
	if c.Archive.Encryption.PrivateKeyPath == "" && c.BaseDir != "" {
		c.Archive.Encryption.PrivateKeyPath = filepath.Join(c.BaseDir, "keys", "sc.key")
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader. Defaults are not applied.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path and applies defaults.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
