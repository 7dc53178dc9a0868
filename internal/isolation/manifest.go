package isolation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sc-go/internal/sc"
)

// Manifest describes an external plugin. One YAML file per plugin.
type Manifest struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Command     string   `yaml:"command"`
	Args        []string `yaml:"args"`
	Priority    int      `yaml:"priority"`
	MinSafety   string   `yaml:"min_safety"`
	Timeout     string   `yaml:"timeout"` // Go duration, e.g. "30s"

	// Path is the file the manifest was read from.
	Path string `yaml:"-"`
}

// LoadManifests reads every *.yaml and *.yml file in dir. A missing directory
// yields no manifests.
func LoadManifests(dir string) ([]*Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading manifest directory: %w", err)
	}

	var manifests []*Manifest
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}
		m, err := ReadManifest(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}

// ReadManifest parses and validates a single manifest file.
func ReadManifest(path string) (*Manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(content, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	m.Path = path
	if m.Name == "" {
		return nil, fmt.Errorf("manifest %s: name is required", path)
	}
	if m.Command == "" {
		return nil, fmt.Errorf("manifest %s: command is required", path)
	}
	return &m, nil
}

// Config turns the manifest into an adapter configuration. Unset fields take
// the given mode, timeout and bwrap arguments. A relative command containing
// a slash is resolved against the manifest's directory.
func (m *Manifest) Config(mode Mode, timeout time.Duration, bwrapArgs []string) (Config, error) {
	command := m.Command
	if !filepath.IsAbs(command) && strings.Contains(command, "/") && m.Path != "" {
		command = filepath.Join(filepath.Dir(m.Path), command)
	}
	cfg := Config{
		Name:        m.Name,
		Description: m.Description,
		Command:     command,
		Args:        m.Args,
		Priority:    m.Priority,
		MinSafety:   sc.Safe,
		Timeout:     timeout,
		Mode:        mode,
		BwrapArgs:   bwrapArgs,
	}
	if m.MinSafety != "" {
		level, err := sc.ParseSafetyLevel(m.MinSafety)
		if err != nil {
			return Config{}, fmt.Errorf("manifest %s: %w", m.Name, err)
		}
		cfg.MinSafety = level
	}
	if m.Timeout != "" {
		d, err := time.ParseDuration(m.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("manifest %s: invalid timeout: %w", m.Name, err)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}
