package app

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"sc-go/internal/config"
	scfs "sc-go/internal/fs"
	"sc-go/internal/isolation"
	"sc-go/internal/plugins"
	"sc-go/internal/privilege"
	"sc-go/internal/sc"
)

// Keys of the built-in plugins, accepted in [plugins] disabled and by
// plugin-worker --plugin.
const (
	KeyTempFiles    = "temp_files"
	KeyThumbnails   = "thumbnails"
	KeyBrowserCache = "browser_cache"
	KeyAptCache     = "apt_cache"
	KeyJournal      = "journal"
)

// WorkerCommand is the hidden subcommand that serves one built-in plugin
// call for the isolation adapter.
const WorkerCommand = "plugin-worker"

type builtin struct {
	key    string
	plugin sc.Plugin
}

// pluginEnv holds what the built-in plugins are constructed from.
type pluginEnv struct {
	cfg    *config.Config
	home   string
	fsmgr  sc.FilesystemManager
	runner privilege.Runner
	clock  sc.Clock
	logger sc.Logger
}

// protectMatcher combines configured patterns, the protect file and sc's own
// data directories.
func (e pluginEnv) protectMatcher() (*scfs.ProtectMatcher, error) {
	patterns := append([]string{}, e.cfg.Plugins.Protect...)
	if e.cfg.Plugins.ProtectFile != "" {
		fromFile, err := scfs.ParseProtectFile(e.cfg.Plugins.ProtectFile)
		if err != nil {
			return nil, fmt.Errorf("reading protect file: %w", err)
		}
		patterns = append(patterns, fromFile...)
	}
	for _, dir := range []string{e.cfg.BaseDir, e.cfg.BackupDir} {
		if dir != "" {
			patterns = append(patterns, dir)
		}
	}
	return scfs.NewProtectMatcher(patterns, e.home), nil
}

// builtins constructs every enabled built-in plugin.
func (e pluginEnv) builtins() ([]builtin, error) {
	protect, err := e.protectMatcher()
	if err != nil {
		return nil, err
	}
	preserve := !e.cfg.Undo.Disabled

	dirPlugin := func(cfg plugins.DirectoryConfig) sc.Plugin {
		cfg.PreserveForBackup = preserve
		return plugins.NewDirectoryPlugin(cfg, e.fsmgr, e.clock, e.logger)
	}

	all := []builtin{
		{KeyTempFiles, dirPlugin(plugins.TempFilesConfig(e.home, e.cfg.Plugins.TempMinAgeDays, protect))},
		{KeyThumbnails, dirPlugin(plugins.ThumbnailsConfig(e.home, protect))},
		{KeyBrowserCache, dirPlugin(plugins.BrowserCacheConfig(e.home, protect))},
		{KeyAptCache, plugins.NewAptCachePlugin(plugins.DefaultAptCacheDir, e.fsmgr, e.runner, e.logger)},
		{KeyJournal, plugins.NewJournalPlugin(e.cfg.Plugins.JournalKeepDays, e.runner, e.logger)},
	}

	var enabled []builtin
	for _, b := range all {
		if isDisabled(e.cfg, b.key, b.plugin.Name()) {
			e.logger.Debug("plugin disabled by config", "plugin", b.plugin.Name())
			continue
		}
		enabled = append(enabled, b)
	}
	return enabled, nil
}

// isDisabled matches the disabled list against a plugin key or its name.
func isDisabled(cfg *config.Config, key, name string) bool {
	return slices.ContainsFunc(cfg.Plugins.Disabled, func(d string) bool {
		d = strings.TrimSpace(d)
		return d == key || strings.EqualFold(d, name)
	})
}

// buildRegistry registers the built-in plugins, wrapped in isolation adapters
// when an isolation mode is configured, and the external manifest plugins.
// exe is the sc binary that serves isolated built-ins.
func (e pluginEnv) buildRegistry(exe string, ids sc.IDGenerator) (*sc.PluginRegistry, error) {
	mode, err := isolation.ParseMode(e.cfg.Isolation.Mode)
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(e.cfg.Isolation.TimeoutSeconds) * time.Second

	builtins, err := e.builtins()
	if err != nil {
		return nil, err
	}

	registry := sc.NewPluginRegistry()
	for _, b := range builtins {
		p := b.plugin
		if mode != isolation.ModeNone {
			p = isolation.NewAdapter(isolation.Config{
				Name:        p.Name(),
				Description: p.Description(),
				Command:     exe,
				Args:        []string{WorkerCommand, "--plugin", b.key},
				Priority:    sc.PriorityOf(p),
				MinSafety:   sc.Safe,
				Timeout:     timeout,
				Mode:        mode,
				BwrapArgs:   e.cfg.Isolation.BwrapArgs,
			}, ids, e.logger)
		}
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}

	if e.cfg.Plugins.ManifestDir == "" {
		return registry, nil
	}
	manifests, err := isolation.LoadManifests(e.cfg.Plugins.ManifestDir)
	if err != nil {
		return nil, fmt.Errorf("loading plugin manifests: %w", err)
	}
	for _, m := range manifests {
		if isDisabled(e.cfg, m.Name, m.Name) {
			continue
		}
		acfg, err := m.Config(mode, timeout, e.cfg.Isolation.BwrapArgs)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(isolation.NewAdapter(acfg, ids, e.logger)); err != nil {
			return nil, fmt.Errorf("registering %s: %w", m.Path, err)
		}
		e.logger.Debug("external plugin registered", "plugin", m.Name, "manifest", m.Path)
	}
	return registry, nil
}

// ServeWorker answers one isolation request for the built-in plugin key,
// reading the request from r and writing the response to w.
func ServeWorker(ctx context.Context, cfg *config.Config, home, key string, r io.Reader, w io.Writer, logger sc.Logger) error {
	if logger == nil {
		logger = sc.NewNopLogger()
	}
	env := pluginEnv{
		cfg:    cfg,
		home:   home,
		fsmgr:  scfs.NewOSFilesystemManager(),
		runner: privilege.NewExecRunner(logger),
		clock:  sc.RealClock{},
		logger: logger,
	}
	builtins, err := env.builtins()
	if err != nil {
		return err
	}
	for _, b := range builtins {
		if b.key == key {
			return isolation.Serve(ctx, b.plugin, r, w)
		}
	}
	return fmt.Errorf("%w: %s", sc.ErrPluginNotFound, key)
}
