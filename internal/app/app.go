package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"sc-go/internal/archive"
	"sc-go/internal/config"
	"sc-go/internal/database"
	"sc-go/internal/encryption"
	scfs "sc-go/internal/fs"
	"sc-go/internal/model"
	"sc-go/internal/privilege"
	"sc-go/internal/sc"
	"sc-go/internal/ui"
	"sc-go/internal/vault"
)

// ErrArchiveDisabled is returned by archive operations when [archive] is off.
var ErrArchiveDisabled = errors.New("archiving is disabled in the config")

// Options adjust how an SCApp is built. The zero value suits the CLI.
type Options struct {
	Verbose bool
	Stderr  io.Writer // defaults to os.Stderr

	// Home, Runner, Clock and Executable replace host lookups in tests.
	Home       string
	Runner     privilege.Runner
	Clock      sc.Clock
	Executable string
}

// SCApp is the application layer between the CLI and the cleaner core.
// It constructs all dependencies from config, exposes the operations the
// commands need, and closes the database and log file on Close.
type SCApp struct {
	cfg      *config.Config
	db       sc.Database
	fsmgr    sc.FilesystemManager
	undo     *sc.UndoService
	registry *sc.PluginRegistry
	manager  *sc.Manager
	clock    sc.Clock
	run      *Run
	logger   sc.Logger
	logFile  *os.File
	archiver *archive.Archiver
}

// NewSCApp creates a fully wired SCApp from the given config. command names
// the CLI command being run. The caller must call Close when done.
func NewSCApp(cfg *config.Config, command string, opts Options) (*SCApp, error) {
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Clock == nil {
		opts.Clock = sc.RealClock{}
	}

	level, err := sc.ParseSafetyLevel(cfg.Safety.MaxLevel)
	if err != nil {
		return nil, fmt.Errorf("config [safety] max_level: %w", err)
	}

	run := NewRun(command, opts.Clock.Now())
	slogger, logFile, err := newLogger(cfg.LogDir, run.ID, opts.Stderr, opts.Verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	db, err := database.NewDatabaseFromConfig(cfg.Database, opts.Clock)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if opts.Home == "" {
		if opts.Home, err = os.UserHomeDir(); err != nil {
			db.Close()
			logFile.Close()
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
	}
	if opts.Runner == nil {
		opts.Runner = privilege.NewExecRunner(logger)
	}
	if opts.Executable == "" {
		// Only needed when plugins run isolated; failure surfaces on the first call.
		opts.Executable, _ = os.Executable()
	}

	fsmgr := scfs.NewOSFilesystemManager()
	undo := sc.NewUndoService(db, fsmgr, cfg.BackupDir, opts.Clock, logger)

	env := pluginEnv{cfg: cfg, home: opts.Home, fsmgr: fsmgr, runner: opts.Runner, clock: opts.Clock, logger: logger}
	registry, err := env.buildRegistry(opts.Executable, sc.UUIDGenerator{})
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("building plugin registry: %w", err)
	}

	var opLogger sc.OperationLogger = undo
	if cfg.Undo.Disabled {
		opLogger = nil
	}
	manager := sc.NewManager(registry, sc.NewSafetyPolicy(level), opLogger, logger)

	logger.Debug("run started", "command", command, "plugins", len(registry.Names()))
	return &SCApp{
		cfg:      cfg,
		db:       db,
		fsmgr:    fsmgr,
		undo:     undo,
		registry: registry,
		manager:  manager,
		clock:    opts.Clock,
		run:      run,
		logger:   logger,
		logFile:  logFile,
	}, nil
}

// Config returns the config the app was built from.
func (a *SCApp) Config() *config.Config { return a.cfg }

// Run returns the current invocation.
func (a *SCApp) Run() *Run { return a.run }

// SafetyLevel returns the current maximum safety level.
func (a *SCApp) SafetyLevel() sc.SafetyLevel { return a.manager.SafetyLevel() }

// SetSafetyLevel overrides the configured maximum for this run.
func (a *SCApp) SetSafetyLevel(level sc.SafetyLevel) error { return a.manager.SetSafetyLevel(level) }

// PluginNames returns the registered plugin names in registry order.
func (a *SCApp) PluginNames() []string { return a.registry.Names() }

// Plugins describes every registered plugin in registry order.
func (a *SCApp) Plugins(ctx context.Context) []ui.PluginInfo {
	available := make(map[string]bool)
	for _, p := range a.manager.GetAvailablePlugins(ctx) {
		available[p.Name()] = true
	}
	var infos []ui.PluginInfo
	for _, p := range a.registry.All() {
		infos = append(infos, ui.PluginInfo{
			Name:        p.Name(),
			Description: p.Description(),
			Priority:    sc.PriorityOf(p),
			Available:   available[p.Name()],
			DryRun:      sc.SupportsDryRun(p),
		})
	}
	return infos
}

// Scan scans one plugin by name, or all available plugins when name is
// empty. Items above the current safety level are left out.
func (a *SCApp) Scan(ctx context.Context, name string) (map[string][]sc.CleanableItem, error) {
	level := a.manager.SafetyLevel()
	if name == "" {
		return a.manager.ScanAll(ctx, &level), nil
	}
	items, err := a.manager.ScanPlugin(ctx, name, &level)
	if err != nil {
		return nil, err
	}
	return map[string][]sc.CleanableItem{name: items}, nil
}

// Clean cleans the given items with the safety policy enforced.
func (a *SCApp) Clean(ctx context.Context, items map[string][]sc.CleanableItem, dryRun bool) map[string]*sc.CleanResult {
	results := a.manager.CleanSelected(ctx, items, dryRun, true)
	for name, r := range results {
		if !r.Success {
			a.run.Fail()
			a.logger.Warn("clean failed", "plugin", name, "errors", r.Errors)
		}
	}
	return results
}

// History returns the most recent clean operations.
func (a *SCApp) History(limit int) ([]*model.CleanOperation, error) {
	return a.db.GetRecentOperations(limit)
}

// Operation returns one operation and its undo items.
func (a *SCApp) Operation(id int64) (*model.CleanOperation, []*model.UndoItem, error) {
	op, err := a.db.GetOperation(id)
	if err != nil {
		return nil, nil, err
	}
	items, err := a.undo.GetUndoItems(id)
	if err != nil {
		return nil, nil, err
	}
	return op, items, nil
}

// Restore restores every item of an operation and returns the per-item outcome.
func (a *SCApp) Restore(id int64, policy sc.ConflictPolicy) (map[int64]bool, error) {
	results, err := a.undo.RestoreOperation(id, policy)
	if err != nil {
		a.run.Fail()
		return nil, err
	}
	for _, ok := range results {
		if !ok {
			a.run.Fail()
			break
		}
	}
	return results, nil
}

// Backups lists the backup directories still on disk, newest first.
func (a *SCApp) Backups() ([]sc.BackupDir, error) {
	return a.undo.ListBackups()
}

// Prune removes old backup directories. With archive set, each directory is
// first stored in the configured vault.
func (a *SCApp) Prune(opts sc.PruneOptions, archiveFirst bool) (*sc.PruneResult, error) {
	if archiveFirst {
		arch, err := a.Archiver()
		if err != nil {
			return nil, err
		}
		if err := arch.ValidateSetup(); err != nil {
			return nil, err
		}
		opts.Archiver = arch
	}
	return a.undo.PruneBackups(opts)
}

// Archiver builds the archiver from [archive] on first use.
func (a *SCApp) Archiver() (*archive.Archiver, error) {
	if a.archiver != nil {
		return a.archiver, nil
	}
	if !a.cfg.Archive.Enabled {
		return nil, ErrArchiveDisabled
	}
	v, err := vault.NewVaultFromConfig(context.Background(), a.cfg.Archive.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}
	enc, err := encryption.NewEncryptorFromConfig(a.cfg.Archive.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if !enc.IsConfigured() {
		return nil, fmt.Errorf("encryption keys missing; run `sc config init` first")
	}
	a.archiver = archive.NewArchiver(v, enc, a.logger)
	return a.archiver, nil
}

// Status summarizes the state of the tool for `sc status`.
type Status struct {
	SchemaVersion int
	Pending       []int
	Operations    []*model.CleanOperation
	Backups       []sc.BackupDir
	Disks         []*ui.DiskReport
	SafetyLevel   sc.SafetyLevel
	UndoEnabled   bool
}

// Status gathers schema, history, backup and disk information.
func (a *SCApp) Status(recent int) (*Status, error) {
	version, pending, err := a.Schema()
	if err != nil {
		return nil, err
	}
	ops, err := a.History(recent)
	if err != nil {
		return nil, err
	}
	backups, err := a.Backups()
	if err != nil {
		return nil, err
	}
	st := &Status{
		SchemaVersion: version,
		Pending:       pending,
		Operations:    ops,
		Backups:       backups,
		SafetyLevel:   a.SafetyLevel(),
		UndoEnabled:   !a.cfg.Undo.Disabled,
	}
	seen := make(map[string]bool)
	for _, path := range []string{"/", a.cfg.BaseDir, a.cfg.BackupDir} {
		report, err := ui.DiskUsage(path)
		if err != nil {
			a.logger.Debug("disk usage unavailable", "path", path, "error", err)
			continue
		}
		key := fmt.Sprintf("%d/%d", report.Total, report.Free)
		if seen[key] {
			continue
		}
		seen[key] = true
		st.Disks = append(st.Disks, report)
	}
	sort.SliceStable(st.Disks, func(i, j int) bool { return st.Disks[i].Path < st.Disks[j].Path })
	return st, nil
}

// Schema returns the current schema version and the pending migrations.
func (a *SCApp) Schema() (int, []int, error) {
	version, err := a.db.GetSchemaVersion()
	if err != nil {
		return 0, nil, fmt.Errorf("reading schema version: %w", err)
	}
	pending, err := a.db.GetPendingMigrations()
	if err != nil {
		return 0, nil, fmt.Errorf("listing pending migrations: %w", err)
	}
	return version, pending, nil
}

// Migrate applies pending migrations and returns their versions.
func (a *SCApp) Migrate() ([]int, error) {
	applied, err := a.db.ApplyMigrations()
	if err != nil {
		a.run.Fail()
		return nil, err
	}
	if len(applied) > 0 {
		a.logger.Info("migrations applied", "versions", applied)
	}
	return applied, nil
}

// Close logs the end of the run and closes the database and log file.
func (a *SCApp) Close() error {
	a.logger.Info("run finished", "command", a.run.Command, "status", a.run.Status,
		"duration", a.run.Duration(a.clock.Now()))

	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
