package plugins

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	scfs "sc-go/internal/fs"
	"sc-go/internal/sc"
)

const day = 24 * time.Hour

// DirectoryConfig describes a plugin that reports old files below some roots.
type DirectoryConfig struct {
	Name        string
	Description string
	Roots       []string

	// SkipDirs are not descended into. Other plugins usually own them.
	SkipDirs []string

	// Patterns are basename globs. Empty matches every file.
	Patterns []string

	// MinAge hides files modified more recently than this.
	MinAge time.Duration

	// SafeAge marks files older than this Safe; younger ones are Caution.
	SafeAge time.Duration

	Priority int
	Protect  *scfs.ProtectMatcher

	// PreserveForBackup makes Clean leave files in place so the undo engine
	// can move them into the backup area.
	PreserveForBackup bool
}

// DirectoryPlugin reports regular files below its roots and removes them.
type DirectoryPlugin struct {
	cfg    DirectoryConfig
	fsmgr  sc.FilesystemManager
	clock  sc.Clock
	logger sc.Logger
}

var (
	_ sc.Plugin      = (*DirectoryPlugin)(nil)
	_ sc.DryRunner   = (*DirectoryPlugin)(nil)
	_ sc.Prioritized = (*DirectoryPlugin)(nil)
)

func NewDirectoryPlugin(cfg DirectoryConfig, fsmgr sc.FilesystemManager, clock sc.Clock, logger sc.Logger) *DirectoryPlugin {
	if clock == nil {
		clock = sc.RealClock{}
	}
	if logger == nil {
		logger = sc.NewNopLogger()
	}
	if cfg.Priority == 0 {
		cfg.Priority = sc.DefaultPriority
	}
	return &DirectoryPlugin{cfg: cfg, fsmgr: fsmgr, clock: clock, logger: logger}
}

func (p *DirectoryPlugin) Name() string        { return p.cfg.Name }
func (p *DirectoryPlugin) Description() string { return p.cfg.Description }
func (p *DirectoryPlugin) Priority() int       { return p.cfg.Priority }

// Roots returns the directories the plugin scans.
func (p *DirectoryPlugin) Roots() []string { return p.cfg.Roots }

// IsAvailable reports whether any root exists.
func (p *DirectoryPlugin) IsAvailable(context.Context) bool {
	for _, root := range p.cfg.Roots {
		if info, err := p.fsmgr.Lstat(root); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

// Scan walks each root. Unreadable entries, protected paths and files this
// process cannot remove are skipped.
func (p *DirectoryPlugin) Scan(ctx context.Context) ([]sc.CleanableItem, error) {
	now := p.clock.Now()
	items := []sc.CleanableItem{}

	for _, root := range p.cfg.Roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				if d != nil && d.IsDir() && path != root {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != root && (p.skipped(path) || p.cfg.Protect.Match(path)) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || p.cfg.Protect.Match(path) || !p.matches(d.Name()) {
				return nil
			}
			if !p.fsmgr.CanRemove(path) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil
			}
			age := now.Sub(info.ModTime())
			if age < p.cfg.MinAge {
				return nil
			}
			items = append(items, sc.CleanableItem{
				Path:        path,
				Size:        info.Size(),
				Description: fmt.Sprintf("%s: %s (%dd old)", p.cfg.Name, d.Name(), int(age/day)),
				Safety:      p.safetyFor(age),
			})
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return items, fmt.Errorf("scanning %s: %w", root, err)
		}
	}
	return items, nil
}

func (p *DirectoryPlugin) skipped(dir string) bool {
	for _, s := range p.cfg.SkipDirs {
		if filepath.Clean(s) == dir {
			return true
		}
	}
	return false
}

func (p *DirectoryPlugin) matches(name string) bool {
	if len(p.cfg.Patterns) == 0 {
		return true
	}
	for _, pat := range p.cfg.Patterns {
		if ok, err := filepath.Match(pat, name); err == nil && ok {
			return true
		}
	}
	return false
}

func (p *DirectoryPlugin) safetyFor(age time.Duration) sc.SafetyLevel {
	if age > p.cfg.SafeAge {
		return sc.Safe
	}
	return sc.Caution
}

// Clean removes the given files. Items outside the plugin's roots or matching
// a protect pattern are refused. Files already gone are not counted.
func (p *DirectoryPlugin) Clean(_ context.Context, items []sc.CleanableItem) (*sc.CleanResult, error) {
	result := &sc.CleanResult{Success: true, Errors: []string{}}

	for _, item := range items {
		if err := p.cleanItem(item.Path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			result.Success = false
			result.Errors = append(result.Errors, fmt.Sprintf("failed to delete %s: %v", item.Path, err))
			continue
		}
		result.CleanedCount++
		result.TotalSize += item.Size
	}
	return result, nil
}

func (p *DirectoryPlugin) cleanItem(path string) error {
	if !p.owns(path) {
		return fmt.Errorf("outside of %s", strings.Join(p.cfg.Roots, ", "))
	}
	if p.cfg.Protect.Match(path) {
		return fmt.Errorf("path is protected")
	}
	info, err := p.fsmgr.Lstat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file")
	}
	if !p.fsmgr.CanRemove(path) {
		return fmt.Errorf("permission denied")
	}
	if p.cfg.PreserveForBackup {
		return nil
	}
	return p.fsmgr.Remove(path)
}

func (p *DirectoryPlugin) owns(path string) bool {
	clean := filepath.Clean(path)
	for _, root := range p.cfg.Roots {
		rel, err := filepath.Rel(filepath.Clean(root), clean)
		if err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, "../") {
			return true
		}
	}
	return false
}

func (p *DirectoryPlugin) CleanDryRun(_ context.Context, items []sc.CleanableItem) (*sc.CleanResult, error) {
	return &sc.CleanResult{
		Success:      true,
		CleanedCount: len(items),
		TotalSize:    sc.TotalSize(items),
		Errors:       []string{},
		DryRun:       true,
	}, nil
}
