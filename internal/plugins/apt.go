package plugins

import (
	"context"
	"fmt"
	"path/filepath"

	"sc-go/internal/privilege"
	"sc-go/internal/sc"
)

// DefaultAptCacheDir is where apt keeps downloaded packages.
const DefaultAptCacheDir = "/var/cache/apt/archives"

// AptCachePlugin reports downloaded .deb files and partial downloads, and
// cleans them with `apt-get clean`.
type AptCachePlugin struct {
	cacheDir string
	fsmgr    sc.FilesystemManager
	runner   privilege.Runner
	logger   sc.Logger
}

var (
	_ sc.Plugin    = (*AptCachePlugin)(nil)
	_ sc.DryRunner = (*AptCachePlugin)(nil)
)

func NewAptCachePlugin(cacheDir string, fsmgr sc.FilesystemManager, runner privilege.Runner, logger sc.Logger) *AptCachePlugin {
	if cacheDir == "" {
		cacheDir = DefaultAptCacheDir
	}
	if logger == nil {
		logger = sc.NewNopLogger()
	}
	return &AptCachePlugin{cacheDir: cacheDir, fsmgr: fsmgr, runner: runner, logger: logger}
}

func (p *AptCachePlugin) Name() string { return AptCacheName }

func (p *AptCachePlugin) Description() string {
	return "Downloaded package files (.deb) and partial downloads from the APT cache."
}

func (p *AptCachePlugin) IsAvailable(context.Context) bool {
	_, err := p.runner.LookPath("apt-get")
	return err == nil
}

func (p *AptCachePlugin) Scan(context.Context) ([]sc.CleanableItem, error) {
	items := []sc.CleanableItem{}
	items = p.collect(items, filepath.Join(p.cacheDir, "partial"), "*", "Incomplete download")
	items = p.collect(items, p.cacheDir, "*.deb", "Cached package")
	return items, nil
}

func (p *AptCachePlugin) collect(items []sc.CleanableItem, dir, pattern, label string) []sc.CleanableItem {
	entries, err := p.fsmgr.ReadDir(dir)
	if err != nil {
		return items
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if ok, _ := filepath.Match(pattern, e.Name()); !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, sc.CleanableItem{
			Path:        filepath.Join(dir, e.Name()),
			Size:        info.Size(),
			Description: fmt.Sprintf("%s: %s", label, e.Name()),
			Safety:      sc.Safe,
		})
	}
	return items
}

// Clean runs `apt-get clean`, which empties the whole cache regardless of
// which items were selected.
func (p *AptCachePlugin) Clean(ctx context.Context, items []sc.CleanableItem) (*sc.CleanResult, error) {
	if _, err := p.runner.Run(ctx, true, "apt-get", "clean"); err != nil {
		return &sc.CleanResult{Success: false, Errors: []string{err.Error()}}, nil
	}
	return &sc.CleanResult{
		Success:      true,
		CleanedCount: len(items),
		TotalSize:    sc.TotalSize(items),
		Errors:       []string{},
	}, nil
}

func (p *AptCachePlugin) CleanDryRun(_ context.Context, items []sc.CleanableItem) (*sc.CleanResult, error) {
	p.logger.Info("dry run", "plugin", p.Name(), "would_run", privilege.Render(true, "apt-get", "clean"))
	return &sc.CleanResult{
		Success:      true,
		CleanedCount: len(items),
		TotalSize:    sc.TotalSize(items),
		Errors:       []string{},
		DryRun:       true,
	}, nil
}
