package plugins

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"sc-go/internal/privilege"
	"sc-go/internal/sc"
)

// JournalDir is reported as the path of the single journal item.
const JournalDir = "/var/log/journal"

var diskUsagePattern = regexp.MustCompile(`take up ([\d.]+)([KMGT]?)B?`)

var unitMultipliers = map[string]float64{
	"":  1,
	"K": 1 << 10,
	"M": 1 << 20,
	"G": 1 << 30,
	"T": 1 << 40,
}

// JournalPlugin vacuums systemd journal files older than keepDays.
type JournalPlugin struct {
	keepDays int
	runner   privilege.Runner
	logger   sc.Logger
}

var (
	_ sc.Plugin      = (*JournalPlugin)(nil)
	_ sc.DryRunner   = (*JournalPlugin)(nil)
	_ sc.Prioritized = (*JournalPlugin)(nil)
)

func NewJournalPlugin(keepDays int, runner privilege.Runner, logger sc.Logger) *JournalPlugin {
	if logger == nil {
		logger = sc.NewNopLogger()
	}
	return &JournalPlugin{keepDays: keepDays, runner: runner, logger: logger}
}

func (p *JournalPlugin) Name() string { return JournalName }

func (p *JournalPlugin) Description() string {
	return fmt.Sprintf("Old systemd journal logs (keeps last %d days).", p.keepDays)
}

func (p *JournalPlugin) Priority() int { return 70 }

func (p *JournalPlugin) IsAvailable(context.Context) bool {
	_, err := p.runner.LookPath("journalctl")
	return err == nil
}

// Scan reports the journal's total disk usage as one item. A journalctl
// failure yields no items.
func (p *JournalPlugin) Scan(ctx context.Context) ([]sc.CleanableItem, error) {
	out, err := p.runner.Run(ctx, false, "journalctl", "--disk-usage")
	if err != nil {
		p.logger.Debug("journal disk usage unavailable", "error", err)
		return []sc.CleanableItem{}, nil
	}
	size, ok := parseDiskUsage(string(out))
	if !ok {
		return []sc.CleanableItem{}, nil
	}
	return []sc.CleanableItem{{
		Path:        JournalDir,
		Size:        size,
		Description: fmt.Sprintf("Systemd journal logs (>%d days old)", p.keepDays),
		Safety:      sc.Caution,
	}}, nil
}

// parseDiskUsage reads output like
// "Archived and active journals take up 512.0M in the file system."
func parseDiskUsage(out string) (int64, bool) {
	m := diskUsagePattern.FindStringSubmatch(out)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return int64(v * unitMultipliers[m[2]]), true
}

func (p *JournalPlugin) vacuumArg() string {
	return fmt.Sprintf("--vacuum-time=%dd", p.keepDays)
}

func (p *JournalPlugin) Clean(ctx context.Context, items []sc.CleanableItem) (*sc.CleanResult, error) {
	if len(items) == 0 {
		return &sc.CleanResult{Success: true, Errors: []string{}}, nil
	}
	if _, err := p.runner.Run(ctx, true, "journalctl", p.vacuumArg()); err != nil {
		return &sc.CleanResult{
			Success: false,
			Errors:  []string{fmt.Sprintf("failed to clean journals: %v", err)},
		}, nil
	}
	return &sc.CleanResult{
		Success:      true,
		CleanedCount: len(items),
		TotalSize:    sc.TotalSize(items),
		Errors:       []string{},
	}, nil
}

func (p *JournalPlugin) CleanDryRun(_ context.Context, items []sc.CleanableItem) (*sc.CleanResult, error) {
	p.logger.Info("dry run", "plugin", p.Name(), "would_run", privilege.Render(true, "journalctl", p.vacuumArg()))
	return &sc.CleanResult{
		Success:      true,
		CleanedCount: len(items),
		TotalSize:    sc.TotalSize(items),
		Errors:       []string{},
		DryRun:       true,
	}, nil
}
