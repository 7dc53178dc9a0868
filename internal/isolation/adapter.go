package isolation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"sc-go/internal/sc"
)

// Mode selects how the plugin process is confined.
type Mode string

const (
	ModeNone       Mode = "none"
	ModeSubprocess Mode = "subprocess"
	ModeBwrap      Mode = "bwrap"
	ModeUserNS     Mode = "userns"
)

// DefaultBwrapArgs keep the host filesystem writable so cleans work, but
// drop the network.
var DefaultBwrapArgs = []string{
	"--bind", "/", "/",
	"--dev", "/dev",
	"--proc", "/proc",
	"--unshare-net",
	"--die-with-parent",
}

const DefaultTimeout = 120 * time.Second

// ParseMode validates a configured isolation mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeNone, ModeSubprocess, ModeBwrap, ModeUserNS:
		return m, nil
	case "":
		return ModeNone, nil
	}
	return "", fmt.Errorf("unknown isolation mode %q", s)
}

// Config describes one out-of-process plugin.
type Config struct {
	Name        string
	Description string
	Command     string
	Args        []string
	Priority    int

	// MinSafety raises every reported item to at least this level.
	MinSafety sc.SafetyLevel

	Timeout   time.Duration
	Mode      Mode
	BwrapArgs []string
}

// Adapter runs a plugin in a separate process, one process per call.
type Adapter struct {
	cfg    Config
	ids    sc.IDGenerator
	logger sc.Logger
}

var (
	_ sc.Plugin      = (*Adapter)(nil)
	_ sc.DryRunner   = (*Adapter)(nil)
	_ sc.Prioritized = (*Adapter)(nil)
)

func NewAdapter(cfg Config, ids sc.IDGenerator, logger sc.Logger) *Adapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Mode == "" || cfg.Mode == ModeNone {
		cfg.Mode = ModeSubprocess
	}
	if cfg.Priority == 0 {
		cfg.Priority = sc.DefaultPriority
	}
	if ids == nil {
		ids = sc.UUIDGenerator{}
	}
	if logger == nil {
		logger = sc.NewNopLogger()
	}
	return &Adapter{cfg: cfg, ids: ids, logger: logger}
}

func (a *Adapter) Name() string        { return a.cfg.Name }
func (a *Adapter) Description() string { return a.cfg.Description }
func (a *Adapter) Priority() int       { return a.cfg.Priority }

// Argv returns the full command line, wrapper included.
func (a *Adapter) Argv() []string {
	cmd := append([]string{a.cfg.Command}, a.cfg.Args...)
	switch a.cfg.Mode {
	case ModeBwrap:
		args := a.cfg.BwrapArgs
		if len(args) == 0 {
			args = DefaultBwrapArgs
		}
		argv := append([]string{"bwrap"}, args...)
		argv = append(argv, "--")
		return append(argv, cmd...)
	case ModeUserNS:
		return append([]string{"unshare", "--user", "--map-root-user"}, cmd...)
	default:
		return cmd
	}
}

// IsAvailable asks the worker. A failing worker counts as unavailable.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	resp, err := a.call(ctx, MethodAvailable, nil)
	if err != nil {
		a.logger.Warn("isolated plugin availability check failed", "plugin", a.cfg.Name, "error", err)
		return false
	}
	return resp.Available
}

func (a *Adapter) Scan(ctx context.Context) ([]sc.CleanableItem, error) {
	resp, err := a.call(ctx, MethodScan, nil)
	if err != nil {
		return nil, err
	}
	items := resp.Items
	if items == nil {
		items = []sc.CleanableItem{}
	}
	for i := range items {
		if !items[i].Safety.Valid() {
			items[i].Safety = sc.Dangerous
		}
		items[i].Safety = max(items[i].Safety, a.cfg.MinSafety)
	}
	return items, nil
}

func (a *Adapter) Clean(ctx context.Context, items []sc.CleanableItem) (*sc.CleanResult, error) {
	return a.cleanCall(ctx, MethodClean, items)
}

func (a *Adapter) CleanDryRun(ctx context.Context, items []sc.CleanableItem) (*sc.CleanResult, error) {
	return a.cleanCall(ctx, MethodCleanDryRun, items)
}

func (a *Adapter) cleanCall(ctx context.Context, method string, items []sc.CleanableItem) (*sc.CleanResult, error) {
	resp, err := a.call(ctx, method, items)
	if err != nil {
		return nil, err
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("plugin %s returned no result", a.cfg.Name)
	}
	if resp.Result.Errors == nil {
		resp.Result.Errors = []string{}
	}
	return resp.Result, nil
}

func (a *Adapter) call(ctx context.Context, method string, items []sc.CleanableItem) (*Response, error) {
	req := Request{ID: a.ids.New(), Method: method, Items: items}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	argv := a.Argv()
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = bytes.NewReader(body)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	a.logger.Debug("calling isolated plugin", "plugin", a.cfg.Name, "method", method, "id", req.ID)
	runErr := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("plugin %s timed out after %s", a.cfg.Name, a.cfg.Timeout)
	}
	if runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("running plugin %s: %w", a.cfg.Name, runErr)
		}
		return nil, fmt.Errorf("running plugin %s: %w: %s", a.cfg.Name, runErr, msg)
	}

	resp, err := decodeResponse(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", a.cfg.Name, err)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("plugin %s: response id %q does not match request %q", a.cfg.Name, resp.ID, req.ID)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("plugin %s: %s", a.cfg.Name, resp.Error)
	}
	return resp, nil
}
