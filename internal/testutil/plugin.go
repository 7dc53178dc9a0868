package testutil

import (
	"context"
	"fmt"
	"sync"

	"sc-go/internal/sc"
)

// StubPlugin is a configurable sc.Plugin that records its calls.
type StubPlugin struct {
	PluginName  string
	Items       []sc.CleanableItem
	ScanErr     error
	Result      *sc.CleanResult
	CleanErr    error
	Unavailable bool
	PanicOn     string // "scan" or "clean" makes that call panic
	Prio        int

	mu         sync.Mutex
	ScanCalls  int
	CleanCalls [][]sc.CleanableItem
}

var (
	_ sc.Plugin      = (*StubPlugin)(nil)
	_ sc.Prioritized = (*StubPlugin)(nil)
)

// NewStubPlugin returns a plugin that scans items and cleans them successfully.
func NewStubPlugin(name string, items ...sc.CleanableItem) *StubPlugin {
	return &StubPlugin{PluginName: name, Items: items, Prio: sc.DefaultPriority}
}

func (p *StubPlugin) Name() string        { return p.PluginName }
func (p *StubPlugin) Description() string { return "stub plugin " + p.PluginName }
func (p *StubPlugin) Priority() int       { return p.Prio }

func (p *StubPlugin) IsAvailable(context.Context) bool { return !p.Unavailable }

func (p *StubPlugin) Scan(context.Context) ([]sc.CleanableItem, error) {
	p.mu.Lock()
	p.ScanCalls++
	p.mu.Unlock()
	if p.PanicOn == "scan" {
		panic("scan exploded")
	}
	if p.ScanErr != nil {
		return nil, p.ScanErr
	}
	return append([]sc.CleanableItem(nil), p.Items...), nil
}

// Clean returns Result when set, otherwise a success covering all items.
func (p *StubPlugin) Clean(_ context.Context, items []sc.CleanableItem) (*sc.CleanResult, error) {
	p.mu.Lock()
	p.CleanCalls = append(p.CleanCalls, items)
	p.mu.Unlock()
	if p.PanicOn == "clean" {
		panic("clean exploded")
	}
	if p.CleanErr != nil {
		return nil, p.CleanErr
	}
	if p.Result != nil {
		r := *p.Result
		return &r, nil
	}
	return &sc.CleanResult{
		Success:      true,
		CleanedCount: len(items),
		TotalSize:    sc.TotalSize(items),
		Errors:       []string{},
	}, nil
}

// DryRunStubPlugin adds dry-run support to StubPlugin.
type DryRunStubPlugin struct {
	*StubPlugin
	DryRunCalls int
}

var _ sc.DryRunner = (*DryRunStubPlugin)(nil)

func (p *DryRunStubPlugin) CleanDryRun(_ context.Context, items []sc.CleanableItem) (*sc.CleanResult, error) {
	p.DryRunCalls++
	return &sc.CleanResult{
		Success:      true,
		CleanedCount: len(items),
		TotalSize:    sc.TotalSize(items),
		Errors:       []string{},
		DryRun:       true,
	}, nil
}

// RecordingOperationLogger is an sc.OperationLogger that records calls.
type RecordingOperationLogger struct {
	Err    error
	NextID int64
	Calls  []LoggedOperation
}

// LoggedOperation is one recorded LogOperation call.
type LoggedOperation struct {
	PluginName string
	Items      []sc.CleanableItem
}

var _ sc.OperationLogger = (*RecordingOperationLogger)(nil)

func (l *RecordingOperationLogger) LogOperation(pluginName string, items []sc.CleanableItem) (int64, error) {
	l.Calls = append(l.Calls, LoggedOperation{PluginName: pluginName, Items: items})
	if l.Err != nil {
		return 0, l.Err
	}
	l.NextID++
	return l.NextID, nil
}

// Item is shorthand for building a CleanableItem in tests.
func Item(path string, size int64, safety sc.SafetyLevel) sc.CleanableItem {
	return sc.CleanableItem{
		Path:        path,
		Size:        size,
		Description: fmt.Sprintf("test item %s", path),
		Safety:      safety,
	}
}
