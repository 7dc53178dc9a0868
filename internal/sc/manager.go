package sc

import (
	"context"
	"fmt"
	"sort"
)

// Manager drives scan, filter and clean across the registered plugins.
// Calls run sequentially; one plugin's failure never stops the others.
type Manager struct {
	registry *PluginRegistry
	policy   *SafetyPolicy
	undo     OperationLogger
	logger   Logger
}

// NewManager creates a Manager. undo may be nil, in which case successful
// cleans are not logged. A nil policy uses DefaultMaxSafety.
func NewManager(registry *PluginRegistry, policy *SafetyPolicy, undo OperationLogger, logger Logger) *Manager {
	if policy == nil {
		policy = NewSafetyPolicy(DefaultMaxSafety)
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Manager{
		registry: registry,
		policy:   policy,
		undo:     undo,
		logger:   logger,
	}
}

func (m *Manager) SetSafetyLevel(level SafetyLevel) error {
	return m.policy.SetMaxLevel(level)
}

func (m *Manager) SafetyLevel() SafetyLevel {
	return m.policy.MaxLevel()
}

// GetAvailablePlugins returns the plugins whose dependencies exist on this
// host, in registry order.
func (m *Manager) GetAvailablePlugins(ctx context.Context) []Plugin {
	var available []Plugin
	for _, p := range m.registry.All() {
		if m.isAvailable(ctx, p) {
			available = append(available, p)
		}
	}
	return available
}

// ScanAll scans every available plugin. A failing plugin contributes an empty
// slice. With a filter only items at or below that level are kept.
func (m *Manager) ScanAll(ctx context.Context, safetyFilter *SafetyLevel) map[string][]CleanableItem {
	results := make(map[string][]CleanableItem)
	for _, p := range m.GetAvailablePlugins(ctx) {
		results[p.Name()] = m.scan(ctx, p, safetyFilter)
	}
	return results
}

// ScanPlugin scans a single plugin by name.
func (m *Manager) ScanPlugin(ctx context.Context, name string, safetyFilter *SafetyLevel) ([]CleanableItem, error) {
	p, ok := m.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	if !m.isAvailable(ctx, p) {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotAvailable, name)
	}
	return m.scan(ctx, p, safetyFilter), nil
}

func (m *Manager) scan(ctx context.Context, p Plugin, safetyFilter *SafetyLevel) (items []CleanableItem) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("plugin scan panicked", "plugin", p.Name(), "panic", r)
			items = []CleanableItem{}
		}
	}()

	items, err := p.Scan(ctx)
	if err != nil {
		m.logger.Error("plugin scan failed", "plugin", p.Name(), "error", err)
		return []CleanableItem{}
	}
	if items == nil {
		items = []CleanableItem{}
	}
	if safetyFilter != nil {
		items = filterByLevel(items, *safetyFilter)
	}
	m.logger.Debug("plugin scanned", "plugin", p.Name(), "items", len(items))
	return items
}

func (m *Manager) isAvailable(ctx context.Context, p Plugin) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("plugin availability check panicked", "plugin", p.Name(), "panic", r)
			ok = false
		}
	}()
	return p.IsAvailable(ctx)
}

// CleanSelected cleans the given items per plugin. Each plugin's batch is one
// clean call and, on success, one logged operation. Plugin errors and panics
// become failure results.
func (m *Manager) CleanSelected(ctx context.Context, itemsByPlugin map[string][]CleanableItem, dryRun, enforceSafety bool) map[string]*CleanResult {
	names := make([]string, 0, len(itemsByPlugin))
	for name := range itemsByPlugin {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]*CleanResult, len(names))
	for _, name := range names {
		results[name] = m.cleanPlugin(ctx, name, itemsByPlugin[name], dryRun, enforceSafety)
	}
	return results
}

func (m *Manager) cleanPlugin(ctx context.Context, name string, items []CleanableItem, dryRun, enforceSafety bool) *CleanResult {
	p, ok := m.registry.Get(name)
	if !ok {
		m.logger.Error("clean requested for unknown plugin", "plugin", name)
		return failureResult("%s: %s", ErrPluginNotFound, name)
	}

	if enforceSafety {
		allowed := m.policy.Filter(items)
		if dropped := len(items) - len(allowed); dropped > 0 {
			m.logger.Info("items dropped by safety policy", "plugin", name, "dropped", dropped, "max", m.policy.MaxLevel())
		}
		items = allowed
	}
	if len(items) == 0 {
		return &CleanResult{Success: true, Errors: []string{}, DryRun: dryRun}
	}

	if dryRun {
		return m.dryRun(ctx, p, items)
	}

	result := m.invokeClean(ctx, p, items)
	if !result.Success {
		m.logger.Warn("plugin clean failed", "plugin", name, "errors", result.Errors)
		return result
	}
	m.logger.Info("plugin cleaned", "plugin", name, "items", result.CleanedCount, "size", result.TotalSize)

	if m.undo == nil {
		return result
	}
	opID, kept, err := m.logOperation(name, items)
	m.applyKept(name, result, kept)
	if err != nil {
		m.logger.Error("clean succeeded but was not logged", "plugin", name, "error", err)
		result.LogError = err.Error()
		return result
	}
	result.OperationID = opID
	result.Logged = true
	return result
}

func (m *Manager) logOperation(name string, items []CleanableItem) (int64, []KeptItem, error) {
	if ol, ok := m.undo.(OutcomeLogger); ok {
		out, err := ol.LogOperationOutcome(name, items)
		if out == nil {
			return 0, nil, err
		}
		return out.OperationID, out.Kept, err
	}
	opID, err := m.undo.LogOperation(name, items)
	return opID, nil, err
}

// applyKept takes items still on disk out of the counts the plugin reported.
// Any kept item makes the result a failure, as a plugin reports a file it
// could not delete.
func (m *Manager) applyKept(name string, result *CleanResult, kept []KeptItem) {
	for _, k := range kept {
		result.Success = false
		result.CleanedCount = max(result.CleanedCount-1, 0)
		result.TotalSize = max(result.TotalSize-k.Item.Size, 0)
		result.Errors = append(result.Errors, fmt.Sprintf("%s not removed: %s", k.Item.Path, k.Reason))
	}
	if len(kept) > 0 {
		m.logger.Warn("items left in place", "plugin", name, "kept", len(kept))
	}
}

func (m *Manager) invokeClean(ctx context.Context, p Plugin, items []CleanableItem) (result *CleanResult) {
	defer func() {
		if r := recover(); r != nil {
			result = failureResult("plugin panicked: %v", r)
		}
	}()

	res, err := p.Clean(ctx, items)
	if err != nil {
		return failureResult("%v", err)
	}
	if res == nil {
		return failureResult("plugin returned no result")
	}
	res.DryRun = false
	return res
}

// dryRun asks the plugin for a projection, or computes one from the items when
// the plugin has no dry-run support. Clean is never called.
func (m *Manager) dryRun(ctx context.Context, p Plugin, items []CleanableItem) (result *CleanResult) {
	dr, ok := p.(DryRunner)
	if !ok {
		return &CleanResult{
			Success:      true,
			CleanedCount: len(items),
			TotalSize:    TotalSize(items),
			Errors:       []string{},
			DryRun:       true,
		}
	}

	defer func() {
		if r := recover(); r != nil {
			result = failureResult("plugin panicked: %v", r)
			result.DryRun = true
		}
	}()

	res, err := dr.CleanDryRun(ctx, items)
	if err != nil {
		res = failureResult("%v", err)
	}
	if res == nil {
		res = failureResult("plugin returned no result")
	}
	res.DryRun = true
	return res
}
