package sc

import (
	"context"
	"fmt"
	"sort"
)

// Plugin is a scanner/cleaner for one category of reclaimable disk space.
type Plugin interface {
	// Name is the stable identifier used as the aggregation key.
	Name() string
	Description() string

	// Scan reports removable items. It must not mutate the filesystem.
	Scan(ctx context.Context) ([]CleanableItem, error)

	// Clean removes the given items. It may be called with any subset of a
	// previous scan.
	Clean(ctx context.Context, items []CleanableItem) (*CleanResult, error)

	// IsAvailable reports whether the tools the plugin needs exist on this host.
	IsAvailable(ctx context.Context) bool
}

// DryRunner is implemented by plugins that can report the effect of a clean
// without side effects.
type DryRunner interface {
	CleanDryRun(ctx context.Context, items []CleanableItem) (*CleanResult, error)
}

// Prioritized is implemented by plugins that want to run before or after the
// others. Lower values run first.
type Prioritized interface {
	Priority() int
}

// DefaultPriority applies to plugins that do not implement Prioritized.
const DefaultPriority = 50

// PriorityOf returns the plugin priority, or DefaultPriority.
func PriorityOf(p Plugin) int {
	if pp, ok := p.(Prioritized); ok {
		return pp.Priority()
	}
	return DefaultPriority
}

// SupportsDryRun reports whether p implements DryRunner.
func SupportsDryRun(p Plugin) bool {
	_, ok := p.(DryRunner)
	return ok
}

// PluginRegistry maps plugin names to instances. It is built explicitly and
// handed to the Manager.
type PluginRegistry struct {
	plugins map[string]Plugin
}

func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{plugins: make(map[string]Plugin)}
}

// Register adds p under its name. Registering a second plugin with the same
// name fails with ErrPluginExists.
func (r *PluginRegistry) Register(p Plugin) error {
	name := p.Name()
	if _, ok := r.plugins[name]; ok {
		return fmt.Errorf("%w: %s", ErrPluginExists, name)
	}
	r.plugins[name] = p
	return nil
}

func (r *PluginRegistry) Unregister(name string) {
	delete(r.plugins, name)
}

func (r *PluginRegistry) Get(name string) (Plugin, bool) {
	p, ok := r.plugins[name]
	return p, ok
}

func (r *PluginRegistry) Len() int {
	return len(r.plugins)
}

// All returns the registered plugins ordered by priority, then name.
func (r *PluginRegistry) All() []Plugin {
	all := make([]Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		pi, pj := PriorityOf(all[i]), PriorityOf(all[j])
		if pi != pj {
			return pi < pj
		}
		return all[i].Name() < all[j].Name()
	})
	return all
}

// Names returns the registered names in the same order as All.
func (r *PluginRegistry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.Name()
	}
	return names
}
