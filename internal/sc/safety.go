package sc

import "fmt"

// SafetyPolicy gates which items may be acted upon.
type SafetyPolicy struct {
	max SafetyLevel
}

// DefaultMaxSafety is the threshold used when none is configured.
const DefaultMaxSafety = Caution

// NewSafetyPolicy creates a policy. An undefined level falls back to
// DefaultMaxSafety.
func NewSafetyPolicy(max SafetyLevel) *SafetyPolicy {
	if !max.Valid() {
		max = DefaultMaxSafety
	}
	return &SafetyPolicy{max: max}
}

// IsAllowed reports whether the item's safety level is at or below the maximum.
func (p *SafetyPolicy) IsAllowed(item CleanableItem) bool {
	return item.Safety <= p.max
}

// SetMaxLevel changes the maximum. An undefined level is rejected and the
// current maximum kept.
func (p *SafetyPolicy) SetMaxLevel(level SafetyLevel) error {
	if !level.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSafetyLevel, int(level))
	}
	p.max = level
	return nil
}

func (p *SafetyPolicy) MaxLevel() SafetyLevel {
	return p.max
}

// Filter returns the allowed items in their original order.
func (p *SafetyPolicy) Filter(items []CleanableItem) []CleanableItem {
	return filterByLevel(items, p.max)
}

func filterByLevel(items []CleanableItem, max SafetyLevel) []CleanableItem {
	allowed := make([]CleanableItem, 0, len(items))
	for _, it := range items {
		if it.Safety <= max {
			allowed = append(allowed, it)
		}
	}
	return allowed
}
