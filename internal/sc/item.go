package sc

import (
	"fmt"
	"strconv"
	"strings"
)

// SafetyLevel ranks the risk of removing an item. Higher is riskier.
type SafetyLevel int

const (
	Safe SafetyLevel = iota
	Caution
	Advanced
	Dangerous
)

var safetyNames = [...]string{"SAFE", "CAUTION", "ADVANCED", "DANGEROUS"}

func (l SafetyLevel) String() string {
	if l < Safe || l > Dangerous {
		return fmt.Sprintf("SafetyLevel(%d)", int(l))
	}
	return safetyNames[l]
}

// Valid reports whether l is one of the four defined levels.
func (l SafetyLevel) Valid() bool {
	return l >= Safe && l <= Dangerous
}

// ParseSafetyLevel accepts a level name in any case or its ordinal.
func ParseSafetyLevel(s string) (SafetyLevel, error) {
	s = strings.TrimSpace(s)
	for i, name := range safetyNames {
		if strings.EqualFold(s, name) {
			return SafetyLevel(i), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && SafetyLevel(n).Valid() {
		return SafetyLevel(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSafetyLevel, s)
}

// CleanableItem is something a plugin found that could be removed.
type CleanableItem struct {
	Path        string      `json:"path"`
	Size        int64       `json:"size"`
	Description string      `json:"description"`
	Safety      SafetyLevel `json:"safety"`
}

// HumanSize renders the item size, e.g. "1.50 KB".
func (i CleanableItem) HumanSize() string {
	return HumanSize(i.Size)
}

// HumanSize renders a byte count with two decimals in 1024 steps.
func HumanSize(size int64) string {
	v := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if v < 1024.0 {
			return fmt.Sprintf("%.2f %s", v, unit)
		}
		v /= 1024.0
	}
	return fmt.Sprintf("%.2f PB", v)
}

// TotalSize sums the sizes of items.
func TotalSize(items []CleanableItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Size
	}
	return total
}
