package sc_test

import (
	"errors"
	"testing"

	"sc-go/internal/sc"
	"sc-go/internal/testutil"
)

func TestSafetyPolicy_Filter(t *testing.T) {
	items := []sc.CleanableItem{
		testutil.Item("/a", 1, sc.Dangerous),
		testutil.Item("/b", 1, sc.Safe),
		testutil.Item("/c", 1, sc.Advanced),
		testutil.Item("/d", 1, sc.Caution),
	}

	tests := []struct {
		max  sc.SafetyLevel
		want []string
	}{
		{sc.Safe, []string{"/b"}},
		{sc.Caution, []string{"/b", "/d"}},
		{sc.Advanced, []string{"/b", "/c", "/d"}},
		{sc.Dangerous, []string{"/a", "/b", "/c", "/d"}},
	}
	for _, tt := range tests {
		t.Run(tt.max.String(), func(t *testing.T) {
			got := sc.NewSafetyPolicy(tt.max).Filter(items)
			if len(got) != len(tt.want) {
				t.Fatalf("Filter() returned %d items, want %d", len(got), len(tt.want))
			}
			for i, it := range got {
				if it.Path != tt.want[i] {
					t.Errorf("Filter()[%d] = %s, want %s", i, it.Path, tt.want[i])
				}
			}
		})
	}
}

func TestSafetyPolicy_Filter_Empty(t *testing.T) {
	got := sc.NewSafetyPolicy(sc.Safe).Filter(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Filter(nil) = %v, want empty slice", got)
	}
}

func TestSafetyPolicy_SetMaxLevel(t *testing.T) {
	p := sc.NewSafetyPolicy(sc.DefaultMaxSafety)
	item := testutil.Item("/x", 1, sc.Advanced)

	if p.IsAllowed(item) {
		t.Error("ADVANCED item allowed under default policy")
	}
	if err := p.SetMaxLevel(sc.Advanced); err != nil {
		t.Fatalf("SetMaxLevel() error = %v", err)
	}
	if !p.IsAllowed(item) {
		t.Error("ADVANCED item rejected after raising the maximum")
	}
	if p.MaxLevel() != sc.Advanced {
		t.Errorf("MaxLevel() = %v, want ADVANCED", p.MaxLevel())
	}
}

func TestSafetyPolicy_UndefinedLevel(t *testing.T) {
	p := sc.NewSafetyPolicy(sc.Safe)
	for _, level := range []sc.SafetyLevel{sc.SafetyLevel(9), sc.SafetyLevel(-1)} {
		if err := p.SetMaxLevel(level); !errors.Is(err, sc.ErrInvalidSafetyLevel) {
			t.Errorf("SetMaxLevel(%d) error = %v, want ErrInvalidSafetyLevel", int(level), err)
		}
	}
	if p.MaxLevel() != sc.Safe {
		t.Errorf("MaxLevel() = %v after rejected updates, want SAFE", p.MaxLevel())
	}
	if p.IsAllowed(testutil.Item("/x", 1, sc.Caution)) {
		t.Error("CAUTION item allowed after a rejected update")
	}

	if got := sc.NewSafetyPolicy(sc.SafetyLevel(9)).MaxLevel(); got != sc.DefaultMaxSafety {
		t.Errorf("NewSafetyPolicy(9).MaxLevel() = %v, want default", got)
	}
}
