package sc

import "fmt"

// CleanResult is the outcome of one plugin clean call.
//
// Success, CleanedCount, TotalSize, Errors and DryRun are reported by the
// plugin. OperationID, Logged and LogError are filled in by the Manager:
// a successful clean whose undo record could not be written has Success set
// and Logged unset.
type CleanResult struct {
	Success      bool     `json:"success"`
	CleanedCount int      `json:"cleaned_count"`
	TotalSize    int64    `json:"total_size"`
	Errors       []string `json:"errors"`
	DryRun       bool     `json:"dry_run"`

	OperationID int64  `json:"operation_id,omitempty"` // 0 when nothing was logged
	Logged      bool   `json:"logged,omitempty"`
	LogError    string `json:"log_error,omitempty"`
}

// HasOperation reports whether the clean was durably logged.
func (r *CleanResult) HasOperation() bool {
	return r.Logged && r.OperationID != 0
}

func failureResult(format string, args ...any) *CleanResult {
	return &CleanResult{
		Success: false,
		Errors:  []string{fmt.Sprintf(format, args...)},
	}
}

// Summary aggregates per-plugin results for display.
type Summary struct {
	Plugins   int
	Succeeded int
	Cleaned   int
	Freed     int64
	Logged    int
}

// Summarize totals a CleanSelected result map.
func Summarize(results map[string]*CleanResult) Summary {
	var s Summary
	for _, r := range results {
		s.Plugins++
		if r == nil || !r.Success {
			continue
		}
		s.Succeeded++
		s.Cleaned += r.CleanedCount
		s.Freed += r.TotalSize
		if r.HasOperation() {
			s.Logged++
		}
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d of %d plugins succeeded, %d items, %s", s.Succeeded, s.Plugins, s.Cleaned, HumanSize(s.Freed))
}
