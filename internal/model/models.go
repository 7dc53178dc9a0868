package model

import (
	"database/sql"
	"time"
)

// RestoreState records the outcome of the latest restore attempt for an undo item.
type RestoreState int

const (
	RestorePending   RestoreState = 0
	RestoreSucceeded RestoreState = 1
	RestoreFailed    RestoreState = 2
)

func (s RestoreState) String() string {
	switch s {
	case RestorePending:
		return "pending"
	case RestoreSucceeded:
		return "restored"
	case RestoreFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CleanOperation is one logged invocation of a plugin's destructive clean.
type CleanOperation struct {
	ID           int64
	Timestamp    time.Time
	PluginName   string
	ItemsCount   int
	SizeFreed    int64 // Sum of the sizes of the items passed to the clean
	Success      bool
	ErrorMessage sql.NullString
}

// UndoItem is the backup record of a single cleaned item.
type UndoItem struct {
	ID           int64
	OperationID  int64          // Foreign key to CleanOperation
	ItemPath     string         // Original location
	BackupPath   sql.NullString // NULL when the item could not be backed up
	CanRestore   bool
	CreatedAt    time.Time
	Restored     RestoreState
	RestoredAt   sql.NullTime   // Set only by a successful restore
	RestoreError sql.NullString // Failure cause, or chown error on an otherwise successful restore
	BackupUID    sql.NullInt64  // Owner captured before the move
	BackupGID    sql.NullInt64
}
