package sc

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"sc-go/internal/model"
)

// ConflictPolicy decides what happens when a restore target is occupied.
type ConflictPolicy string

const (
	// ConflictRename moves the occupant aside to <path>.orig.<timestamp>.
	ConflictRename ConflictPolicy = "rename"
	// ConflictOverwrite deletes the occupant, recursively for directories.
	ConflictOverwrite ConflictPolicy = "overwrite"
	// ConflictSkip leaves the occupant alone and fails the item.
	ConflictSkip ConflictPolicy = "skip"
)

const DefaultConflictPolicy = ConflictRename

// Restore failure messages recorded on undo items.
const (
	msgNoBackup        = "no backup available"
	msgBackupMissing   = "backup missing"
	msgSkippedConflict = "skipped due to existing destination"
)

// ParseConflictPolicy validates user input.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case ConflictRename, ConflictOverwrite, ConflictSkip:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidConflictPolicy, s)
}

// RestoreOperation moves the backups of an operation back to their original
// paths, one item at a time. The returned map holds the outcome per undo item
// ID. Item failures are recorded on the undo rows; only store errors are
// returned, together with the outcomes gathered so far.
func (u *UndoService) RestoreOperation(operationID int64, policy ConflictPolicy) (map[int64]bool, error) {
	items, err := u.db.GetUndoItems(operationID)
	if err != nil {
		return nil, fmt.Errorf("getting undo items: %w", err)
	}

	results := make(map[int64]bool, len(items))
	for _, item := range items {
		ok, msg := u.restoreItem(item, policy)
		if ok {
			u.logger.Info("item restored", "op", operationID, "path", item.ItemPath)
		} else {
			u.logger.Warn("item not restored", "op", operationID, "path", item.ItemPath, "error", msg)
		}

		if err := u.db.MarkUndoRestored(item.ID, ok, msg); err != nil {
			return results, fmt.Errorf("marking undo item %d: %w", item.ID, err)
		}
		results[item.ID] = ok
	}
	return results, nil
}

// restoreItem returns whether the content is back at its original path and
// the message to record. A chown failure yields true with a message.
func (u *UndoService) restoreItem(item *model.UndoItem, policy ConflictPolicy) (bool, string) {
	if !item.CanRestore || !item.BackupPath.Valid || item.BackupPath.String == "" {
		return false, msgNoBackup
	}
	backup := item.BackupPath.String
	if !exists(u.fsmgr, backup) {
		return false, msgBackupMissing
	}

	if err := u.resolveConflict(item.ItemPath, policy); err != nil {
		if errors.Is(err, errSkipped) {
			return false, msgSkippedConflict
		}
		return false, err.Error()
	}

	if err := u.fsmgr.MkdirAll(filepath.Dir(item.ItemPath)); err != nil {
		return false, fmt.Sprintf("creating parent directory: %v", err)
	}
	if err := moveFile(u.fsmgr, backup, item.ItemPath); err != nil {
		return false, err.Error()
	}

	if item.BackupUID.Valid && item.BackupGID.Valid {
		if err := u.fsmgr.Chown(item.ItemPath, int(item.BackupUID.Int64), int(item.BackupGID.Int64)); err != nil {
			return true, fmt.Sprintf("chown failed: %v", err)
		}
	}
	return true, ""
}

var errSkipped = errors.New("skipped")

// asidePath returns <path>.orig.<timestamp>, with .1, .2, ... appended when an
// earlier conflict in the same second already used that name.
func (u *UndoService) asidePath(path string) string {
	base := path + ".orig." + u.clock.Now().UTC().Format(backupTimeFormat)
	aside := base
	for n := 1; exists(u.fsmgr, aside); n++ {
		aside = base + "." + strconv.Itoa(n)
	}
	return aside
}

func (u *UndoService) resolveConflict(path string, policy ConflictPolicy) error {
	if !exists(u.fsmgr, path) {
		return nil
	}
	switch policy {
	case ConflictRename:
		aside := u.asidePath(path)
		if err := u.fsmgr.Rename(path, aside); err != nil {
			return fmt.Errorf("moving existing destination aside: %w", err)
		}
		u.logger.Info("existing destination moved aside", "path", path, "to", aside)
		return nil
	case ConflictOverwrite:
		if err := u.fsmgr.RemoveAll(path); err != nil {
			return fmt.Errorf("removing existing destination: %w", err)
		}
		return nil
	case ConflictSkip:
		return errSkipped
	default:
		return fmt.Errorf("unknown conflict policy %q", string(policy))
	}
}
