package sc

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"sc-go/internal/model"
)

// backupTimeFormat is used in backup directory names and rename-aside suffixes.
const backupTimeFormat = "20060102150405"

// OperationLogger records a successful clean so it can be undone later.
type OperationLogger interface {
	LogOperation(pluginName string, items []CleanableItem) (int64, error)
}

// KeptItem is an item that was still on disk after logging because it could
// not be moved into the backup area.
type KeptItem struct {
	Item   CleanableItem
	Reason string
}

// LogOutcome is what LogOperationOutcome did with the items it was given.
type LogOutcome struct {
	OperationID int64
	Kept        []KeptItem
}

// OutcomeLogger is an OperationLogger that reports the items it left in place.
// The outcome is returned even together with an error.
type OutcomeLogger interface {
	OperationLogger
	LogOperationOutcome(pluginName string, items []CleanableItem) (*LogOutcome, error)
}

// UndoService backs up cleaned files, restores them on request and prunes
// old backups.
//
// Backups live under backupRoot as op_<operation id>_<YYYYMMDDHHMMSS>/<filename>.
type UndoService struct {
	db         Database
	fsmgr      FilesystemManager
	backupRoot string
	clock      Clock
	logger     Logger
}

var _ OutcomeLogger = (*UndoService)(nil)

// NewUndoService creates an UndoService. A nil clock defaults to RealClock
// and a nil logger to NopLogger.
func NewUndoService(db Database, fsmgr FilesystemManager, backupRoot string, clock Clock, logger Logger) *UndoService {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &UndoService{
		db:         db,
		fsmgr:      fsmgr,
		backupRoot: backupRoot,
		clock:      clock,
		logger:     logger,
	}
}

// BackupRoot returns the directory holding the op_* backup directories.
func (u *UndoService) BackupRoot() string {
	return u.backupRoot
}

// LogOperation records a clean operation and moves every item that is still a
// regular file into the operation's backup directory. Items that cannot be
// backed up are recorded with CanRestore false. Only store errors are returned.
func (u *UndoService) LogOperation(pluginName string, items []CleanableItem) (int64, error) {
	out, err := u.LogOperationOutcome(pluginName, items)
	return out.OperationID, err
}

// LogOperationOutcome is LogOperation that also lists the regular files left
// at their original path, so callers can correct what they report as freed.
func (u *UndoService) LogOperationOutcome(pluginName string, items []CleanableItem) (*LogOutcome, error) {
	out := &LogOutcome{}
	opID, err := u.db.LogCleanOperation(pluginName, len(items), TotalSize(items), true, "")
	if err != nil {
		out.Kept = u.keptItems(items, "operation not logged")
		return out, fmt.Errorf("logging clean operation: %w", err)
	}
	out.OperationID = opID

	dir := filepath.Join(u.backupRoot, backupDirName(opID, u.clock.Now()))
	dirReady := false
	used := make(map[string]bool)

	for i, item := range items {
		undo := &model.UndoItem{
			OperationID: opID,
			ItemPath:    item.Path,
		}

		backupPath, uid, gid, hasOwner, err := u.backupItem(item.Path, dir, &dirReady, used)
		if err != nil {
			u.logger.Warn("item not backed up", "op", opID, "path", item.Path, "error", err)
			if u.isRegularFile(item.Path) {
				out.Kept = append(out.Kept, KeptItem{Item: item, Reason: err.Error()})
			}
		} else {
			undo.BackupPath = sql.NullString{String: backupPath, Valid: true}
			undo.CanRestore = true
			if hasOwner {
				undo.BackupUID = sql.NullInt64{Int64: int64(uid), Valid: true}
				undo.BackupGID = sql.NullInt64{Int64: int64(gid), Valid: true}
			}
			u.logger.Debug("item backed up", "op", opID, "path", item.Path, "backup", backupPath)
		}

		if _, err := u.db.SaveUndoItem(undo); err != nil {
			out.Kept = append(out.Kept, u.keptItems(items[i+1:], "operation not logged")...)
			return out, fmt.Errorf("saving undo item for %s: %w", item.Path, err)
		}
	}

	u.logger.Info("operation logged", "op", opID, "plugin", pluginName, "items", len(items), "kept", len(out.Kept))
	return out, nil
}

// keptItems returns the items that are still regular files on disk.
func (u *UndoService) keptItems(items []CleanableItem, reason string) []KeptItem {
	var kept []KeptItem
	for _, item := range items {
		if u.isRegularFile(item.Path) {
			kept = append(kept, KeptItem{Item: item, Reason: reason})
		}
	}
	return kept
}

func (u *UndoService) isRegularFile(path string) bool {
	info, err := u.fsmgr.Lstat(path)
	return err == nil && info.Mode().IsRegular()
}

func (u *UndoService) backupItem(path, dir string, dirReady *bool, used map[string]bool) (string, int, int, bool, error) {
	info, err := u.fsmgr.Lstat(path)
	if err != nil {
		return "", 0, 0, false, fmt.Errorf("stat: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", 0, 0, false, fmt.Errorf("not a regular file")
	}
	uid, gid, hasOwner := u.fsmgr.Owner(info)

	if !*dirReady {
		if err := u.fsmgr.MkdirAll(dir); err != nil {
			return "", 0, 0, false, fmt.Errorf("creating backup directory: %w", err)
		}
		*dirReady = true
	}

	dest := u.uniqueBackupPath(dir, filepath.Base(path), used)
	if err := moveFile(u.fsmgr, path, dest); err != nil {
		return "", 0, 0, false, err
	}
	used[dest] = true
	return dest, uid, gid, hasOwner, nil
}

// uniqueBackupPath keeps the original file name unless another item of the
// same operation already took it, in which case .1, .2, ... is appended.
func (u *UndoService) uniqueBackupPath(dir, base string, used map[string]bool) string {
	dest := filepath.Join(dir, base)
	for n := 1; used[dest] || exists(u.fsmgr, dest); n++ {
		dest = filepath.Join(dir, base+"."+strconv.Itoa(n))
	}
	return dest
}

// GetUndoItems returns the undo records of an operation.
func (u *UndoService) GetUndoItems(operationID int64) ([]*model.UndoItem, error) {
	items, err := u.db.GetUndoItems(operationID)
	if err != nil {
		return nil, fmt.Errorf("getting undo items: %w", err)
	}
	return items, nil
}

func backupDirName(opID int64, t time.Time) string {
	return fmt.Sprintf("op_%d_%s", opID, t.UTC().Format(backupTimeFormat))
}
