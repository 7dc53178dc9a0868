package sc

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Archiver saves a backup directory somewhere else before it is pruned.
type Archiver interface {
	Archive(name, dir string) error
}

// PruneOptions selects backup directories to remove. A nil field is not
// applied; when both are set the union of both selections is removed.
type PruneOptions struct {
	KeepLast      *int
	OlderThanDays *int

	// DryRun reports the selection without touching the filesystem.
	DryRun bool

	// Archiver, when set, is given each selected directory before removal.
	// A directory whose archive fails is kept.
	Archiver Archiver
}

// PruneResult reports what PruneBackups did.
type PruneResult struct {
	Removed   int
	Remaining int
	Archived  int
	Selected  []BackupDir
}

// BackupDir is one op_<id>_<timestamp> directory under the backup root.
type BackupDir struct {
	Name        string
	Path        string
	OperationID int64
	Time        time.Time // zero when the suffix did not parse
}

// ListBackups returns the backup directories newest first. Directories with an
// unparsable timestamp sort as oldest. A missing backup root yields nothing.
func (u *UndoService) ListBackups() ([]BackupDir, error) {
	entries, err := u.fsmgr.ReadDir(u.backupRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup root: %w", err)
	}

	var dirs []BackupDir
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		bd, ok := parseBackupDirName(e.Name())
		if !ok {
			continue
		}
		bd.Path = filepath.Join(u.backupRoot, e.Name())
		dirs = append(dirs, bd)
	}

	sort.SliceStable(dirs, func(i, j int) bool {
		if !dirs[i].Time.Equal(dirs[j].Time) {
			return dirs[i].Time.After(dirs[j].Time)
		}
		return dirs[i].OperationID > dirs[j].OperationID
	})
	return dirs, nil
}

// parseBackupDirName accepts op_<digits>_<suffix>.
func parseBackupDirName(name string) (BackupDir, bool) {
	rest, ok := strings.CutPrefix(name, "op_")
	if !ok {
		return BackupDir{}, false
	}
	idPart, suffix, ok := strings.Cut(rest, "_")
	if !ok {
		return BackupDir{}, false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return BackupDir{}, false
	}
	bd := BackupDir{Name: name, OperationID: id}
	if t, err := time.ParseInLocation(backupTimeFormat, suffix, time.UTC); err == nil {
		bd.Time = t
	}
	return bd, true
}

// PruneBackups removes old backup directories. Store records are not touched;
// restoring a pruned operation reports "backup missing" per item.
func (u *UndoService) PruneBackups(opts PruneOptions) (*PruneResult, error) {
	dirs, err := u.ListBackups()
	if err != nil {
		return nil, err
	}

	selected := make(map[string]bool)
	if opts.KeepLast != nil {
		keep := max(*opts.KeepLast, 0)
		for i := keep; i < len(dirs); i++ {
			selected[dirs[i].Name] = true
		}
	}
	if opts.OlderThanDays != nil {
		cutoff := u.clock.Now().Add(-time.Duration(*opts.OlderThanDays) * 24 * time.Hour)
		for _, d := range dirs {
			if d.Time.Before(cutoff) {
				selected[d.Name] = true
			}
		}
	}

	result := &PruneResult{}
	for _, d := range dirs {
		if !selected[d.Name] {
			continue
		}
		result.Selected = append(result.Selected, d)
		if opts.DryRun {
			continue
		}

		if opts.Archiver != nil {
			if err := opts.Archiver.Archive(d.Name, d.Path); err != nil {
				u.logger.Warn("archiving backup failed, keeping it", "dir", d.Name, "error", err)
				continue
			}
			result.Archived++
		}
		if err := u.fsmgr.RemoveAll(d.Path); err != nil {
			u.logger.Warn("removing backup failed", "dir", d.Name, "error", err)
			continue
		}
		u.logger.Info("backup pruned", "dir", d.Name)
		result.Removed++
	}
	result.Remaining = len(dirs) - result.Removed
	return result, nil
}
