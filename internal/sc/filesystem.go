package sc

import (
	"fmt"
	"io/fs"
)

// FilesystemManager abstracts the filesystem calls the undo engine makes so
// tests can inject failures.
type FilesystemManager interface {
	Lstat(path string) (fs.FileInfo, error)

	// Owner extracts uid/gid from info. ok is false when the platform does not
	// expose ownership.
	Owner(info fs.FileInfo) (uid, gid int, ok bool)

	Rename(oldpath, newpath string) error

	// CopyFile copies content, permission bits and modification time.
	CopyFile(src, dst string) error

	Remove(path string) error

	// CanRemove reports whether the process may move or delete path.
	CanRemove(path string) bool
	RemoveAll(path string) error
	MkdirAll(path string) error
	Chown(path string, uid, gid int) error
	ReadDir(path string) ([]fs.DirEntry, error)
}

// moveFile renames src to dst, falling back to copy then delete when the
// rename fails (for example across filesystems).
func moveFile(fsm FilesystemManager, src, dst string) error {
	renameErr := fsm.Rename(src, dst)
	if renameErr == nil {
		return nil
	}
	if err := fsm.CopyFile(src, dst); err != nil {
		return fmt.Errorf("move failed: %v; copy fallback failed: %v", renameErr, err)
	}
	if err := fsm.Remove(src); err != nil {
		_ = fsm.Remove(dst)
		return fmt.Errorf("move failed: %v; removing source after copy failed: %v", renameErr, err)
	}
	return nil
}

func exists(fsm FilesystemManager, path string) bool {
	_, err := fsm.Lstat(path)
	return err == nil
}
