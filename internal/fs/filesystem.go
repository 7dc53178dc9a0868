package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"sc-go/internal/sc"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
type OSFilesystemManager struct{}

// NewOSFilesystemManager creates a new filesystem manager that operates on the real filesystem.
func NewOSFilesystemManager() *OSFilesystemManager {
	return &OSFilesystemManager{}
}

func (m *OSFilesystemManager) Lstat(path string) (fs.FileInfo, error) {
	return os.Lstat(path)
}

func (m *OSFilesystemManager) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (m *OSFilesystemManager) Remove(path string) error {
	return os.Remove(path)
}

func (m *OSFilesystemManager) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (m *OSFilesystemManager) MkdirAll(path string) error {
	return os.MkdirAll(path, 0700)
}

func (m *OSFilesystemManager) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}

// Chown changes the owner of path without following symlinks.
func (m *OSFilesystemManager) Chown(path string, uid, gid int) error {
	if err := unix.Lchown(path, uid, gid); err != nil {
		return &os.PathError{Op: "chown", Path: path, Err: err}
	}
	return nil
}

// CopyFile copies a regular file's content, permission bits and timestamps.
// A partially written destination is removed on failure.
func (m *OSFilesystemManager) CopyFile(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}

	success := false
	defer func() {
		if !success {
			os.Remove(dst)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying data: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing destination: %w", err)
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	atime := accessTime(info)
	if err := os.Chtimes(dst, atime, info.ModTime()); err != nil {
		return fmt.Errorf("setting timestamps: %w", err)
	}

	success = true
	return nil
}

// Writable reports whether the current user may create or delete entries in
// the directory containing path. In a sticky directory such as /tmp only the
// owner of an existing entry, the owner of the directory or root may delete it.
func Writable(path string) bool {
	dir := filepath.Dir(path)
	if unix.Access(dir, unix.W_OK) != nil {
		return false
	}
	var dirStat unix.Stat_t
	if err := unix.Stat(dir, &dirStat); err != nil {
		return false
	}
	if dirStat.Mode&unix.S_ISVTX == 0 {
		return true
	}
	euid := os.Geteuid()
	if euid == 0 || int(dirStat.Uid) == euid {
		return true
	}
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return true
	}
	return int(st.Uid) == euid
}

// CanRemove reports whether path can be moved or deleted by this process.
func (m *OSFilesystemManager) CanRemove(path string) bool {
	return Writable(path)
}

// Compile-time check that OSFilesystemManager implements sc.FilesystemManager interface
var _ sc.FilesystemManager = (*OSFilesystemManager)(nil)
