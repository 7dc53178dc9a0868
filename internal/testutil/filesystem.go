package testutil

import (
	"sync"

	scfs "sc-go/internal/fs"
	"sc-go/internal/sc"
)

// FaultyFilesystem passes calls through to the real filesystem unless a
// failure hook for that call returns an error. It also counts mutating calls.
type FaultyFilesystem struct {
	*scfs.OSFilesystemManager

	RenameErr    func(oldpath, newpath string) error
	CopyErr      func(src, dst string) error
	ChownErr     func(path string, uid, gid int) error
	RemoveAllErr func(path string) error

	// Unremovable makes CanRemove report false for the paths it accepts.
	Unremovable func(path string) bool

	mu        sync.Mutex
	mutations int
}

var _ sc.FilesystemManager = (*FaultyFilesystem)(nil)

func NewFaultyFilesystem() *FaultyFilesystem {
	return &FaultyFilesystem{OSFilesystemManager: scfs.NewOSFilesystemManager()}
}

// Mutations returns how many mutating calls were made, failed ones included.
func (f *FaultyFilesystem) Mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mutations
}

func (f *FaultyFilesystem) count() {
	f.mu.Lock()
	f.mutations++
	f.mu.Unlock()
}

func (f *FaultyFilesystem) Rename(oldpath, newpath string) error {
	f.count()
	if f.RenameErr != nil {
		if err := f.RenameErr(oldpath, newpath); err != nil {
			return err
		}
	}
	return f.OSFilesystemManager.Rename(oldpath, newpath)
}

func (f *FaultyFilesystem) CopyFile(src, dst string) error {
	f.count()
	if f.CopyErr != nil {
		if err := f.CopyErr(src, dst); err != nil {
			return err
		}
	}
	return f.OSFilesystemManager.CopyFile(src, dst)
}

func (f *FaultyFilesystem) Chown(path string, uid, gid int) error {
	f.count()
	if f.ChownErr != nil {
		if err := f.ChownErr(path, uid, gid); err != nil {
			return err
		}
	}
	return f.OSFilesystemManager.Chown(path, uid, gid)
}

func (f *FaultyFilesystem) RemoveAll(path string) error {
	f.count()
	if f.RemoveAllErr != nil {
		if err := f.RemoveAllErr(path); err != nil {
			return err
		}
	}
	return f.OSFilesystemManager.RemoveAll(path)
}

func (f *FaultyFilesystem) Remove(path string) error {
	f.count()
	return f.OSFilesystemManager.Remove(path)
}

func (f *FaultyFilesystem) MkdirAll(path string) error {
	f.count()
	return f.OSFilesystemManager.MkdirAll(path)
}

func (f *FaultyFilesystem) CanRemove(path string) bool {
	if f.Unremovable != nil && f.Unremovable(path) {
		return false
	}
	return f.OSFilesystemManager.CanRemove(path)
}
