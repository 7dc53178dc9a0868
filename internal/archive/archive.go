// Package archive copies backup directories into a vault as compressed,
// optionally encrypted tarballs, and fetches them back.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"sc-go/internal/encryption"
	"sc-go/internal/sc"
)

const (
	keyPrefix = "backups/"
	extension = ".tar.zst"
)

// ErrArchiveNotFound is returned by Fetch for names the vault does not hold.
var ErrArchiveNotFound = errors.New("archive not found")

// Archiver implements sc.Archiver on top of a vault.
type Archiver struct {
	vault     sc.Vault
	encryptor sc.Encryptor
	logger    sc.Logger
}

var _ sc.Archiver = (*Archiver)(nil)

func NewArchiver(vault sc.Vault, encryptor sc.Encryptor, logger sc.Logger) *Archiver {
	if logger == nil {
		logger = sc.NewNopLogger()
	}
	return &Archiver{vault: vault, encryptor: encryptor, logger: logger}
}

// ValidateSetup checks that the vault is reachable.
func (a *Archiver) ValidateSetup() error {
	return a.vault.ValidateSetup()
}

// Key returns the vault key under which the backup directory name is stored.
func (a *Archiver) Key(name string) string {
	return keyPrefix + name + extension + encryption.Suffix(a.encryptor)
}

// Archive writes dir as <name>.tar.zst into the vault. The stream is staged
// in a temp file because vaults need the size up front.
func (a *Archiver) Archive(name, dir string) error {
	tmp, err := os.CreateTemp("", "sc-archive-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(writeTarball(pw, dir))
	}()
	if err := a.encryptor.Encrypt(pr, tmp); err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("encrypting archive of %s: %w", name, err)
	}

	size, err := tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("sizing archive: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding archive: %w", err)
	}

	key := a.Key(name)
	if err := a.vault.PutContent(key, tmp, size); err != nil {
		return fmt.Errorf("storing %s: %w", key, err)
	}
	a.logger.Info("backup archived", "dir", name, "key", key, "bytes", size)
	return nil
}

// Entry is one archived backup held by the vault.
type Entry struct {
	Name string
	Key  string
}

// List returns the archived backups, sorted by key.
func (a *Archiver) List() ([]Entry, error) {
	keys, err := a.vault.ListContent(keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing archives: %w", err)
	}
	var entries []Entry
	for _, key := range keys {
		name, ok := parseKey(key)
		if !ok {
			continue
		}
		entries = append(entries, Entry{Name: name, Key: key})
	}
	return entries, nil
}

// parseKey strips the prefix, the encryption suffix and the extension.
func parseKey(key string) (string, bool) {
	name := strings.TrimPrefix(key, keyPrefix)
	if strings.Contains(name, "/") {
		return "", false
	}
	for _, suffix := range []string{".age", ".enc"} {
		name = strings.TrimSuffix(name, suffix)
	}
	if !strings.HasSuffix(name, extension) {
		return "", false
	}
	return strings.TrimSuffix(name, extension), true
}

// Fetch extracts the archive of name into destRoot/name and returns that
// path. An existing destination is never overwritten.
func (a *Archiver) Fetch(name, destRoot, passphrase string) (string, error) {
	dest := filepath.Join(destRoot, name)
	if _, err := os.Lstat(dest); err == nil {
		return "", fmt.Errorf("destination %s already exists", dest)
	}

	entries, err := a.List()
	if err != nil {
		return "", err
	}
	var key string
	for _, e := range entries {
		if e.Name == name {
			key = e.Key
		}
	}
	if key == "" {
		return "", fmt.Errorf("%w: %s", ErrArchiveNotFound, name)
	}
	if key != a.Key(name) {
		return "", fmt.Errorf("archive %s was written with a different encryption setting", key)
	}

	dec, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return "", fmt.Errorf("unlocking key: %w", err)
	}

	tmp, err := os.CreateTemp("", "sc-fetch-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()
	if err := a.vault.GetContent(key, tmp); err != nil {
		return "", fmt.Errorf("downloading %s: %w", key, err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewinding archive: %w", err)
	}

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := dec.Decrypt(tmp, pw)
		pw.CloseWithError(err)
		done <- err
	}()
	err = extractTarball(pr, dest)
	pr.Close()
	decErr := <-done
	if err == nil && decErr != nil && !errors.Is(decErr, io.ErrClosedPipe) {
		err = decErr
	}
	if err != nil {
		os.RemoveAll(dest)
		return "", fmt.Errorf("extracting %s: %w", key, err)
	}
	a.logger.Info("archive fetched", "key", key, "dest", dest)
	return dest, nil
}

func writeTarball(w io.Writer, dir string) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	tw := tar.NewWriter(zw)

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil || rel == "." {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		var link string
		if d.Type()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("writing tarball of %s: %w", dir, err)
	}
	if err := tw.Close(); err != nil {
		zw.Close()
		return fmt.Errorf("closing tarball: %w", err)
	}
	return zw.Close()
}

func extractTarball(r io.Reader, dest string) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("creating zstd reader: %w", err)
	}
	defer zr.Close()

	if err := os.MkdirAll(dest, 0700); err != nil {
		return err
	}
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target, err := entryPath(dest, hdr.Name)
		if err != nil {
			return err
		}
		if err := noSymlinkParents(dest, target); err != nil {
			return fmt.Errorf("archive entry %q: %w", hdr.Name, err)
		}
		mode := hdr.FileInfo().Mode()

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, mode.Perm()|0700); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode.Perm())
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			os.Chtimes(target, hdr.ModTime, hdr.ModTime)
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		default:
			// Devices and fifos are not restorable from a backup directory.
		}
	}
}

// entryPath refuses entries that would land outside dest.
func entryPath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(name) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return target, nil
}

// noSymlinkParents refuses a target whose parent directories below dest
// include a symlink, such as one extracted from an earlier entry.
func noSymlinkParents(dest, target string) error {
	rel, err := filepath.Rel(dest, filepath.Dir(target))
	if err != nil {
		return err
	}
	if rel == "." {
		return nil
	}
	cur := dest
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return fmt.Errorf("parent %s is a symlink", cur)
		}
	}
	return nil
}
