package vault

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func newTestFSVault(t *testing.T) (*FileSystemVault, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "vault")
	v, err := NewFileSystemVault("test", root)
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}
	return v, root
}

func TestFileSystemVault_PutGet(t *testing.T) {
	v, root := newTestFSVault(t)
	data := "archive bytes"

	if err := v.PutContent("backups/op_1.tar.zst", strings.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("PutContent() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "backups", "op_1.tar.zst")); err != nil {
		t.Errorf("content not stored under root: %v", err)
	}

	var buf bytes.Buffer
	if err := v.GetContent("backups/op_1.tar.zst", &buf); err != nil {
		t.Fatalf("GetContent() error = %v", err)
	}
	if buf.String() != data {
		t.Errorf("GetContent() = %q, want %q", buf.String(), data)
	}
}

func TestFileSystemVault_PutOverwrites(t *testing.T) {
	v, _ := newTestFSVault(t)
	for _, data := range []string{"first", "second version"} {
		if err := v.PutContent("k", strings.NewReader(data), int64(len(data))); err != nil {
			t.Fatalf("PutContent() error = %v", err)
		}
	}
	var buf bytes.Buffer
	if err := v.GetContent("k", &buf); err != nil {
		t.Fatalf("GetContent() error = %v", err)
	}
	if buf.String() != "second version" {
		t.Errorf("GetContent() = %q, want %q", buf.String(), "second version")
	}
}

func TestFileSystemVault_SizeMismatch(t *testing.T) {
	v, root := newTestFSVault(t)

	err := v.PutContent("backups/short", strings.NewReader("abc"), 10)
	if err == nil || !strings.Contains(err.Error(), "size mismatch") {
		t.Fatalf("PutContent() error = %v, want size mismatch", err)
	}
	if _, err := os.Stat(filepath.Join(root, "backups", "short")); !os.IsNotExist(err) {
		t.Error("partial content was left in place")
	}
	entries, _ := os.ReadDir(filepath.Join(root, "backups"))
	if len(entries) != 0 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestFileSystemVault_GetMissing(t *testing.T) {
	v, _ := newTestFSVault(t)
	err := v.GetContent("nope", &bytes.Buffer{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetContent() error = %v, want ErrNotFound", err)
	}
}

func TestFileSystemVault_InvalidKeys(t *testing.T) {
	v, _ := newTestFSVault(t)
	for _, key := range []string{"", "/etc/passwd", "..", "../escape", "a/../../b"} {
		t.Run(key, func(t *testing.T) {
			if err := v.PutContent(key, strings.NewReader("x"), 1); err == nil {
				t.Errorf("PutContent(%q) expected error", key)
			}
			if err := v.GetContent(key, &bytes.Buffer{}); err == nil {
				t.Errorf("GetContent(%q) expected error", key)
			}
		})
	}
}

func TestFileSystemVault_ListContent(t *testing.T) {
	v, root := newTestFSVault(t)
	for _, key := range []string{"backups/b", "backups/a", "other/c"} {
		if err := v.PutContent(key, strings.NewReader("x"), 1); err != nil {
			t.Fatalf("PutContent(%q) error = %v", key, err)
		}
	}
	// Leftover from an interrupted write.
	if err := os.WriteFile(filepath.Join(root, "backups", ".tmp-123"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := v.ListContent("backups/")
	if err != nil {
		t.Fatalf("ListContent() error = %v", err)
	}
	want := []string{"backups/a", "backups/b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListContent() = %v, want %v", got, want)
	}

	all, _ := v.ListContent("")
	if len(all) != 3 {
		t.Errorf("ListContent(\"\") = %v, want 3 keys", all)
	}
}

func TestFileSystemVault_ValidateSetup(t *testing.T) {
	v, root := newTestFSVault(t)
	if err := v.ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}

	os.RemoveAll(root)
	if err := v.ValidateSetup(); err == nil {
		t.Error("ValidateSetup() expected error for missing root")
	}

	if err := os.WriteFile(root, []byte("not a dir"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := v.ValidateSetup(); err == nil {
		t.Error("ValidateSetup() expected error when root is a file")
	}
}
