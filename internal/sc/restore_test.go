package sc_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sc-go/internal/model"
	"sc-go/internal/sc"
	"sc-go/internal/testutil"
)

func TestParseConflictPolicy(t *testing.T) {
	for _, in := range []string{"rename", "OVERWRITE", " skip "} {
		if _, err := sc.ParseConflictPolicy(in); err != nil {
			t.Errorf("ParseConflictPolicy(%q) error = %v", in, err)
		}
	}
	if _, err := sc.ParseConflictPolicy("merge"); !errors.Is(err, sc.ErrInvalidConflictPolicy) {
		t.Errorf("ParseConflictPolicy(merge) error = %v, want ErrInvalidConflictPolicy", err)
	}
}

// backedUp logs a single-file operation and returns its id and the item.
func backedUp(t *testing.T, e *undoEnv, rel, content string) (int64, sc.CleanableItem) {
	t.Helper()
	item := e.file(t, rel, content)
	opID, err := e.undo.LogOperation("test", []sc.CleanableItem{item})
	if err != nil {
		t.Fatalf("LogOperation() error = %v", err)
	}
	return opID, item
}

func restoreOne(t *testing.T, e *undoEnv, opID int64, policy sc.ConflictPolicy) (bool, *model.UndoItem) {
	t.Helper()
	results, err := e.undo.RestoreOperation(opID, policy)
	if err != nil {
		t.Fatalf("RestoreOperation() error = %v", err)
	}
	items := e.items(t, opID)
	if len(items) != 1 || len(results) != 1 {
		t.Fatalf("got %d items and %d results, want 1", len(items), len(results))
	}
	return results[items[0].ID], items[0]
}

func TestRestoreOperation_RoundTrip(t *testing.T) {
	e := newUndoEnv(t)
	opID, item := backedUp(t, e, "deep/dir/a.txt", "original content")
	want := testutil.SHA256Hex([]byte("original content"))

	// The parent is gone by the time the user restores.
	if err := os.RemoveAll(filepath.Join(e.work, "deep")); err != nil {
		t.Fatal(err)
	}

	ok, rec := restoreOne(t, e, opID, sc.DefaultConflictPolicy)
	if !ok {
		t.Fatalf("restore failed: %s", rec.RestoreError.String)
	}
	if got := testutil.FileSHA256(t, item.Path); got != want {
		t.Errorf("restored hash = %s, want %s", got, want)
	}
	if rec.Restored != model.RestoreSucceeded || !rec.RestoredAt.Valid {
		t.Errorf("record = %+v, want restored with timestamp", rec)
	}
	if _, err := os.Stat(rec.BackupPath.String); !errors.Is(err, os.ErrNotExist) {
		t.Error("backup still present after restore")
	}
}

func TestRestoreOperation_ConflictPolicies(t *testing.T) {
	t.Run("rename moves occupant aside", func(t *testing.T) {
		e := newUndoEnv(t)
		opID, item := backedUp(t, e, "a.txt", "backup")
		testutil.WriteFile(t, item.Path, "newer")

		ok, rec := restoreOne(t, e, opID, sc.ConflictRename)
		if !ok {
			t.Fatalf("restore failed: %s", rec.RestoreError.String)
		}
		aside := item.Path + ".orig.20240115103000"
		if data, err := os.ReadFile(aside); err != nil || string(data) != "newer" {
			t.Errorf("aside = %q, %v; want %q", data, err, "newer")
		}
		if data, _ := os.ReadFile(item.Path); string(data) != "backup" {
			t.Errorf("restored = %q, want %q", data, "backup")
		}
	})

	t.Run("rename keeps earlier occupants from the same second", func(t *testing.T) {
		e := newUndoEnv(t)
		first, item := backedUp(t, e, "a.txt", "backup one")
		testutil.WriteFile(t, item.Path, "occupant one")
		if ok, rec := restoreOne(t, e, first, sc.ConflictRename); !ok {
			t.Fatalf("first restore failed: %s", rec.RestoreError.String)
		}

		second, err := e.undo.LogOperation("test", []sc.CleanableItem{item})
		if err != nil {
			t.Fatalf("LogOperation() error = %v", err)
		}
		testutil.WriteFile(t, item.Path, "occupant two")
		if ok, rec := restoreOne(t, e, second, sc.ConflictRename); !ok {
			t.Fatalf("second restore failed: %s", rec.RestoreError.String)
		}

		aside := item.Path + ".orig.20240115103000"
		for path, want := range map[string]string{aside: "occupant one", aside + ".1": "occupant two"} {
			if data, err := os.ReadFile(path); err != nil || string(data) != want {
				t.Errorf("%s = %q, %v; want %q", filepath.Base(path), data, err, want)
			}
		}
	})

	t.Run("overwrite removes occupant directory", func(t *testing.T) {
		e := newUndoEnv(t)
		opID, item := backedUp(t, e, "a.txt", "backup")
		if err := os.MkdirAll(filepath.Join(item.Path, "nested"), 0755); err != nil {
			t.Fatal(err)
		}

		ok, rec := restoreOne(t, e, opID, sc.ConflictOverwrite)
		if !ok {
			t.Fatalf("restore failed: %s", rec.RestoreError.String)
		}
		if data, _ := os.ReadFile(item.Path); string(data) != "backup" {
			t.Errorf("restored = %q, want %q", data, "backup")
		}
	})

	t.Run("skip leaves occupant", func(t *testing.T) {
		e := newUndoEnv(t)
		opID, item := backedUp(t, e, "a.txt", "backup")
		testutil.WriteFile(t, item.Path, "newer")

		ok, rec := restoreOne(t, e, opID, sc.ConflictSkip)
		if ok {
			t.Fatal("restore succeeded under skip policy")
		}
		if rec.RestoreError.String != "skipped due to existing destination" {
			t.Errorf("RestoreError = %q", rec.RestoreError.String)
		}
		if rec.Restored != model.RestoreFailed {
			t.Errorf("Restored = %v, want failed", rec.Restored)
		}
		if data, _ := os.ReadFile(item.Path); string(data) != "newer" {
			t.Errorf("occupant changed to %q", data)
		}
		if _, err := os.Stat(rec.BackupPath.String); err != nil {
			t.Errorf("backup gone after skip: %v", err)
		}
	})

	t.Run("unknown policy", func(t *testing.T) {
		e := newUndoEnv(t)
		opID, item := backedUp(t, e, "a.txt", "backup")
		testutil.WriteFile(t, item.Path, "newer")

		ok, rec := restoreOne(t, e, opID, sc.ConflictPolicy("merge"))
		if ok {
			t.Fatal("restore succeeded under unknown policy")
		}
		if !strings.Contains(rec.RestoreError.String, "unknown conflict policy") {
			t.Errorf("RestoreError = %q", rec.RestoreError.String)
		}
	})
}

func TestRestoreOperation_BackupMissing(t *testing.T) {
	e := newUndoEnv(t)
	opID, _ := backedUp(t, e, "a.txt", "x")
	if err := os.RemoveAll(e.root); err != nil {
		t.Fatal(err)
	}

	ok, rec := restoreOne(t, e, opID, sc.ConflictRename)
	if ok {
		t.Fatal("restore succeeded without backup")
	}
	if rec.RestoreError.String != "backup missing" {
		t.Errorf("RestoreError = %q, want %q", rec.RestoreError.String, "backup missing")
	}
}

func TestRestoreOperation_NoBackup(t *testing.T) {
	e := newUndoEnv(t)
	opID, err := e.undo.LogOperation("apt", []sc.CleanableItem{{Path: "package-cache"}})
	if err != nil {
		t.Fatalf("LogOperation() error = %v", err)
	}

	ok, rec := restoreOne(t, e, opID, sc.ConflictRename)
	if ok {
		t.Fatal("restore succeeded for an item that was never backed up")
	}
	if rec.RestoreError.String != "no backup available" {
		t.Errorf("RestoreError = %q", rec.RestoreError.String)
	}
}

func TestRestoreOperation_ChownFailureStillRestores(t *testing.T) {
	e := newUndoEnv(t)
	opID, item := backedUp(t, e, "a.txt", "x")
	e.fs.ChownErr = func(string, int, int) error { return errors.New("operation not permitted") }

	ok, rec := restoreOne(t, e, opID, sc.ConflictRename)
	if !ok {
		t.Fatalf("restore reported failure: %s", rec.RestoreError.String)
	}
	if rec.Restored != model.RestoreSucceeded {
		t.Errorf("Restored = %v, want succeeded", rec.Restored)
	}
	if !strings.Contains(rec.RestoreError.String, "chown") {
		t.Errorf("RestoreError = %q, want chown note", rec.RestoreError.String)
	}
	if _, err := os.Stat(item.Path); err != nil {
		t.Errorf("file not restored: %v", err)
	}
}

func TestRestoreOperation_MoveFailure(t *testing.T) {
	e := newUndoEnv(t)
	opID, item := backedUp(t, e, "a.txt", "x")
	e.fs.RenameErr = func(string, string) error { return errors.New("rename denied") }
	e.fs.CopyErr = func(string, string) error { return errors.New("read-only filesystem") }

	ok, rec := restoreOne(t, e, opID, sc.ConflictRename)
	if ok {
		t.Fatal("restore succeeded although both move paths failed")
	}
	msg := rec.RestoreError.String
	if !strings.Contains(msg, "rename denied") || !strings.Contains(msg, "read-only filesystem") {
		t.Errorf("RestoreError = %q, want both causes", msg)
	}
	if _, err := os.Stat(item.Path); !errors.Is(err, os.ErrNotExist) {
		t.Error("partial file left at original path")
	}
}

func TestRestoreOperation_Retry(t *testing.T) {
	e := newUndoEnv(t)
	opID, item := backedUp(t, e, "a.txt", "x")
	testutil.WriteFile(t, item.Path, "occupant")

	if ok, _ := restoreOne(t, e, opID, sc.ConflictSkip); ok {
		t.Fatal("first attempt should be skipped")
	}
	ok, rec := restoreOne(t, e, opID, sc.ConflictOverwrite)
	if !ok {
		t.Fatalf("retry failed: %s", rec.RestoreError.String)
	}
	if rec.RestoreError.Valid {
		t.Errorf("RestoreError = %q after successful retry, want NULL", rec.RestoreError.String)
	}
}

func TestRestoreOperation_UnknownOperation(t *testing.T) {
	e := newUndoEnv(t)
	results, err := e.undo.RestoreOperation(404, sc.ConflictRename)
	if err != nil {
		t.Fatalf("RestoreOperation() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %v, want empty", results)
	}
}
