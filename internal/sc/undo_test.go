package sc_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sc-go/internal/database"
	"sc-go/internal/model"
	"sc-go/internal/sc"
	"sc-go/internal/testutil"
)

type undoEnv struct {
	undo  *sc.UndoService
	db    *database.SQLiteDatabase
	fs    *testutil.FaultyFilesystem
	clock *testutil.StubClock
	root  string // backup root
	work  string // where test files live
}

func newUndoEnv(t *testing.T) *undoEnv {
	t.Helper()
	clock := testutil.FixedClock()
	db := testutil.NewTestDatabase(t, clock)
	fsm := testutil.NewFaultyFilesystem()
	dir := t.TempDir()
	root := filepath.Join(dir, "backups")
	work := filepath.Join(dir, "work")
	if err := os.MkdirAll(work, 0755); err != nil {
		t.Fatalf("creating work dir: %v", err)
	}
	return &undoEnv{
		undo:  sc.NewUndoService(db, fsm, root, clock, nil),
		db:    db,
		fs:    fsm,
		clock: clock,
		root:  root,
		work:  work,
	}
}

// file creates a file under the work dir and returns it as a cleanable item.
func (e *undoEnv) file(t *testing.T, rel, content string) sc.CleanableItem {
	t.Helper()
	path := filepath.Join(e.work, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating parent of %s: %v", rel, err)
	}
	testutil.WriteFile(t, path, content)
	return sc.CleanableItem{Path: path, Size: int64(len(content)), Safety: sc.Safe}
}

func (e *undoEnv) items(t *testing.T, opID int64) []*model.UndoItem {
	t.Helper()
	items, err := e.undo.GetUndoItems(opID)
	if err != nil {
		t.Fatalf("GetUndoItems() error = %v", err)
	}
	return items
}

func TestLogOperation_BacksUpFiles(t *testing.T) {
	e := newUndoEnv(t)
	a := e.file(t, "a.txt", "hello")
	b := e.file(t, "sub/b.log", "world!")
	wantA := testutil.SHA256Hex([]byte("hello"))

	opID, err := e.undo.LogOperation("Temporary Files", []sc.CleanableItem{a, b})
	if err != nil {
		t.Fatalf("LogOperation() error = %v", err)
	}

	op, err := e.db.GetOperation(opID)
	if err != nil {
		t.Fatalf("GetOperation() error = %v", err)
	}
	if op.PluginName != "Temporary Files" || op.ItemsCount != 2 || op.SizeFreed != 11 || !op.Success {
		t.Errorf("operation = %+v", op)
	}

	wantDir := filepath.Join(e.root, "op_1_20240115103000")
	items := e.items(t, opID)
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	for _, it := range items {
		if !it.CanRestore {
			t.Errorf("%s: CanRestore = false", it.ItemPath)
		}
		if filepath.Dir(it.BackupPath.String) != wantDir {
			t.Errorf("%s: backup %s not in %s", it.ItemPath, it.BackupPath.String, wantDir)
		}
		if _, err := os.Stat(it.ItemPath); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s still exists after backup", it.ItemPath)
		}
		if !it.BackupUID.Valid || !it.BackupGID.Valid {
			t.Errorf("%s: ownership not recorded", it.ItemPath)
		}
	}
	if got := testutil.FileSHA256(t, filepath.Join(wantDir, "a.txt")); got != wantA {
		t.Errorf("backup content hash = %s, want %s", got, wantA)
	}
}

func TestLogOperation_UnbackableItems(t *testing.T) {
	e := newUndoEnv(t)
	dir := filepath.Join(e.work, "cachedir")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	items := []sc.CleanableItem{
		{Path: dir, Size: 4096},
		{Path: filepath.Join(e.work, "gone.tmp"), Size: 1},
		{Path: "linux-image-5.15.0-91-generic", Size: 1 << 20},
	}

	opID, err := e.undo.LogOperation("mixed", items)
	if err != nil {
		t.Fatalf("LogOperation() error = %v", err)
	}

	got := e.items(t, opID)
	if len(got) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(got))
	}
	for _, it := range got {
		if it.CanRestore || it.BackupPath.Valid {
			t.Errorf("%s recorded as restorable", it.ItemPath)
		}
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory was touched: %v", err)
	}
	// Nothing was moved, so no backup directory exists.
	if _, err := os.Stat(e.root); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("backup root created without any backup: %v", err)
	}
}

func TestLogOperation_SameBasename(t *testing.T) {
	e := newUndoEnv(t)
	x := e.file(t, "one/cache.db", "first")
	y := e.file(t, "two/cache.db", "second")

	opID, err := e.undo.LogOperation("dupes", []sc.CleanableItem{x, y})
	if err != nil {
		t.Fatalf("LogOperation() error = %v", err)
	}
	items := e.items(t, opID)
	if items[0].BackupPath.String == items[1].BackupPath.String {
		t.Fatalf("both items backed up to %s", items[0].BackupPath.String)
	}
	if !strings.HasSuffix(items[1].BackupPath.String, "cache.db.1") {
		t.Errorf("second backup = %s, want suffix cache.db.1", items[1].BackupPath.String)
	}

	if _, err := e.undo.RestoreOperation(opID, sc.ConflictRename); err != nil {
		t.Fatalf("RestoreOperation() error = %v", err)
	}
	for path, want := range map[string]string{x.Path: "first", y.Path: "second"} {
		data, err := os.ReadFile(path)
		if err != nil || string(data) != want {
			t.Errorf("%s = %q, %v; want %q", path, data, err, want)
		}
	}
}

func TestLogOperation_RenameFallsBackToCopy(t *testing.T) {
	e := newUndoEnv(t)
	a := e.file(t, "a.bin", "payload")
	e.fs.RenameErr = func(oldpath, newpath string) error {
		return errors.New("invalid cross-device link")
	}

	opID, err := e.undo.LogOperation("xdev", []sc.CleanableItem{a})
	if err != nil {
		t.Fatalf("LogOperation() error = %v", err)
	}
	items := e.items(t, opID)
	if !items[0].CanRestore {
		t.Fatal("item not restorable after copy fallback")
	}
	if _, err := os.Stat(a.Path); !errors.Is(err, os.ErrNotExist) {
		t.Error("source not removed after copy")
	}
	data, err := os.ReadFile(items[0].BackupPath.String)
	if err != nil || string(data) != "payload" {
		t.Errorf("backup = %q, %v", data, err)
	}
}

func TestLogOperation_MoveAndCopyFail(t *testing.T) {
	e := newUndoEnv(t)
	a := e.file(t, "a.bin", "payload")
	e.fs.RenameErr = func(string, string) error { return errors.New("rename denied") }
	e.fs.CopyErr = func(string, string) error { return errors.New("disk full") }
	logger := &testutil.RecordingLogger{}
	e.undo = sc.NewUndoService(e.db, e.fs, e.root, e.clock, logger)

	opID, err := e.undo.LogOperation("broken", []sc.CleanableItem{a})
	if err != nil {
		t.Fatalf("LogOperation() error = %v", err)
	}
	items := e.items(t, opID)
	if items[0].CanRestore {
		t.Error("item restorable although the move failed")
	}
	if _, err := os.Stat(a.Path); err != nil {
		t.Errorf("source lost: %v", err)
	}
	if !logger.Contains("WARN", "not backed up") {
		t.Errorf("missing warning, log:\n%s", logger)
	}
}

func TestLogOperationOutcome_ReportsKeptFiles(t *testing.T) {
	e := newUndoEnv(t)
	stuck := e.file(t, "stuck.bin", "payload")
	moved := e.file(t, "moved.bin", "ok")
	gone := sc.CleanableItem{Path: filepath.Join(e.work, "gone.bin"), Size: 4}
	e.fs.RenameErr = func(src, _ string) error {
		if src == stuck.Path {
			return errors.New("operation not permitted")
		}
		return nil
	}
	e.fs.CopyErr = func(string, string) error { return errors.New("operation not permitted") }

	out, err := e.undo.LogOperationOutcome("p", []sc.CleanableItem{stuck, moved, gone})
	if err != nil {
		t.Fatalf("LogOperationOutcome() error = %v", err)
	}
	if out.OperationID == 0 {
		t.Error("OperationID not set")
	}
	if len(out.Kept) != 1 || out.Kept[0].Item.Path != stuck.Path {
		t.Fatalf("Kept = %+v, want only %s", out.Kept, stuck.Path)
	}
	if !strings.Contains(out.Kept[0].Reason, "operation not permitted") {
		t.Errorf("Reason = %q", out.Kept[0].Reason)
	}

	e.db.Close()
	other := e.file(t, "other.bin", "x")
	out, err = e.undo.LogOperationOutcome("p", []sc.CleanableItem{other})
	if err == nil {
		t.Fatal("LogOperationOutcome() expected error with closed store")
	}
	if len(out.Kept) != 1 || out.Kept[0].Item.Path != other.Path {
		t.Errorf("Kept = %+v after store failure, want %s", out.Kept, other.Path)
	}
}

func TestLogOperation_StoreFailure(t *testing.T) {
	e := newUndoEnv(t)
	a := e.file(t, "a.txt", "x")
	e.db.Close()

	if _, err := e.undo.LogOperation("p", []sc.CleanableItem{a}); err == nil {
		t.Fatal("LogOperation() expected error with closed store")
	}
	if _, err := os.Stat(a.Path); err != nil {
		t.Errorf("file moved although nothing was logged: %v", err)
	}
}

func TestLogOperation_SeparateOperationsSeparateDirs(t *testing.T) {
	e := newUndoEnv(t)
	a := e.file(t, "a.txt", "1")
	id1, _ := e.undo.LogOperation("p", []sc.CleanableItem{a})
	e.clock.Advance(90 * time.Second)
	b := e.file(t, "a.txt", "2")
	id2, _ := e.undo.LogOperation("p", []sc.CleanableItem{b})

	dirs, err := e.undo.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}
	if len(dirs) != 2 {
		t.Fatalf("len(dirs) = %d, want 2", len(dirs))
	}
	if dirs[0].OperationID != id2 || dirs[1].OperationID != id1 {
		t.Errorf("order = %d, %d; want %d, %d", dirs[0].OperationID, dirs[1].OperationID, id2, id1)
	}
	if dirs[0].Name != "op_2_20240115103130" {
		t.Errorf("newest dir = %s", dirs[0].Name)
	}
}
