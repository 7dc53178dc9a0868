package sc_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"sc-go/internal/sc"
)

func intPtr(n int) *int { return &n }

// seedBackups creates backup directories (each holding one file) under the
// environment's backup root.
func seedBackups(t *testing.T, e *undoEnv, names ...string) {
	t.Helper()
	for _, name := range names {
		dir := filepath.Join(e.root, name)
		if err := os.MkdirAll(dir, 0700); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "f"), []byte(name), 0600); err != nil {
			t.Fatal(err)
		}
	}
}

func remaining(t *testing.T, e *undoEnv) []string {
	t.Helper()
	entries, err := os.ReadDir(e.root)
	if err != nil {
		t.Fatalf("reading backup root: %v", err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names
}

func TestListBackups(t *testing.T) {
	e := newUndoEnv(t)
	seedBackups(t, e,
		"op_1_20240101000000",
		"op_3_20240110000000",
		"op_2_20240110000000",
		"op_7_garbage",
		"notes",
		"op_x_20240101000000",
	)
	testFile := filepath.Join(e.root, "op_9_20240114000000")
	if err := os.WriteFile(testFile, nil, 0600); err != nil {
		t.Fatal(err)
	}

	dirs, err := e.undo.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}
	var got []string
	for _, d := range dirs {
		got = append(got, d.Name)
	}
	want := []string{"op_3_20240110000000", "op_2_20240110000000", "op_1_20240101000000", "op_7_garbage"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListBackups() = %v, want %v", got, want)
	}
	if !dirs[3].Time.IsZero() {
		t.Errorf("unparsable suffix time = %v, want zero", dirs[3].Time)
	}
}

func TestListBackups_MissingRoot(t *testing.T) {
	e := newUndoEnv(t)
	dirs, err := e.undo.ListBackups()
	if err != nil || len(dirs) != 0 {
		t.Errorf("ListBackups() = %v, %v; want empty, nil", dirs, err)
	}
}

func TestPruneBackups_KeepLast(t *testing.T) {
	e := newUndoEnv(t)
	seedBackups(t, e,
		"op_1_20240101000000",
		"op_2_20240102000000",
		"op_3_20240103000000",
		"op_4_20240104000000",
		"op_5_20240105000000",
	)

	res, err := e.undo.PruneBackups(sc.PruneOptions{KeepLast: intPtr(2)})
	if err != nil {
		t.Fatalf("PruneBackups() error = %v", err)
	}
	if res.Removed != 3 || res.Remaining != 2 {
		t.Errorf("result = %+v, want removed 3 remaining 2", res)
	}
	want := []string{"op_4_20240104000000", "op_5_20240105000000"}
	if got := remaining(t, e); !reflect.DeepEqual(got, want) {
		t.Errorf("remaining = %v, want %v", got, want)
	}
}

func TestPruneBackups_OlderThan(t *testing.T) {
	e := newUndoEnv(t) // clock at 2024-01-15 10:30
	seedBackups(t, e,
		"op_1_20240101000000",
		"op_2_20240112100000",
		"op_3_20240112110000",
		"op_4_20240115000000",
	)

	res, err := e.undo.PruneBackups(sc.PruneOptions{OlderThanDays: intPtr(3)})
	if err != nil {
		t.Fatalf("PruneBackups() error = %v", err)
	}
	if res.Removed != 2 || res.Remaining != 2 {
		t.Errorf("result = %+v, want removed 2 remaining 2", res)
	}
	want := []string{"op_3_20240112110000", "op_4_20240115000000"}
	if got := remaining(t, e); !reflect.DeepEqual(got, want) {
		t.Errorf("remaining = %v, want %v", got, want)
	}
}

func TestPruneBackups_Union(t *testing.T) {
	e := newUndoEnv(t)
	seedBackups(t, e,
		"op_1_20240101000000", // old
		"op_2_20240114000000",
		"op_3_20240115000000",
		"op_4_garbage", // unparsable, sorts oldest
	)

	res, err := e.undo.PruneBackups(sc.PruneOptions{KeepLast: intPtr(3), OlderThanDays: intPtr(7)})
	if err != nil {
		t.Fatalf("PruneBackups() error = %v", err)
	}
	// keep-last selects op_4; older-than selects op_1 and op_4.
	want := []string{"op_2_20240114000000", "op_3_20240115000000"}
	if got := remaining(t, e); !reflect.DeepEqual(got, want) {
		t.Errorf("remaining = %v, want %v", got, want)
	}
	if res.Removed != 2 || res.Remaining != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestPruneBackups_NoOptions(t *testing.T) {
	e := newUndoEnv(t)
	seedBackups(t, e, "op_1_20200101000000")

	res, err := e.undo.PruneBackups(sc.PruneOptions{})
	if err != nil {
		t.Fatalf("PruneBackups() error = %v", err)
	}
	if res.Removed != 0 || res.Remaining != 1 {
		t.Errorf("result = %+v, want nothing removed", res)
	}
}

func TestPruneBackups_DryRun(t *testing.T) {
	e := newUndoEnv(t)
	seedBackups(t, e, "op_1_20240101000000", "op_2_20240102000000")
	before := e.fs.Mutations()

	res, err := e.undo.PruneBackups(sc.PruneOptions{KeepLast: intPtr(0), DryRun: true})
	if err != nil {
		t.Fatalf("PruneBackups() error = %v", err)
	}
	if len(res.Selected) != 2 || res.Removed != 0 || res.Remaining != 2 {
		t.Errorf("result = %+v", res)
	}
	if e.fs.Mutations() != before {
		t.Error("dry run touched the filesystem")
	}
}

func TestPruneBackups_RemovalFailure(t *testing.T) {
	e := newUndoEnv(t)
	seedBackups(t, e, "op_1_20240101000000", "op_2_20240102000000", "op_3_20240103000000")
	e.fs.RemoveAllErr = func(path string) error {
		if strings.HasSuffix(path, "op_1_20240101000000") {
			return errors.New("device busy")
		}
		return nil
	}

	res, err := e.undo.PruneBackups(sc.PruneOptions{KeepLast: intPtr(1)})
	if err != nil {
		t.Fatalf("PruneBackups() error = %v", err)
	}
	if res.Removed != 1 || res.Remaining != 2 {
		t.Errorf("result = %+v, want removed 1 remaining 2", res)
	}
}

type stubArchiver struct {
	fail     string
	archived []string
}

func (a *stubArchiver) Archive(name, dir string) error {
	if name == a.fail {
		return errors.New("vault unreachable")
	}
	if _, err := os.Stat(dir); err != nil {
		return err
	}
	a.archived = append(a.archived, name)
	return nil
}

func TestPruneBackups_Archiver(t *testing.T) {
	e := newUndoEnv(t)
	seedBackups(t, e, "op_1_20240101000000", "op_2_20240102000000", "op_3_20240103000000")
	arch := &stubArchiver{fail: "op_1_20240101000000"}

	res, err := e.undo.PruneBackups(sc.PruneOptions{KeepLast: intPtr(1), Archiver: arch})
	if err != nil {
		t.Fatalf("PruneBackups() error = %v", err)
	}
	if res.Archived != 1 || res.Removed != 1 {
		t.Errorf("result = %+v, want archived 1 removed 1", res)
	}
	want := []string{"op_1_20240101000000", "op_3_20240103000000"}
	if got := remaining(t, e); !reflect.DeepEqual(got, want) {
		t.Errorf("remaining = %v, want %v", got, want)
	}
}

func TestPruneBackups_RestoreAfterPrune(t *testing.T) {
	e := newUndoEnv(t)
	opID, _ := backedUp(t, e, "a.txt", "x")

	if _, err := e.undo.PruneBackups(sc.PruneOptions{KeepLast: intPtr(0)}); err != nil {
		t.Fatalf("PruneBackups() error = %v", err)
	}
	ok, rec := restoreOne(t, e, opID, sc.ConflictRename)
	if ok || rec.RestoreError.String != "backup missing" {
		t.Errorf("restore after prune = %v, %q; want backup missing", ok, rec.RestoreError.String)
	}
}
