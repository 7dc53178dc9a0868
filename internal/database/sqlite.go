package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sc-go/internal/database/migrations"
	"sc-go/internal/model"
	"sc-go/internal/sc"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the Database interface using SQLite.
type SQLiteDatabase struct {
	db    *sql.DB
	path  string
	clock sc.Clock
}

// NewSQLiteDatabase opens the database at path, migrating it to the latest
// schema. path can be a file path or ":memory:". A nil clock uses sc.RealClock.
func NewSQLiteDatabase(path string, clock sc.Clock) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if _, err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	s := NewSQLiteDatabaseFromDB(db, clock)
	s.path = path
	return s, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection without
// migrating it. The caller is responsible for the schema.
func NewSQLiteDatabaseFromDB(db *sql.DB, clock sc.Clock) *SQLiteDatabase {
	if clock == nil {
		clock = sc.RealClock{}
	}
	return &SQLiteDatabase{
		db:    db,
		clock: clock,
	}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database, and a single
	// connection keeps per-connection PRAGMAs in effect.
	db.SetMaxOpenConns(1)

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Path returns the database location as given to NewSQLiteDatabase.
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Clean operations

func (s *SQLiteDatabase) LogCleanOperation(pluginName string, itemsCount int, sizeFreed int64, success bool, errorMessage string) (int64, error) {
	res, err := s.db.Exec(insertCleanOperation,
		formatTime(s.clock.Now()), pluginName, itemsCount, sizeFreed, success, nullString(errorMessage))
	if err != nil {
		return 0, fmt.Errorf("inserting clean operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading clean operation id: %w", err)
	}
	return id, nil
}

func (s *SQLiteDatabase) GetRecentOperations(limit int) ([]*model.CleanOperation, error) {
	rows, err := s.db.Query(selectRecentOperations, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent operations: %w", err)
	}
	defer rows.Close()

	var ops []*model.CleanOperation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating operations: %w", err)
	}
	return ops, nil
}

func (s *SQLiteDatabase) GetOperation(id int64) (*model.CleanOperation, error) {
	op, err := scanOperation(s.db.QueryRow(selectOperation, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", sc.ErrOperationNotFound, id)
		}
		return nil, err
	}
	return op, nil
}

// Undo items

func (s *SQLiteDatabase) SaveUndoItem(item *model.UndoItem) (int64, error) {
	now := s.clock.Now()
	res, err := s.db.Exec(insertUndoItem,
		item.OperationID, item.ItemPath, item.BackupPath, item.CanRestore, formatTime(now),
		item.BackupUID, item.BackupGID)
	if err != nil {
		return 0, fmt.Errorf("inserting undo item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading undo item id: %w", err)
	}
	item.ID = id
	item.CreatedAt = now.UTC()
	item.Restored = model.RestorePending
	return id, nil
}

func (s *SQLiteDatabase) GetUndoItems(operationID int64) ([]*model.UndoItem, error) {
	rows, err := s.db.Query(selectUndoItems, operationID)
	if err != nil {
		return nil, fmt.Errorf("querying undo items: %w", err)
	}
	defer rows.Close()

	var items []*model.UndoItem
	for rows.Next() {
		item, err := scanUndoItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating undo items: %w", err)
	}
	return items, nil
}

func (s *SQLiteDatabase) MarkUndoRestored(undoItemID int64, success bool, errorMessage string) error {
	state := model.RestoreFailed
	restoredAt := sql.NullString{}
	if success {
		state = model.RestoreSucceeded
		restoredAt = sql.NullString{String: formatTime(s.clock.Now()), Valid: true}
	}

	res, err := s.db.Exec(updateUndoRestored, int(state), restoredAt, nullString(errorMessage), undoItemID)
	if err != nil {
		return fmt.Errorf("updating undo item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("undo item %d not found", undoItemID)
	}
	return nil
}

// Schema

func (s *SQLiteDatabase) GetSchemaVersion() (int, error) {
	return migrations.CurrentVersion(s.db)
}

func (s *SQLiteDatabase) GetPendingMigrations() ([]int, error) {
	return migrations.Pending(s.db)
}

func (s *SQLiteDatabase) ApplyMigrations() ([]int, error) {
	return migrations.MigrateUp(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOperation(row rowScanner) (*model.CleanOperation, error) {
	var (
		op  model.CleanOperation
		ts  sql.NullString
		ok  sql.NullBool
		cnt sql.NullInt64
		sz  sql.NullInt64
	)
	err := row.Scan(&op.ID, &ts, &op.PluginName, &cnt, &sz, &ok, &op.ErrorMessage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning clean operation: %w", err)
	}
	op.Timestamp = parseTime(ts.String)
	op.ItemsCount = int(cnt.Int64)
	op.SizeFreed = sz.Int64
	op.Success = ok.Bool
	return &op, nil
}

func scanUndoItem(row rowScanner) (*model.UndoItem, error) {
	var (
		item       model.UndoItem
		path       sql.NullString
		canRestore sql.NullBool
		created    sql.NullString
		restored   sql.NullInt64
		restoredAt sql.NullString
	)
	err := row.Scan(&item.ID, &item.OperationID, &path, &item.BackupPath, &canRestore, &created,
		&restored, &restoredAt, &item.RestoreError, &item.BackupUID, &item.BackupGID)
	if err != nil {
		return nil, fmt.Errorf("scanning undo item: %w", err)
	}
	item.ItemPath = path.String
	item.CanRestore = canRestore.Bool
	item.CreatedAt = parseTime(created.String)
	item.Restored = model.RestoreState(restored.Int64)
	if restoredAt.Valid && restoredAt.String != "" {
		item.RestoredAt = sql.NullTime{Time: parseTime(restoredAt.String), Valid: true}
	}
	return &item, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Compile-time check that SQLiteDatabase implements sc.Database interface
var _ sc.Database = (*SQLiteDatabase)(nil)

// timeLayouts are tried in order when reading timestamps. The last one matches
// rows written by older releases.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime returns the zero time for empty or unrecognized values.
func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
