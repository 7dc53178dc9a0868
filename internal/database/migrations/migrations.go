package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// Migration is one embedded schema step.
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

// The version is tracked in a single-row schema_version table rather than
// golang-migrate's schema_migrations so databases written by earlier releases
// keep working.
const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER,
	updated TEXT
)`

// Load reads the embedded migrations in version order.
func Load() ([]Migration, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration files: %w", err)
	}
	defer src.Close()

	var migrations []Migration
	version, err := src.First()
	if err != nil {
		return nil, fmt.Errorf("reading first migration: %w", err)
	}
	for {
		m, err := readMigration(src, version)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, m)

		next, err := src.Next(version)
		if err != nil {
			// Any error from Next() means we've reached the end
			break
		}
		version = next
	}
	return migrations, nil
}

func readMigration(src source.Driver, version uint) (Migration, error) {
	r, identifier, err := src.ReadUp(version)
	if err != nil {
		return Migration{}, fmt.Errorf("reading migration %d: %w", version, err)
	}
	defer r.Close()

	body, err := io.ReadAll(r)
	if err != nil {
		return Migration{}, fmt.Errorf("reading migration %d: %w", version, err)
	}
	return Migration{
		Version:    int(version),
		Name:       identifier,
		Statements: splitStatements(string(body)),
	}, nil
}

// splitStatements drops "--" comment lines and splits on ';'.
func splitStatements(body string) []string {
	var b strings.Builder
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	var stmts []string
	for _, s := range strings.Split(b.String(), ";") {
		if s = strings.TrimSpace(s); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

// LatestVersion returns the highest embedded version.
func LatestVersion() (int, error) {
	migrations, err := Load()
	if err != nil {
		return 0, err
	}
	if len(migrations) == 0 {
		return 0, nil
	}
	return migrations[len(migrations)-1].Version, nil
}

// EnsureVersionTable creates schema_version and seeds it with version 0 when
// it has no row.
func EnsureVersionTable(db *sql.DB) error {
	if _, err := db.Exec(createVersionTable); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return fmt.Errorf("counting schema_version rows: %w", err)
	}
	if count == 0 {
		if _, err := db.Exec("INSERT INTO schema_version (version, updated) VALUES (0, ?)", now()); err != nil {
			return fmt.Errorf("seeding schema_version: %w", err)
		}
	}
	return nil
}

// CurrentVersion returns the stored schema version, 0 when none is recorded.
func CurrentVersion(db *sql.DB) (int, error) {
	var version sql.NullInt64
	err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return int(version.Int64), nil
}

// Pending returns the versions above the stored one, in order.
func Pending(db *sql.DB) ([]int, error) {
	current, err := CurrentVersion(db)
	if err != nil {
		return nil, err
	}
	migrations, err := Load()
	if err != nil {
		return nil, err
	}
	var pending []int
	for _, m := range migrations {
		if m.Version > current {
			pending = append(pending, m.Version)
		}
	}
	return pending, nil
}

// MigrateUp applies every pending migration in order and returns the applied
// versions. Each step commits together with its version bump, so an
// interrupted run resumes from the last completed step.
func MigrateUp(db *sql.DB) ([]int, error) {
	if err := EnsureVersionTable(db); err != nil {
		return nil, err
	}
	current, err := CurrentVersion(db)
	if err != nil {
		return nil, err
	}
	migrations, err := Load()
	if err != nil {
		return nil, err
	}

	var applied []int
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := apply(db, m); err != nil {
			return applied, fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
		}
		applied = append(applied, m.Version)
	}
	return applied, nil
}

func apply(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range m.Statements {
		if _, err := tx.Exec(stmt); err != nil {
			if isDuplicateColumn(err) {
				continue
			}
			return fmt.Errorf("executing %q: %w", firstLine(stmt), err)
		}
	}
	if _, err := tx.Exec("UPDATE schema_version SET version = ?, updated = ?", m.Version, now()); err != nil {
		return fmt.Errorf("updating schema version: %w", err)
	}
	return tx.Commit()
}

// isDuplicateColumn matches the error sqlite returns when ADD COLUMN names an
// existing column.
func isDuplicateColumn(err error) bool {
	return strings.Contains(err.Error(), "duplicate column name")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// CheckDBMigrationStatus verifies that the database schema is up-to-date.
// Returns nil if the database is at the latest version.
func CheckDBMigrationStatus(db *sql.DB) error {
	version, err := CurrentVersion(db)
	if err != nil {
		return err
	}
	latest, err := LatestVersion()
	if err != nil {
		return fmt.Errorf("failed to determine latest version: %w", err)
	}

	if version < latest {
		return fmt.Errorf("database is at version %d but latest is %d (%d migrations behind)",
			version, latest, latest-version)
	}
	if version > latest {
		return fmt.Errorf("database version %d is ahead of binary version %d (binary needs update)",
			version, latest)
	}
	return nil
}
