package sqliteutil

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// OpenDB opens a SQLite database with recommended pragmas for concurrency and
// foreign key support. It configures the connection pool for serialized
// writes (MaxOpenConns=1).
func OpenDB(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("cannot create database directory %q: %w", dir, err)
	}

	// _pragma=busy_timeout(5000): wait up to 5 seconds if the database is locked.
	// relay only reads transcripts, but the writing agent process may hold the
	// lock briefly.
	// _pragma=journal_mode(WAL): lets relay read while the writer appends.
	// _pragma=foreign_keys(1): turns cascade to their session on delete.
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		if isCantOpenError(err) {
			return nil, diagnoseOpenError(path, err)
		}
		return nil, err
	}

	// Serialize writes through a single connection (SQLite limitation).
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		if isCantOpenError(err) {
			return nil, diagnoseOpenError(path, err)
		}
		return nil, err
	}

	return db, nil
}

// isCantOpenError checks if the error is a SQLite CANTOPEN error (code 14).
func isCantOpenError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CANTOPEN
	}
	return false
}

// diagnoseOpenError provides a more helpful error message when SQLite fails
// to open or create a database file.
func diagnoseOpenError(path string, originalErr error) error {
	dir := filepath.Dir(path)

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("cannot open database at %q: directory %q does not exist", path, dir)
		}
		return fmt.Errorf("cannot open database at %q: %w", path, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("cannot open database at %q: %q is not a directory", path, dir)
	}

	return fmt.Errorf("cannot open database at %q: permission denied or file cannot be created in %q (original error: %v)", path, dir, originalErr)
}
