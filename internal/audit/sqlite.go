package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"taskgate/internal/config"

	_ "github.com/mattn/go-sqlite3"
)

// openSQLite opens the sqlite backend, creating the directory for the
// database file when needed.
func openSQLite(cfg *config.AuditConfig) (*sql.DB, error) {
	if err := ensureDBDir(cfg.DSN); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := cfg.DSN
	if !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}

	return sql.Open("sqlite3", dsn)
}

func ensureDBDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0755)
}

func sqliteSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS audit_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TIMESTAMP NOT NULL,
			request_id TEXT NOT NULL,
			task_kind TEXT NOT NULL,
			parameters TEXT,
			outcome TEXT NOT NULL,
			error_kind TEXT,
			message TEXT,
			principal TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_records (timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_task_kind ON audit_records (task_kind)`,
	}
}
