package audit

import (
	"database/sql"

	"taskgate/internal/config"

	_ "github.com/lib/pq"
)

// openPostgres opens the postgres backend.
func openPostgres(cfg *config.AuditConfig) (*sql.DB, error) {
	return sql.Open("postgres", cfg.DSN)
}

func postgresSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS audit_records (
			id BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
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

// schemaFor returns the bootstrap statements for the driver.
func schemaFor(driver string) []string {
	switch driver {
	case "mysql":
		return mysqlSchema()
	case "postgres":
		return postgresSchema()
	default:
		return sqliteSchema()
	}
}
