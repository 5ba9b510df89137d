package audit

import (
	"database/sql"

	"taskgate/internal/config"

	_ "github.com/go-sql-driver/mysql"
)

// openMySQL opens the mysql backend. The DSN must include parseTime.
func openMySQL(cfg *config.AuditConfig) (*sql.DB, error) {
	dsn := cfg.DSN
	return sql.Open("mysql", dsn)
}

func mysqlSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS audit_records (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			timestamp DATETIME(6) NOT NULL,
			request_id VARCHAR(64) NOT NULL,
			task_kind VARCHAR(64) NOT NULL,
			parameters TEXT,
			outcome VARCHAR(16) NOT NULL,
			error_kind VARCHAR(64),
			message TEXT,
			principal VARCHAR(255),
			INDEX idx_audit_timestamp (timestamp),
			INDEX idx_audit_task_kind (task_kind)
		)`,
	}
}
