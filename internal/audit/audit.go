package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"taskgate/internal/config"
	"taskgate/internal/types"

	"go.uber.org/zap"
)

// Store persists audit records in append-only order and serves recent
// history. Implementations must be safe for concurrent use.
type Store interface {
	Record(ctx context.Context, rec types.AuditRecord)
	Recent(ctx context.Context, q Query) ([]types.AuditRecord, error)
	Health(ctx context.Context) error
	Close() error
}

// Query filters a Recent lookup. Zero-value fields match everything.
type Query struct {
	Limit   int
	Kind    types.TaskKind
	Outcome types.AuditOutcome
}

// New creates an audit store for the configured driver.
func New(cfg *config.AuditConfig, logger *zap.Logger) (Store, error) {
	var (
		db  *sql.DB
		err error
	)

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "mysql":
		db, err = openMySQL(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidDriver, cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open audit store: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping audit store: %w", err)
	}

	s := &store{
		db:        db,
		cfg:       cfg,
		insertSQL: insertSQL(cfg.Driver),
		logger:    logger,
		stop:      make(chan struct{}),
	}

	if err := s.initSchema(cfg.Driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	if cfg.Stream.Enabled {
		s.stream = newStreamWriter(&cfg.Stream, logger)
	}

	if cfg.Retention > 0 {
		go s.pruneLoop()
	}

	return s, nil
}

type store struct {
	db        *sql.DB
	cfg       *config.AuditConfig
	insertSQL string
	logger    *zap.Logger
	stream    *streamWriter
	stop      chan struct{}
}

// Record appends one audit record. Persistence failures are logged but
// never propagated: auditing must not break a dispatch.
func (s *store) Record(ctx context.Context, rec types.AuditRecord) {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		s.logger.Error("Failed to encode audit parameters", zap.Error(err))
		params = []byte("{}")
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	_, err = s.db.ExecContext(queryCtx, s.insertSQL,
		rec.Timestamp,
		rec.RequestID,
		string(rec.TaskKind),
		string(params),
		string(rec.Outcome),
		string(rec.ErrorKind),
		rec.Message,
		rec.Principal)
	if err != nil {
		s.logger.Error("Failed to persist audit record",
			zap.String("task_kind", string(rec.TaskKind)),
			zap.Error(err))
	}

	if s.stream != nil {
		s.stream.Publish(ctx, rec)
	}
}

// Recent returns matching records, newest first.
func (s *store) Recent(ctx context.Context, q Query) ([]types.AuditRecord, error) {
	if q.Limit <= 0 || q.Limit > 1000 {
		q.Limit = 100
	}

	query, args := buildSelect(s.cfg.Driver, q)

	queryCtx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(queryCtx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []types.AuditRecord
	for rows.Next() {
		var (
			rec    types.AuditRecord
			params string
		)
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.RequestID, &rec.TaskKind,
			&params, &rec.Outcome, &rec.ErrorKind, &rec.Message, &rec.Principal); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		if params != "" && params != "null" {
			if err := json.Unmarshal([]byte(params), &rec.Params); err != nil {
				s.logger.Warn("Malformed audit parameters", zap.Int64("id", rec.ID))
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Health verifies the backing database is reachable.
func (s *store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close stops pruning and closes the database.
func (s *store) Close() error {
	close(s.stop)
	if s.stream != nil {
		_ = s.stream.Close()
	}
	return s.db.Close()
}

// pruneLoop deletes records older than the retention window.
func (s *store) pruneLoop() {
	ticker := time.NewTicker(s.cfg.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.cfg.Retention)
			if err := s.prune(cutoff); err != nil {
				s.logger.Error("Failed to prune audit records", zap.Error(err))
			}
		}
	}
}

func (s *store) prune(cutoff time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.QueryTimeout)
	defer cancel()

	query := "DELETE FROM audit_records WHERE timestamp < ?"
	if s.cfg.Driver == "postgres" {
		query = "DELETE FROM audit_records WHERE timestamp < $1"
	}

	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return err
	}

	if affected, err := result.RowsAffected(); err == nil && affected > 0 {
		s.logger.Info("Pruned audit records", zap.Int64("count", affected))
	}
	return nil
}

func (s *store) initSchema(driver string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, stmt := range schemaFor(driver) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func insertSQL(driver string) string {
	base := `INSERT INTO audit_records
		(timestamp, request_id, task_kind, parameters, outcome, error_kind, message, principal)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if driver == "postgres" {
		return `INSERT INTO audit_records
		(timestamp, request_id, task_kind, parameters, outcome, error_kind, message, principal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	}
	return base
}

// buildSelect assembles the filtered history query for the driver's
// placeholder style.
func buildSelect(driver string, q Query) (string, []any) {
	var (
		b    strings.Builder
		args []any
		n    int
	)

	placeholder := func() string {
		n++
		if driver == "postgres" {
			return fmt.Sprintf("$%d", n)
		}
		return "?"
	}

	b.WriteString(`SELECT id, timestamp, request_id, task_kind, parameters, outcome, error_kind, message, principal
		FROM audit_records`)

	var conds []string
	if q.Kind != "" {
		conds = append(conds, "task_kind = "+placeholder())
		args = append(args, string(q.Kind))
	}
	if q.Outcome != "" {
		conds = append(conds, "outcome = "+placeholder())
		args = append(args, string(q.Outcome))
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	b.WriteString(" ORDER BY id DESC LIMIT " + placeholder())
	args = append(args, q.Limit)

	return b.String(), args
}
