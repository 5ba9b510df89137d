package config

import (
	"fmt"
	"time"
)

// AuditConfig represents the audit store configuration
type AuditConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, mysql, postgres
	DSN             string        `mapstructure:"dsn"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`

	// Retention controls pruning of old records; zero disables pruning
	Retention     time.Duration `mapstructure:"retention"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`

	// Stream mirrors every record onto a kafka topic when enabled
	Stream StreamConfig `mapstructure:"stream"`
}

// StreamConfig represents the kafka audit stream configuration
type StreamConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// setAuditDefaults sets default values for audit configuration
func setAuditDefaults(cfg *AuditConfig) {
	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}

	if cfg.DSN == "" && cfg.Driver == "sqlite" {
		cfg.DSN = "data/taskgate.db"
	}

	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 10
	}

	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}

	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = time.Hour
	}

	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 10 * time.Second
	}

	if cfg.PruneInterval == 0 {
		cfg.PruneInterval = time.Hour
	}

	if cfg.Stream.Topic == "" {
		cfg.Stream.Topic = "taskgate.audit"
	}
}

// validateAuditConfig validates the audit configuration
func validateAuditConfig(cfg *AuditConfig) error {
	switch cfg.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported audit driver: %s", cfg.Driver)
	}

	if cfg.DSN == "" {
		return fmt.Errorf("audit dsn cannot be empty")
	}

	if cfg.Stream.Enabled && len(cfg.Stream.Brokers) == 0 {
		return fmt.Errorf("audit stream is enabled but no brokers are configured")
	}

	return nil
}
