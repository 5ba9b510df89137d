package config

import (
	"fmt"
	"regexp"
	"time"
)

// TasksConfig represents the task execution core configuration
type TasksConfig struct {
	// MaxDelaySeconds bounds delay_seconds on destructive tasks
	MaxDelaySeconds int `mapstructure:"max_delay_seconds"`

	// CommandTimeout bounds a single allowlisted command execution
	CommandTimeout time.Duration `mapstructure:"command_timeout"`

	// DefaultMount is the mount point check_disk_space falls back to
	DefaultMount string `mapstructure:"default_mount"`

	// ServiceManager is the binary used to restart services
	ServiceManager string `mapstructure:"service_manager"`

	// HostRestartCommand is the command the host-restart action runs
	HostRestartCommand []string `mapstructure:"host_restart_command"`

	// Allowlist is the closed set of commands run_command may execute
	Allowlist []AllowlistEntry `mapstructure:"allowlist"`

	// Logs is the closed set of log sources check_logs may read
	Logs []LogSource `mapstructure:"logs"`

	// MaxLogLines bounds the line count accepted by check_logs
	MaxLogLines int `mapstructure:"max_log_lines"`
}

// AllowlistEntry represents one permitted command
type AllowlistEntry struct {
	Name            string `mapstructure:"name"`
	Path            string `mapstructure:"path"`
	ArgPattern      string `mapstructure:"arg_pattern"`
	MaxArgs         int    `mapstructure:"max_args"`
	OutputLineLimit int    `mapstructure:"output_line_limit"`
}

// LogSource represents one readable log file
type LogSource struct {
	Name string `mapstructure:"name"`
	Path string `mapstructure:"path"`
}

// setTasksDefaults sets default values for task configuration
func setTasksDefaults(cfg *TasksConfig) {
	if cfg.MaxDelaySeconds == 0 {
		cfg.MaxDelaySeconds = 3600
	}

	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 30 * time.Second
	}

	if cfg.DefaultMount == "" {
		cfg.DefaultMount = "/"
	}

	if cfg.ServiceManager == "" {
		cfg.ServiceManager = "/usr/bin/systemctl"
	}

	if len(cfg.HostRestartCommand) == 0 {
		cfg.HostRestartCommand = []string{"/usr/bin/systemctl", "reboot"}
	}

	if cfg.MaxLogLines == 0 {
		cfg.MaxLogLines = 500
	}

	for i := range cfg.Allowlist {
		if cfg.Allowlist[i].OutputLineLimit == 0 {
			cfg.Allowlist[i].OutputLineLimit = 100
		}
	}
}

// validateTasksConfig validates the task configuration
func validateTasksConfig(cfg *TasksConfig) error {
	if cfg.MaxDelaySeconds < 0 {
		return fmt.Errorf("max_delay_seconds cannot be negative")
	}

	if cfg.CommandTimeout <= 0 {
		return fmt.Errorf("command_timeout must be positive")
	}

	seen := make(map[string]bool)
	for _, entry := range cfg.Allowlist {
		if entry.Name == "" {
			return fmt.Errorf("allowlist entry is missing a name")
		}
		if seen[entry.Name] {
			return fmt.Errorf("duplicate allowlist entry: %s", entry.Name)
		}
		seen[entry.Name] = true

		if entry.Path == "" {
			return fmt.Errorf("allowlist entry %s is missing a path", entry.Name)
		}
		if entry.ArgPattern != "" {
			if _, err := regexp.Compile(entry.ArgPattern); err != nil {
				return fmt.Errorf("allowlist entry %s has invalid arg_pattern: %w", entry.Name, err)
			}
		}
	}

	names := make(map[string]bool)
	for _, src := range cfg.Logs {
		if src.Name == "" || src.Path == "" {
			return fmt.Errorf("log source requires both name and path")
		}
		if names[src.Name] {
			return fmt.Errorf("duplicate log source: %s", src.Name)
		}
		names[src.Name] = true
	}

	return nil
}
