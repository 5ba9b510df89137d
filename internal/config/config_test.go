package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":9090"
api:
  auth:
    enabled: true
    token: "test-token"
tasks:
  max_delay_seconds: 600
  allowlist:
    - name: uptime
      path: /usr/bin/uptime
    - name: df
      path: /usr/bin/df
      arg_pattern: "^[a-zA-Z0-9/._-]+$"
      max_args: 2
  logs:
    - name: syslog
      path: /var/log/syslog
audit:
  driver: sqlite
  dsn: /tmp/test-audit.db
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.True(t, cfg.API.Auth.Enabled)
	assert.Equal(t, "test-token", cfg.API.Auth.Token)
	assert.Equal(t, 600, cfg.Tasks.MaxDelaySeconds)
	require.Len(t, cfg.Tasks.Allowlist, 2)
	assert.Equal(t, "uptime", cfg.Tasks.Allowlist[0].Name)
	assert.Equal(t, 2, cfg.Tasks.Allowlist[1].MaxArgs)
	require.Len(t, cfg.Tasks.Logs, 1)
	assert.Equal(t, "/var/log/syslog", cfg.Tasks.Logs[0].Path)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
tasks:
  allowlist:
    - name: uptime
      path: /usr/bin/uptime
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 3600, cfg.Tasks.MaxDelaySeconds)
	assert.Equal(t, 30*time.Second, cfg.Tasks.CommandTimeout)
	assert.Equal(t, "/", cfg.Tasks.DefaultMount)
	assert.Equal(t, "/usr/bin/systemctl", cfg.Tasks.ServiceManager)
	assert.Equal(t, 500, cfg.Tasks.MaxLogLines)
	assert.Equal(t, 100, cfg.Tasks.Allowlist[0].OutputLineLimit)
	assert.Equal(t, "sqlite", cfg.Audit.Driver)
	assert.Equal(t, "data/taskgate.db", cfg.Audit.DSN)
	assert.Equal(t, "taskgate.audit", cfg.Audit.Stream.Topic)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "memory", cfg.API.RateLimit.Store)
	assert.Equal(t, time.Minute, cfg.API.RateLimit.Window)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name: "auth enabled without token",
			content: `
api:
  auth:
    enabled: true
`,
			errMsg: "no token",
		},
		{
			name: "tls enabled without cert",
			content: `
server:
  tls:
    enabled: true
`,
			errMsg: "cert_file",
		},
		{
			name: "redis store without address",
			content: `
api:
  rate_limit:
    store: redis
`,
			errMsg: "redis",
		},
		{
			name: "bad log level",
			content: `
log:
  level: verbose
`,
			errMsg: "invalid log level",
		},
		{
			name: "duplicate allowlist entry",
			content: `
tasks:
  allowlist:
    - name: df
      path: /usr/bin/df
    - name: df
      path: /bin/df
`,
			errMsg: "duplicate allowlist entry",
		},
		{
			name: "allowlist entry without path",
			content: `
tasks:
  allowlist:
    - name: df
`,
			errMsg: "missing a path",
		},
		{
			name: "invalid arg pattern",
			content: `
tasks:
  allowlist:
    - name: df
      path: /usr/bin/df
      arg_pattern: "[unclosed"
`,
			errMsg: "arg_pattern",
		},
		{
			name: "duplicate log source",
			content: `
tasks:
  logs:
    - name: syslog
      path: /var/log/syslog
    - name: syslog
      path: /var/log/messages
`,
			errMsg: "duplicate log source",
		},
		{
			name: "unsupported audit driver",
			content: `
audit:
  driver: oracle
  dsn: x
`,
			errMsg: "unsupported audit driver",
		},
		{
			name: "audit stream without brokers",
			content: `
audit:
  stream:
    enabled: true
`,
			errMsg: "brokers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
