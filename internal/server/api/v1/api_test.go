package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"taskgate/internal/audit"
	"taskgate/internal/config"
	"taskgate/internal/task"
	"taskgate/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStore stands in for the audit store.
type fakeStore struct {
	records   []types.AuditRecord
	healthErr error
}

func (f *fakeStore) Record(_ context.Context, rec types.AuditRecord) {
	f.records = append(f.records, rec)
}

func (f *fakeStore) Recent(_ context.Context, q audit.Query) ([]types.AuditRecord, error) {
	var out []types.AuditRecord
	for _, rec := range f.records {
		if q.Kind != "" && rec.TaskKind != q.Kind {
			continue
		}
		if q.Outcome != "" && rec.Outcome != q.Outcome {
			continue
		}
		out = append(out, rec)
		if len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) Health(_ context.Context) error { return f.healthErr }

func (f *fakeStore) Close() error { return nil }

type apiFixture struct {
	router    *gin.Engine
	scheduler *task.Scheduler
	store     *fakeStore
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	logPath := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(logPath, []byte("alpha\nbeta\ngamma\n"), 0o644))

	cfg := &config.TasksConfig{
		MaxDelaySeconds:    3600,
		CommandTimeout:     5 * time.Second,
		DefaultMount:       "/",
		ServiceManager:     "/usr/bin/systemctl",
		HostRestartCommand: []string{"/usr/bin/systemctl", "reboot"},
		Logs:               []config.LogSource{{Name: "app", Path: logPath}},
		MaxLogLines:        500,
	}

	logger := zaptest.NewLogger(t)
	scheduler := task.NewScheduler(logger)
	t.Cleanup(scheduler.Stop)

	store := &fakeStore{}
	dispatcher, err := task.NewDispatcher(cfg, scheduler, store, nil, logger)
	require.NoError(t, err)

	r := gin.New()
	api := NewAPI(dispatcher, scheduler, store, logger)
	api.RegisterRoutes(r.Group("/api/v1"))

	return &apiFixture{router: r, scheduler: scheduler, store: store}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestDispatchTaskEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("check_logs success", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/tasks", gin.H{
			"task_kind":  "check_logs",
			"parameters": gin.H{"log": "app", "lines": 2},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Data types.TaskResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Data.Success)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader([]byte("{not json")))
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing task_kind", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/tasks", gin.H{"parameters": gin.H{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown kind", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/tasks", gin.H{"task_kind": "format_disk"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unconfirmed destructive task", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/tasks", gin.H{
			"task_kind":  "restart_service",
			"parameters": gin.H{"service_name": "nginx"},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), string(types.ErrKindConfirmationRequired))
	})

	t.Run("command not allowed", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/tasks", gin.H{
			"task_kind":  "run_command",
			"parameters": gin.H{"command": "rm"},
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestGetTaskKinds(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/tasks/kinds", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []struct {
			Kind        string `json:"kind"`
			Destructive bool   `json:"destructive"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 7)

	destructive := 0
	for _, k := range resp.Data {
		if k.Destructive {
			destructive++
		}
	}
	assert.Equal(t, 2, destructive)
}

func TestScheduledEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("empty list", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/v1/scheduled", nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("list and cancel", func(t *testing.T) {
		info, err := f.scheduler.Schedule("restart service nginx", time.Hour, func() {})
		require.NoError(t, err)

		w := f.do(t, http.MethodGet, "/api/v1/scheduled", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), info.ID)

		w = f.do(t, http.MethodDelete, "/api/v1/scheduled/"+info.ID, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, 0, f.scheduler.PendingCount())
	})

	t.Run("cancel unknown action", func(t *testing.T) {
		w := f.do(t, http.MethodDelete, "/api/v1/scheduled/no-such-id", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestGetAuditRecords(t *testing.T) {
	f := newAPIFixture(t)
	for i := 0; i < 3; i++ {
		f.store.records = append(f.store.records, types.AuditRecord{
			RequestID: fmt.Sprintf("req-%d", i),
			TaskKind:  types.TaskCheckStatus,
			Outcome:   types.AuditSuccess,
		})
	}

	t.Run("default limit", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/v1/audit", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []types.AuditRecord `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Data, 3)
	})

	t.Run("explicit limit", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/v1/audit?limit=2", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []types.AuditRecord `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Data, 2)
	})

	t.Run("invalid limit", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/v1/audit?limit=zero", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("filter by kind", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/v1/audit?kind=restart_service", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []types.AuditRecord `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Data)
	})

	t.Run("invalid outcome", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/v1/audit?outcome=maybe", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		f := newAPIFixture(t)
		w := f.do(t, http.MethodGet, "/api/v1/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"healthy"`)
	})

	t.Run("degraded on audit failure", func(t *testing.T) {
		f := newAPIFixture(t)
		f.store.healthErr = fmt.Errorf("database is locked")
		w := f.do(t, http.MethodGet, "/api/v1/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "degraded")
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind types.ErrorKind
		want int
	}{
		{types.ErrKindUnknownTask, http.StatusNotFound},
		{types.ErrKindServiceNotFound, http.StatusNotFound},
		{types.ErrKindPathNotFound, http.StatusNotFound},
		{types.ErrKindLogNotFound, http.StatusNotFound},
		{types.ErrKindInvalidParameters, http.StatusBadRequest},
		{types.ErrKindConfirmationRequired, http.StatusBadRequest},
		{types.ErrKindDelayOutOfBounds, http.StatusBadRequest},
		{types.ErrKindLineCountOutOfBounds, http.StatusBadRequest},
		{types.ErrKindCommandNotAllowed, http.StatusForbidden},
		{types.ErrKindArgumentRejected, http.StatusForbidden},
		{types.ErrKindExecutionTimeout, http.StatusGatewayTimeout},
		{types.ErrKindExecutionFailed, http.StatusInternalServerError},
		{types.ErrKindMetricsUnavailable, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.kind))
		})
	}
}
