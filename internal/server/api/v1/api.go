package v1

import (
	"net/http"
	"time"

	"taskgate/internal/audit"
	"taskgate/internal/server/api/response"
	"taskgate/internal/task"
	"taskgate/internal/types"
	"taskgate/internal/version"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// API represents the API
type API struct {
	dispatcher *task.Dispatcher
	scheduler  *task.Scheduler
	store      audit.Store
	logger     *zap.Logger
	startTime  time.Time
}

// NewAPI creates new API
func NewAPI(d *task.Dispatcher, s *task.Scheduler, store audit.Store, logger *zap.Logger) *API {
	return &API{
		dispatcher: d,
		scheduler:  s,
		store:      store,
		logger:     logger,
		startTime:  time.Now(),
	}
}

// RegisterRoutes registers API routes
func (api *API) RegisterRoutes(r *gin.RouterGroup) {
	// Task endpoints
	tasks := r.Group("/tasks")
	{
		tasks.POST("", api.dispatchTask)
		tasks.GET("/kinds", api.getTaskKinds)
	}

	// Scheduled action endpoints
	scheduled := r.Group("/scheduled")
	{
		scheduled.GET("", api.getScheduledActions)
		scheduled.DELETE("/:id", api.cancelScheduledAction)
	}

	// Audit history
	r.GET("/audit", api.getAuditRecords)

	// Health check
	r.GET("/health", api.healthCheck)
}

// healthCheck reports gateway and audit store health
func (api *API) healthCheck(c *gin.Context) {
	resp := response.New(c, api.logger)

	health := struct {
		Status    string    `json:"status"`
		Version   string    `json:"version"`
		Uptime    string    `json:"uptime"`
		Pending   int       `json:"pending_actions"`
		Timestamp time.Time `json:"timestamp"`
		Audit     string    `json:"audit"`
	}{
		Status:    "healthy",
		Version:   version.GetInfo().Version,
		Uptime:    time.Since(api.startTime).String(),
		Pending:   api.scheduler.PendingCount(),
		Timestamp: time.Now(),
		Audit:     "healthy",
	}

	if err := api.store.Health(c.Request.Context()); err != nil {
		health.Status = "degraded"
		health.Audit = err.Error()
		resp.Custom(http.StatusServiceUnavailable, health)
		return
	}

	resp.Success(health)
}

// statusFor maps a task failure kind to an HTTP status.
func statusFor(kind types.ErrorKind) int {
	switch kind {
	case types.ErrKindUnknownTask,
		types.ErrKindServiceNotFound,
		types.ErrKindPathNotFound,
		types.ErrKindLogNotFound:
		return http.StatusNotFound
	case types.ErrKindInvalidParameters,
		types.ErrKindConfirmationRequired,
		types.ErrKindDelayOutOfBounds,
		types.ErrKindLineCountOutOfBounds:
		return http.StatusBadRequest
	case types.ErrKindCommandNotAllowed,
		types.ErrKindArgumentRejected:
		return http.StatusForbidden
	case types.ErrKindExecutionTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
