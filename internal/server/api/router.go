package api

import (
	"net/http"

	"taskgate/internal/audit"
	"taskgate/internal/config"
	"taskgate/internal/server/api/middleware"
	av1 "taskgate/internal/server/api/v1"
	"taskgate/internal/task"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Router handles all routing logic
type Router struct {
	engine *gin.Engine
	config *config.Config
	logger *zap.Logger
}

// NewRouter creates and configures a new router
func NewRouter(cfg *config.Config, d *task.Dispatcher, s *task.Scheduler, store audit.Store, logger *zap.Logger) *Router {
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine: gin.New(),
		config: cfg,
		logger: logger,
	}

	r.setupMiddleware()
	r.setupAPIV1(d, s, store)

	return r
}

// Handler returns the HTTP handler
func (r *Router) Handler() http.Handler {
	return r.engine
}

// setupMiddleware configures all middleware
func (r *Router) setupMiddleware() {
	m := middleware.New(r.config, r.logger)

	r.engine.Use(m.RequestID())
	r.engine.Use(m.Logger())
	r.engine.Use(m.Recovery())
	r.engine.Use(m.Secure())

	if r.config.API.CORS.Enabled {
		r.engine.Use(m.Cors())
	}

	if r.config.API.RateLimit.Enabled {
		r.engine.Use(m.RateLimit())
	}
}

// setupAPIV1 configures v1 API routes
func (r *Router) setupAPIV1(d *task.Dispatcher, s *task.Scheduler, store audit.Store) {
	api := av1.NewAPI(d, s, store, r.logger)

	v1Router := r.engine.Group("/api/v1")

	// Every task route sits behind the shared-secret gate.
	if r.config.API.Auth.Enabled {
		m := middleware.New(r.config, r.logger)
		v1Router.Use(m.Auth())
	}

	api.RegisterRoutes(v1Router)
}
