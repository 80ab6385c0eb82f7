package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Swap-nul/statusoverview/docs" // register generated Swagger spec
	"github.com/Swap-nul/statusoverview/internal/auth"
)

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Orchestrator Orchestrator
	Overview     Overview
	Auth         *auth.Authenticator
	DeployRoles  []string
	ServiceName  string
	Logger       *slog.Logger
}

// Router wraps a configured Gin engine and exposes it as an http.Handler.
type Router struct {
	engine *gin.Engine
}

// NewRouter constructs a Router with the full middleware chain and all routes
// registered. Middleware order:
//  1. Recovery: panic → 500
//  2. Tracing: trace context per request
//  3. RequestLogger: structured request logging
//
// Authentication applies to /api/v1 only; health and docs stay open.
func NewRouter(d Deps) *Router {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	serviceName := d.ServiceName
	if serviceName == "" {
		serviceName = "status-overview"
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(Recovery(logger))
	engine.Use(Tracing(serviceName))
	engine.Use(RequestLogger(logger))

	h := &Handler{orchestrator: d.Orchestrator, overview: d.Overview}

	engine.GET("/health", h.Health)
	engine.GET("/health/deep", h.DeepHealth)
	engine.GET("/ready", h.Ready)

	// Bootstrap and bulk deploy change shared state and need a deploy role.
	var guarded []gin.HandlerFunc

	v1 := engine.Group("/api/v1")
	if d.Auth != nil {
		v1.Use(d.Auth.Middleware())
		guarded = append(guarded, d.Auth.RequireRoles(d.DeployRoles...))
	}

	v1.POST("/bootstrap", append(guarded, h.Bootstrap)...)
	v1.GET("/config", h.Settings)
	v1.GET("/me", h.Me)
	v1.GET("/projects", h.Projects)

	projects := v1.Group("/projects/:project")
	projects.GET("/apps", h.ProjectApps)
	projects.GET("/export", h.Export)
	projects.GET("/bulk-deploy/candidates", h.Candidates)
	projects.POST("/bulk-deploy", append(guarded, h.BulkDeploy)...)

	v1.GET("/apps/:app/builds", h.Builds)
	v1.GET("/apps/:app/links", h.Links)
	v1.GET("/jobs/:id", h.JobStatus)
	v1.GET("/jobs/:id/console", h.JobConsole)

	// API docs at /api-docs
	engine.GET("/api-docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/api-docs/index.html")
	})
	engine.GET("/api-docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return &Router{engine: engine}
}

// Handler returns the underlying http.Handler for use with net/http servers.
func (r *Router) Handler() http.Handler {
	return r.engine
}
