package api

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Swap-nul/statusoverview/internal/catalog"
	"github.com/Swap-nul/statusoverview/internal/clients"
	"github.com/Swap-nul/statusoverview/internal/orchestrator"
	"github.com/Swap-nul/statusoverview/internal/overview"
)

// Orchestrator is the subset of *orchestrator.Orchestrator used by the HTTP
// handlers.
type Orchestrator interface {
	RunBootstrap(ctx context.Context) (*orchestrator.BootstrapResult, error)
	RunDeepHealth(ctx context.Context) map[string]orchestrator.ProbeResult
	IsReady() bool
	IsBootstrapInProgress() bool
}

// Overview is the subset of *overview.Service used by the HTTP handlers.
type Overview interface {
	Settings() overview.Settings
	Projects(ctx context.Context) ([]string, error)
	ProjectApps(ctx context.Context, project string, q overview.AppQuery) ([]catalog.App, error)
	Export(ctx context.Context, project, env string, q overview.AppQuery, w io.Writer) error
	Candidates(ctx context.Context, project, from, to, filter string) ([]catalog.Candidate, error)
	TriggerBulkDeploy(ctx context.Context, req overview.BulkDeployment, user string) (*overview.JobResponse, error)
	Builds(ctx context.Context, app, branch string) ([]catalog.Build, error)
	Links(app, env, portfolio string) (catalog.Links, error)
	JobStatus(ctx context.Context, id string) (*clients.JobStatus, error)
	JobConsole(ctx context.Context, id string) (string, error)
}

// Handler holds the dependencies shared across all HTTP handlers.
type Handler struct {
	orchestrator Orchestrator
	overview     Overview
}

// Bootstrap handles POST /api/v1/bootstrap.
//
//	@Summary	Run bootstrap in the background
//	@Tags		ops
//	@Produce	json
//	@Success	202	{object}	map[string]string
//	@Failure	403	{object}	map[string]string
//	@Failure	409	{object}	map[string]string
//	@Router		/api/v1/bootstrap [post]
func (h *Handler) Bootstrap(c *gin.Context) {
	if h.orchestrator.IsBootstrapInProgress() {
		c.JSON(http.StatusConflict, gin.H{"status": "in-progress"})
		return
	}
	go func() {
		// The request context ends with the response; bootstrap must outlive it.
		_, _ = h.orchestrator.RunBootstrap(context.WithoutCancel(c.Request.Context()))
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// Health handles GET /health. It always returns 200.
//
//	@Summary	Liveness probe
//	@Tags		ops
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Router		/health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"mode":   "shallow",
	})
}

// DeepHealth handles GET /health/deep. It returns 200 only when every
// dependency probe is OK.
//
//	@Summary	Dependency health
//	@Tags		ops
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Failure	503	{object}	map[string]any
//	@Router		/health/deep [get]
func (h *Handler) DeepHealth(c *gin.Context) {
	probes := h.orchestrator.RunDeepHealth(c.Request.Context())

	status, code := "healthy", http.StatusOK
	for _, p := range probes {
		if !p.OK {
			status, code = "unhealthy", http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(code, gin.H{
		"status":       status,
		"dependencies": probes,
	})
}

// Ready handles GET /ready. It returns 200 only after a successful
// bootstrap; 503 otherwise.
//
//	@Summary	Readiness probe
//	@Tags		ops
//	@Produce	json
//	@Success	200	{object}	map[string]bool
//	@Failure	503	{object}	map[string]bool
//	@Router		/ready [get]
func (h *Handler) Ready(c *gin.Context) {
	if h.orchestrator.IsReady() {
		c.JSON(http.StatusOK, gin.H{"ready": true})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
}
