package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Swap-nul/statusoverview/internal/auth"
	"github.com/Swap-nul/statusoverview/internal/catalog"
	"github.com/Swap-nul/statusoverview/internal/overview"
)

// Settings handles GET /api/v1/config.
//
//	@Summary	Public dashboard configuration
//	@Tags		dashboard
//	@Produce	json
//	@Success	200	{object}	overview.Settings
//	@Router		/api/v1/config [get]
func (h *Handler) Settings(c *gin.Context) {
	c.JSON(http.StatusOK, h.overview.Settings())
}

// Me handles GET /api/v1/me.
//
//	@Summary	Authenticated user
//	@Tags		dashboard
//	@Produce	json
//	@Success	200	{object}	auth.User
//	@Failure	401	{object}	map[string]string
//	@Router		/api/v1/me [get]
func (h *Handler) Me(c *gin.Context) {
	u, ok := auth.UserFrom(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, u)
}

// Projects handles GET /api/v1/projects.
//
//	@Summary	List projects
//	@Tags		dashboard
//	@Produce	json
//	@Success	200	{array}	string
//	@Router		/api/v1/projects [get]
func (h *Handler) Projects(c *gin.Context) {
	projects, err := h.overview.Projects(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// ProjectApps handles GET /api/v1/projects/:project/apps.
//
//	@Summary	Apps of a project with their deployments per environment
//	@Tags		dashboard
//	@Produce	json
//	@Param		project		path	string	true	"project (parent) name"
//	@Param		sort		query	string	false	"name or a deployment field"
//	@Param		env			query	string	false	"environment the sort field is read from"
//	@Param		direction	query	string	false	"asc or desc"
//	@Success	200	{array}	map[string]any
//	@Failure	400	{object}	map[string]string
//	@Router		/api/v1/projects/{project}/apps [get]
func (h *Handler) ProjectApps(c *gin.Context) {
	apps, err := h.overview.ProjectApps(c.Request.Context(), c.Param("project"), appQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

// Export handles GET /api/v1/projects/:project/export.
//
//	@Summary	CSV of a project's deployments in one environment
//	@Tags		dashboard
//	@Produce	text/csv
//	@Param		project	path	string	true	"project name"
//	@Param		env		query	string	true	"environment"
//	@Success	200	{string}	string
//	@Failure	400	{object}	map[string]string
//	@Router		/api/v1/projects/{project}/export [get]
func (h *Handler) Export(c *gin.Context) {
	env := c.Query("env")

	var buf bytes.Buffer
	if err := h.overview.Export(c.Request.Context(), c.Param("project"), env, appQuery(c), &buf); err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", env+".csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Candidates handles GET /api/v1/projects/:project/bulk-deploy/candidates.
//
//	@Summary	Apps that can be promoted between environments
//	@Tags		deploy
//	@Produce	json
//	@Param		project	path	string	true	"project name"
//	@Param		from	query	string	true	"source environment"
//	@Param		to		query	string	false	"target environment"
//	@Param		filter	query	string	false	"app name substring"
//	@Success	200	{array}	catalog.Candidate
//	@Router		/api/v1/projects/{project}/bulk-deploy/candidates [get]
func (h *Handler) Candidates(c *gin.Context) {
	rows, err := h.overview.Candidates(c.Request.Context(),
		c.Param("project"), c.Query("from"), c.Query("to"), c.Query("filter"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// BulkDeploy handles POST /api/v1/projects/:project/bulk-deploy.
//
//	@Summary	Trigger the Jenkins bulk deployment job
//	@Tags		deploy
//	@Accept		json
//	@Produce	json
//	@Param		project	path	string					true	"project name"
//	@Param		body	body	overview.BulkDeployment	true	"apps to promote"
//	@Success	202	{object}	overview.JobResponse
//	@Failure	400	{object}	map[string]string
//	@Failure	403	{object}	map[string]string
//	@Failure	502	{object}	map[string]string
//	@Router		/api/v1/projects/{project}/bulk-deploy [post]
func (h *Handler) BulkDeploy(c *gin.Context) {
	var req overview.BulkDeployment
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "invalid body: " + err.Error()})
		return
	}
	req.ProjectName = c.Param("project")

	resp, err := h.overview.TriggerBulkDeploy(c.Request.Context(), req, triggerUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

// Builds handles GET /api/v1/apps/:app/builds.
//
//	@Summary	Builds of an app on a branch, newest first
//	@Tags		dashboard
//	@Produce	json
//	@Param		app		path	string	true	"app name"
//	@Param		branch	query	string	true	"exact branch name"
//	@Success	200	{array}	catalog.Build
//	@Failure	404	{object}	map[string]string
//	@Router		/api/v1/apps/{app}/builds [get]
func (h *Handler) Builds(c *gin.Context) {
	builds, err := h.overview.Builds(c.Request.Context(), c.Param("app"), c.Query("branch"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, builds)
}

// Links handles GET /api/v1/apps/:app/links.
//
//	@Summary	ArgoCD and Kibana links of an app
//	@Tags		dashboard
//	@Produce	json
//	@Param		app			path	string	true	"app name"
//	@Param		env			query	string	true	"environment"
//	@Param		portfolio	query	string	false	"project name"
//	@Success	200	{object}	catalog.Links
//	@Router		/api/v1/apps/{app}/links [get]
func (h *Handler) Links(c *gin.Context) {
	links, err := h.overview.Links(c.Param("app"), c.Query("env"), c.Query("portfolio"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, links)
}

// JobStatus handles GET /api/v1/jobs/:id.
//
//	@Summary	Jenkins status of a bulk deployment build
//	@Tags		deploy
//	@Produce	json
//	@Param		id	path	string	true	"build number or permalink such as lastBuild"
//	@Success	200	{object}	clients.JobStatus
//	@Failure	404	{object}	map[string]string
//	@Router		/api/v1/jobs/{id} [get]
func (h *Handler) JobStatus(c *gin.Context) {
	st, err := h.overview.JobStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// JobConsole handles GET /api/v1/jobs/:id/console.
//
//	@Summary	Console log of a bulk deployment build
//	@Tags		deploy
//	@Produce	plain
//	@Param		id	path	string	true	"build number or permalink"
//	@Success	200	{string}	string
//	@Router		/api/v1/jobs/{id}/console [get]
func (h *Handler) JobConsole(c *gin.Context) {
	out, err := h.overview.JobConsole(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.String(http.StatusOK, out)
}

func appQuery(c *gin.Context) overview.AppQuery {
	return overview.AppQuery{
		SortBy:    c.Query("sort"),
		Env:       c.Query("env"),
		Direction: catalog.Direction(strings.ToLower(c.DefaultQuery("direction", string(catalog.Asc)))),
	}
}

// triggerUser names the caller in the Jenkins TRIGGER_USER parameter.
func triggerUser(c *gin.Context) string {
	u, ok := auth.UserFrom(c)
	if !ok {
		return ""
	}
	if u.Email != "" {
		return u.Email
	}
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}
