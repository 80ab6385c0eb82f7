package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"

	"github.com/Swap-nul/statusoverview/internal/clients"
	"github.com/Swap-nul/statusoverview/internal/overview"
)

// statusFor maps a service error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, overview.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, overview.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, clients.ErrJenkinsUnauthorized),
		errors.Is(err, clients.ErrJenkinsForbidden),
		errors.Is(err, clients.ErrJenkinsNotFound):
		return http.StatusBadGateway
	case errors.Is(err, gobreaker.ErrOpenState):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"status":"error","error":msg}. Server-side
// failures are logged.
func writeError(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", code,
			"error", err,
		)
	}
	c.JSON(code, gin.H{"status": "error", "error": err.Error()})
}
