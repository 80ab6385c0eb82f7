package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: t.Parallel() is intentionally omitted in this package.
// These tests share process-global environment variables; t.Setenv in
// TestLoad_EnvOverride would race with any concurrent reader.

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint, "telemetry must be off without configuration")
	assert.Equal(t, "status-overview", cfg.Telemetry.ServiceName)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, "bulk-deployment-job", cfg.Jenkins.BulkDeployJob)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, "keycloak", cfg.Auth.Provider)
	assert.Equal(t, []string{"deployer"}, cfg.Auth.DeployRoles)
	assert.Contains(t, cfg.Dashboard.Environments, "prod")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("STATUSOVERVIEW_SERVER_PORT", "9090")
	t.Setenv("STATUSOVERVIEW_DATABASE_HOST", "my-db")
	t.Setenv("STATUSOVERVIEW_JENKINS_BASE_URL", "https://ci.example.com")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "my-db", cfg.Database.Host)
	assert.Equal(t, "https://ci.example.com", cfg.Jenkins.BaseURL)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 8181
dashboard:
  environments: [dev, prod]
  repositories:
    loan-api: https://github.com/org-name/loan-api
  links:
    argocd_prod_url: https://argo.prod/applications/
auth:
  provider: both
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, []string{"dev", "prod"}, cfg.Dashboard.Environments)
	assert.Equal(t, "https://github.com/org-name/loan-api", cfg.Dashboard.Repositories["loan-api"])
	assert.Equal(t, "https://argo.prod/applications/", cfg.Dashboard.Links.ArgoCDProdURL)
	assert.Equal(t, "both", cfg.Auth.Provider)
}

func TestLoad_InvalidFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidProvider(t *testing.T) {
	t.Setenv("STATUSOVERVIEW_AUTH_PROVIDER", "ldap")

	_, err := Load("")
	assert.ErrorContains(t, err, "auth.provider")
}

func TestLoad_AuthWithoutKey(t *testing.T) {
	t.Setenv("STATUSOVERVIEW_AUTH_ENABLED", "true")

	_, err := Load("")
	assert.ErrorContains(t, err, "hmac_secret")
}

func TestLoad_EnvIsolation(t *testing.T) {
	// t.Setenv restores variables via t.Cleanup, so nothing leaks between tests.
	require.Empty(t, os.Getenv("STATUSOVERVIEW_SERVER_PORT"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}
