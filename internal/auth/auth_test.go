package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swap-nul/statusoverview/internal/config"
)

const (
	testSecret     = "test-secret-with-enough-bytes-for-hs256"
	keycloakIssuer = "https://sso.example.com/realms/dash"
	azureIssuer    = "https://login.microsoftonline.com/tenant-id/v2.0"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func hmacConfig(provider string) config.AuthConfig {
	return config.AuthConfig{
		Enabled:        true,
		Provider:       provider,
		KeycloakIssuer: keycloakIssuer,
		AzureIssuer:    azureIssuer,
		HMACSecret:     testSecret,
	}
}

func sign(t *testing.T, c jwt.MapClaims) string {
	t.Helper()
	if _, ok := c["exp"]; !ok {
		c["exp"] = time.Now().Add(time.Hour).Unix()
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func keycloakToken(t *testing.T, roles ...string) string {
	return sign(t, jwt.MapClaims{
		"iss":                keycloakIssuer,
		"sub":                "kc-123",
		"preferred_username": "jane",
		"email":              "jane@example.com",
		"realm_access":       map[string]any{"roles": roles},
	})
}

func TestVerify_Keycloak(t *testing.T) {
	t.Parallel()

	a, err := New(hmacConfig(ProviderKeycloak))
	require.NoError(t, err)

	u, err := a.Verify(keycloakToken(t, "deployer", "viewer"))
	require.NoError(t, err)

	assert.Equal(t, "kc-123", u.ID)
	assert.Equal(t, "jane", u.Name)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.Equal(t, ProviderKeycloak, u.Provider)
	assert.Equal(t, []string{"deployer", "viewer"}, u.Roles)
}

func TestVerify_Azure(t *testing.T) {
	t.Parallel()

	a, err := New(hmacConfig(ProviderBoth))
	require.NoError(t, err)

	u, err := a.Verify(sign(t, jwt.MapClaims{
		"iss":   azureIssuer,
		"sub":   "pairwise-sub",
		"oid":   "object-id",
		"name":  "John Smith",
		"upn":   "john@example.com",
		"roles": []string{"deployer"},
	}))
	require.NoError(t, err)

	assert.Equal(t, "object-id", u.ID)
	assert.Equal(t, "John Smith", u.Name)
	assert.Equal(t, "john@example.com", u.Email)
	assert.Equal(t, ProviderAzure, u.Provider)
	assert.True(t, u.HasRoles("deployer"))
}

func TestVerify_Rejects(t *testing.T) {
	t.Parallel()

	a, err := New(hmacConfig(ProviderKeycloak))
	require.NoError(t, err)

	wrongKey, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": keycloakIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("another-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong key", wrongKey},
		{"expired", sign(t, jwt.MapClaims{"iss": keycloakIssuer, "exp": time.Now().Add(-time.Hour).Unix()})},
		{"azure issuer on keycloak-only", sign(t, jwt.MapClaims{"iss": azureIssuer})},
		{"unknown issuer", sign(t, jwt.MapClaims{"iss": "https://evil.example.com"})},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := a.Verify(tc.token)
			assert.Error(t, err)
		})
	}
}

func TestVerify_Audience(t *testing.T) {
	t.Parallel()

	cfg := hmacConfig(ProviderKeycloak)
	cfg.Audience = "status-overview"
	a, err := New(cfg)
	require.NoError(t, err)

	_, err = a.Verify(sign(t, jwt.MapClaims{"iss": keycloakIssuer, "aud": "status-overview"}))
	assert.NoError(t, err)

	_, err = a.Verify(sign(t, jwt.MapClaims{"iss": keycloakIssuer, "aud": "other-app"}))
	assert.Error(t, err)
}

func TestVerify_RSAPublicKey(t *testing.T) {
	t.Parallel()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	a, err := New(config.AuthConfig{
		Enabled:      true,
		Provider:     ProviderAzure,
		PublicKeyPEM: string(pemKey),
	})
	require.NoError(t, err)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   "https://any-tenant.example.com",
		"sub":   "abc",
		"roles": []string{"viewer"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString(priv)
	require.NoError(t, err)

	u, err := a.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, ProviderAzure, u.Provider)
	assert.Equal(t, []string{"viewer"}, u.Roles)

	// An HMAC token must not pass an RSA verifier.
	_, err = a.Verify(sign(t, jwt.MapClaims{"iss": "https://any-tenant.example.com"}))
	assert.Error(t, err)
}

func TestNew_InvalidPEM(t *testing.T) {
	t.Parallel()

	_, err := New(config.AuthConfig{Enabled: true, Provider: ProviderKeycloak, PublicKeyPEM: "nope"})
	assert.ErrorContains(t, err, "public_key_pem")
}

func newGuardedEngine(a *Authenticator, roles ...string) *gin.Engine {
	r := gin.New()
	r.Use(a.Middleware())
	r.GET("/me", func(c *gin.Context) {
		u, ok := UserFrom(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"anonymous": true})
			return
		}
		c.JSON(http.StatusOK, u)
	})
	r.POST("/deploy", a.RequireRoles(roles...), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})
	return r
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	a, err := New(hmacConfig(ProviderKeycloak))
	require.NoError(t, err)
	r := newGuardedEngine(a, "deployer")

	w := do(r, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "missing bearer token", body["error"])

	w = do(r, http.MethodGet, "/me", "bogus")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/me", keycloakToken(t, "viewer"))
	require.Equal(t, http.StatusOK, w.Code)
	var u User
	require.NoError(t, json.NewDecoder(w.Body).Decode(&u))
	assert.Equal(t, "jane", u.Name)
}

func TestRequireRoles(t *testing.T) {
	t.Parallel()

	a, err := New(hmacConfig(ProviderKeycloak))
	require.NoError(t, err)
	r := newGuardedEngine(a, "deployer", "prod-approver")

	tests := []struct {
		name  string
		roles []string
		want  int
	}{
		{"all roles", []string{"deployer", "prod-approver", "viewer"}, http.StatusAccepted},
		{"one role missing", []string{"deployer"}, http.StatusForbidden},
		{"no roles", nil, http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			w := do(r, http.MethodPost, "/deploy", keycloakToken(t, tc.roles...))
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestDisabled_PassesThrough(t *testing.T) {
	t.Parallel()

	a, err := New(config.AuthConfig{Provider: ProviderKeycloak})
	require.NoError(t, err)
	assert.False(t, a.Enabled())

	r := newGuardedEngine(a, "deployer")

	w := do(r, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"anonymous":true}`, w.Body.String())

	w = do(r, http.MethodPost, "/deploy", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tok, err := bearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	tok, err = bearerToken("bearer  xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)

	for _, h := range []string{"", "Basic dXNlcjpwYXNz", "Bearer", "Bearer   "} {
		_, err := bearerToken(h)
		assert.ErrorIs(t, err, errMissingToken, h)
	}
}
