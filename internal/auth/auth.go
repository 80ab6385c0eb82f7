// Package auth authenticates dashboard users from Keycloak or Azure AD
// bearer tokens and guards routes by realm or app role.
package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Swap-nul/statusoverview/internal/config"
)

// Identity providers.
const (
	ProviderKeycloak = "keycloak"
	ProviderAzure    = "azure"
	ProviderBoth     = "both"
)

const userKey = "statusoverview.user"

var (
	errMissingToken  = errors.New("missing bearer token")
	errUnknownIssuer = errors.New("token issuer is not an allowed provider")
)

// User is the authenticated caller.
type User struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles"`
	Provider string   `json:"provider"`
}

// HasRoles reports whether u holds every one of roles.
func (u *User) HasRoles(roles ...string) bool {
	for _, r := range roles {
		if !slices.Contains(u.Roles, r) {
			return false
		}
	}
	return true
}

// claims covers the Keycloak and Azure AD access token shapes.
type claims struct {
	jwt.RegisteredClaims
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	UPN               string `json:"upn"`
	OID               string `json:"oid"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	Roles []string `json:"roles"`
}

// Authenticator verifies bearer tokens. A disabled Authenticator lets every
// request through without a user.
type Authenticator struct {
	enabled        bool
	provider       string
	keycloakIssuer string
	azureIssuer    string

	hmacSecret []byte
	publicKey  *rsa.PublicKey
	parser     *jwt.Parser
}

// New builds an Authenticator from cfg.
func New(cfg config.AuthConfig) (*Authenticator, error) {
	a := &Authenticator{
		enabled:        cfg.Enabled,
		provider:       cfg.Provider,
		keycloakIssuer: cfg.KeycloakIssuer,
		azureIssuer:    cfg.AzureIssuer,
	}
	if !a.enabled {
		return a, nil
	}

	var methods []string
	switch {
	case cfg.PublicKeyPEM != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("parsing auth.public_key_pem: %w", err)
		}
		a.publicKey = key
		methods = []string{"RS256", "RS384", "RS512"}
	case cfg.HMACSecret != "":
		a.hmacSecret = []byte(cfg.HMACSecret)
		methods = []string{"HS256", "HS384", "HS512"}
	default:
		return nil, errors.New("auth enabled without a verification key")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(methods), jwt.WithExpirationRequired()}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	a.parser = jwt.NewParser(opts...)
	return a, nil
}

// Enabled reports whether requests must carry a token.
func (a *Authenticator) Enabled() bool { return a.enabled }

// Verify parses and validates raw and returns the user it names.
func (a *Authenticator) Verify(raw string) (*User, error) {
	if a.parser == nil {
		return nil, errors.New("authentication is disabled")
	}

	var c claims
	if _, err := a.parser.ParseWithClaims(raw, &c, a.key); err != nil {
		return nil, fmt.Errorf("verifying token: %w", err)
	}

	provider, err := a.providerFor(c.Issuer)
	if err != nil {
		return nil, err
	}

	u := &User{ID: c.Subject, Provider: provider}
	switch provider {
	case ProviderKeycloak:
		u.Name = firstNonEmpty(c.Name, c.PreferredUsername)
		u.Email = c.Email
		u.Roles = c.RealmAccess.Roles
	case ProviderAzure:
		u.ID = firstNonEmpty(c.OID, c.Subject)
		u.Name = firstNonEmpty(c.Name, c.PreferredUsername, c.UPN)
		u.Email = firstNonEmpty(c.Email, c.UPN, c.PreferredUsername)
		u.Roles = c.Roles
	}
	if u.Roles == nil {
		u.Roles = []string{}
	}
	return u, nil
}

func (a *Authenticator) key(_ *jwt.Token) (any, error) {
	if a.publicKey != nil {
		return a.publicKey, nil
	}
	return a.hmacSecret, nil
}

// providerFor maps a token issuer onto an allowed provider. When a single
// provider is allowed and its issuer is not configured, any issuer is
// accepted for it.
func (a *Authenticator) providerFor(iss string) (string, error) {
	allowKeycloak := a.provider == ProviderKeycloak || a.provider == ProviderBoth
	allowAzure := a.provider == ProviderAzure || a.provider == ProviderBoth

	switch {
	case allowKeycloak && a.keycloakIssuer != "" && iss == a.keycloakIssuer:
		return ProviderKeycloak, nil
	case allowAzure && a.azureIssuer != "" && iss == a.azureIssuer:
		return ProviderAzure, nil
	case a.provider == ProviderKeycloak && a.keycloakIssuer == "":
		return ProviderKeycloak, nil
	case a.provider == ProviderAzure && a.azureIssuer == "":
		return ProviderAzure, nil
	}
	return "", fmt.Errorf("%w: %q", errUnknownIssuer, iss)
}

// Middleware authenticates every request carrying an Authorization header
// and rejects the rest with 401. It is a no-op when auth is disabled.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.enabled {
			c.Next()
			return
		}

		raw, err := bearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var u *User
			u, err = a.Verify(raw)
			if err == nil {
				c.Set(userKey, u)
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"status": "error",
			"error":  err.Error(),
		})
	}
}

// RequireRoles rejects with 403 callers that lack any of roles. It is a no-op
// when auth is disabled.
func (a *Authenticator) RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.enabled {
			c.Next()
			return
		}

		u, ok := UserFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  errMissingToken.Error(),
			})
			return
		}
		if !u.HasRoles(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"status": "error",
				"error":  "missing required role(s): " + strings.Join(roles, ", "),
			})
			return
		}
		c.Next()
	}
}

// UserFrom returns the user stored by Middleware.
func UserFrom(c *gin.Context) (*User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*User)
	return u, ok
}

func bearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errMissingToken
	}
	return strings.TrimSpace(token), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
