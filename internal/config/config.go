package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the Status Overview service.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	Database  PostgresConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Jenkins   JenkinsConfig   `mapstructure:"jenkins"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	ServiceName  string `mapstructure:"service_name"`
	LogLevel     string `mapstructure:"log_level"`
	LogFile      string `mapstructure:"log_file"`
}

type BootstrapConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// JenkinsConfig locates the bulk deployment job. APIToken is never exposed
// through the public settings endpoint.
type JenkinsConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIUser       string        `mapstructure:"api_user"`
	APIToken      string        `mapstructure:"api_token"`
	BulkDeployJob string        `mapstructure:"bulk_deploy_job"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Provider is one of "keycloak", "azure" or "both".
	Provider       string   `mapstructure:"provider"`
	KeycloakIssuer string   `mapstructure:"keycloak_issuer"`
	AzureIssuer    string   `mapstructure:"azure_issuer"`
	Audience       string   `mapstructure:"audience"`
	HMACSecret     string   `mapstructure:"hmac_secret"`
	PublicKeyPEM   string   `mapstructure:"public_key_pem"`
	DeployRoles    []string `mapstructure:"deploy_roles"`
}

// DashboardConfig carries the values the dashboard used to read from its
// static config.json.
type DashboardConfig struct {
	Environments []string          `mapstructure:"environments"`
	Repositories map[string]string `mapstructure:"repositories"`
	Links        LinksConfig       `mapstructure:"links"`
}

type LinksConfig struct {
	ArgoCDProdURL     string `mapstructure:"argocd_prod_url"`
	ArgoCDDRURL       string `mapstructure:"argocd_dr_url"`
	ArgoCDNonProdURL  string `mapstructure:"argocd_nonprod_url"`
	KibanaFilterURL   string `mapstructure:"kibana_filter_url"`
	KibanaHostProdDR  string `mapstructure:"kibana_host_prod_dr"`
	KibanaHostNonProd string `mapstructure:"kibana_host_nonprod"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// Load reads config from the optional YAML file at path, then overlays
// environment variables with the STATUSOVERVIEW_ prefix
// (e.g. STATUSOVERVIEW_SERVER_PORT).
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("STATUSOVERVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Auth.Provider {
	case "keycloak", "azure", "both":
	default:
		return fmt.Errorf("auth.provider must be keycloak, azure or both, got %q", c.Auth.Provider)
	}
	if c.Auth.Enabled && c.Auth.HMACSecret == "" && c.Auth.PublicKeyPEM == "" {
		return fmt.Errorf("auth is enabled but neither auth.hmac_secret nor auth.public_key_pem is set")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// Empty endpoint disables OTEL so a bare start needs no collector.
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_insecure", true)
	v.SetDefault("telemetry.service_name", "status-overview")
	v.SetDefault("telemetry.log_level", "info")

	v.SetDefault("bootstrap.timeout", 2*time.Minute)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "statusoverview")
	v.SetDefault("database.db", "statusoverview")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("nats.url", "nats://localhost:4222")

	v.SetDefault("jenkins.base_url", "http://localhost:8082")
	v.SetDefault("jenkins.bulk_deploy_job", "bulk-deployment-job")
	v.SetDefault("jenkins.timeout", 15*time.Second)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.provider", "keycloak")
	v.SetDefault("auth.keycloak_issuer", "http://localhost:8081/realms/statusoverview")
	v.SetDefault("auth.deploy_roles", []string{"deployer"})

	v.SetDefault("dashboard.environments", []string{"alpha", "qa", "qa2", "uat", "prod", "dr"})

	v.SetDefault("cache.ttl", 30*time.Second)
}
