package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/Swap-nul/statusoverview/internal/api"
	"github.com/Swap-nul/statusoverview/internal/auth"
	"github.com/Swap-nul/statusoverview/internal/catalog"
	"github.com/Swap-nul/statusoverview/internal/clients"
	"github.com/Swap-nul/statusoverview/internal/config"
	"github.com/Swap-nul/statusoverview/internal/orchestrator"
	"github.com/Swap-nul/statusoverview/internal/overview"
	"github.com/Swap-nul/statusoverview/internal/telemetry"
)

// AppContext holds all constructed application dependencies shared across
// subcommands. It is built once in PersistentPreRunE.
type AppContext struct {
	cfg          *config.Config
	otelProvider *telemetry.Provider
	orchestrator *orchestrator.Orchestrator
	overview     *overview.Service
	router       *api.Router

	pg      *clients.PostgresClient
	redis   *clients.RedisClient
	nats    *clients.NATSClient
	jenkins *clients.JenkinsClient

	// logFile is the optional log sink opened by initLogger.
	logFile *os.File
}

// buildAppContext constructs all application dependencies from cfg:
//  1. Starts the OTEL provider (best-effort, off without an endpoint)
//  2. Creates the four clients, each behind its own circuit breaker
//  3. Creates the orchestrator and the overview service
//  4. Creates the authenticator and the HTTP router
//
// No client connects here; connections are opened on first use.
func buildAppContext(cfg *config.Config) (*AppContext, error) {
	app := &AppContext{cfg: cfg}

	// A collector that cannot be set up must never block startup.
	tp, err := telemetry.Start(context.Background(), cfg.Telemetry)
	if err != nil {
		slog.Warn("OTEL provider init failed, telemetry disabled", "err", err)
		tp = &telemetry.Provider{}
	}
	app.otelProvider = tp
	slog.Debug("telemetry configured", "enabled", tp.Enabled())

	app.pg = clients.NewPostgresClient(cfg.Database, clients.NewCircuitBreaker("postgres"))
	app.redis = clients.NewRedisClient(cfg.Redis, clients.NewCircuitBreaker("redis"))
	app.nats = clients.NewNATSClient(cfg.NATS, clients.NewCircuitBreaker("nats"))
	app.jenkins = clients.NewJenkinsClient(cfg.Jenkins, clients.NewCircuitBreaker("jenkins"))

	app.orchestrator = orchestrator.New(orchestrator.Dependencies{
		Postgres: app.pg,
		NATS:     app.nats,
		Redis:    app.redis,
		Jenkins:  app.jenkins,
	})

	app.overview = overview.NewService(app.pg, app.redis, app.jenkins, app.nats, overview.Options{
		Environments:  cfg.Dashboard.Environments,
		Repositories:  cfg.Dashboard.Repositories,
		Links:         linkTemplates(cfg.Dashboard.Links),
		CacheTTL:      cfg.Cache.TTL,
		AuthEnabled:   cfg.Auth.Enabled,
		AuthProvider:  cfg.Auth.Provider,
		DeployRoles:   cfg.Auth.DeployRoles,
		BulkDeployJob: cfg.Jenkins.BulkDeployJob,
	})

	authn, err := auth.New(cfg.Auth)
	if err != nil {
		return nil, err
	}

	app.router = api.NewRouter(api.Deps{
		Orchestrator: app.orchestrator,
		Overview:     app.overview,
		Auth:         authn,
		DeployRoles:  cfg.Auth.DeployRoles,
		ServiceName:  cfg.Telemetry.ServiceName,
		Logger:       slog.Default(),
	})

	return app, nil
}

func linkTemplates(l config.LinksConfig) catalog.LinkTemplates {
	return catalog.LinkTemplates{
		ArgoCDProd:        l.ArgoCDProdURL,
		ArgoCDDR:          l.ArgoCDDRURL,
		ArgoCDNonProd:     l.ArgoCDNonProdURL,
		KibanaFilter:      l.KibanaFilterURL,
		KibanaHostProdDR:  l.KibanaHostProdDR,
		KibanaHostNonProd: l.KibanaHostNonProd,
	}
}

// close releases client connections and flushes telemetry.
func (a *AppContext) close() {
	a.pg.Close()
	if err := a.redis.Close(); err != nil {
		slog.Warn("redis close error", "err", err)
	}
	a.nats.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.otelProvider.Shutdown(ctx); err != nil {
		slog.Warn("OTEL shutdown error", "err", err)
	}

	if a.logFile != nil {
		slog.SetDefault(telemetry.NewLogger(a.cfg.Telemetry.LogLevel, os.Stdout))
		if err := a.logFile.Close(); err != nil {
			slog.Warn("log file close error", "err", err)
		}
		a.logFile = nil
	}
}
