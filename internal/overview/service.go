// Package overview serves the Status Overview dashboard: per-project
// deployment catalogs, build history, CSV export and bulk deployments
// through Jenkins.
package overview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Swap-nul/statusoverview/internal/catalog"
	"github.com/Swap-nul/statusoverview/internal/clients"
)

// Errors returned to callers; the HTTP layer maps them onto status codes.
var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid request")
)

const (
	defaultTriggerUser = "status-overview-user"

	// BulkTriggeredSubject is the NATS subject of bulk deployment events.
	BulkTriggeredSubject = "deployments.bulk.triggered"
)

// Jenkins build references accepted besides plain build numbers.
var (
	buildNumberRE   = regexp.MustCompile(`^[0-9]+$`)
	buildPermalinks = []string{"lastBuild", "lastSuccessfulBuild", "lastFailedBuild", "lastCompletedBuild"}
)

// Store is the deployment catalog. Satisfied by *clients.PostgresClient.
type Store interface {
	AppsByProject(ctx context.Context, project string) ([]catalog.App, error)
	Projects(ctx context.Context) ([]string, error)
	AppID(ctx context.Context, name string) (int64, error)
	BuildsForBranch(ctx context.Context, appID int64, branch string) ([]catalog.Build, error)
	LatestBuildTag(ctx context.Context, appName, branch string) (string, error)
}

// Cache holds project catalogs between requests. Satisfied by
// *clients.RedisClient.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

// CI runs the bulk deployment job. Satisfied by *clients.JenkinsClient.
type CI interface {
	TriggerBulkDeploy(ctx context.Context, p clients.BulkDeployParams) (*clients.QueuedBuild, error)
	JobStatus(ctx context.Context, id string) (*clients.JobStatus, error)
	ConsoleText(ctx context.Context, id string) (string, error)
}

// Publisher emits deployment events. Satisfied by *clients.NATSClient.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Options carries the dashboard settings the service needs.
type Options struct {
	Environments  []string
	Repositories  map[string]string
	Links         catalog.LinkTemplates
	CacheTTL      time.Duration
	AuthEnabled   bool
	AuthProvider  string
	DeployRoles   []string
	BulkDeployJob string
}

// Service implements the dashboard operations on top of the store, cache,
// CI server and event stream. Cache and Publisher may be nil.
type Service struct {
	store  Store
	cache  Cache
	ci     CI
	events Publisher
	opts   Options

	now   func() time.Time
	newID func() string
}

// NewService wires a Service.
func NewService(store Store, cache Cache, ci CI, events Publisher, opts Options) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		ci:     ci,
		events: events,
		opts:   opts,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// AppQuery selects the ordering of a project listing. A zero AppQuery keeps
// the store's order (by name).
type AppQuery struct {
	SortBy    string
	Env       string
	Direction catalog.Direction
}

func (q AppQuery) validate(s *Service) error {
	if q.SortBy == "" {
		return nil
	}
	if !catalog.ValidSortField(q.SortBy) {
		return fmt.Errorf("unknown sort field %q: %w", q.SortBy, ErrInvalid)
	}
	if q.Direction != catalog.Asc && q.Direction != catalog.Desc {
		return fmt.Errorf("direction must be asc or desc, got %q: %w", q.Direction, ErrInvalid)
	}
	if q.SortBy != catalog.SortByName {
		if q.Env == "" {
			return fmt.Errorf("env is required to sort by %s: %w", q.SortBy, ErrInvalid)
		}
		return s.checkEnv(q.Env)
	}
	return nil
}

// Projects lists the known project names.
func (s *Service) Projects(ctx context.Context) ([]string, error) {
	projects, err := s.store.Projects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	if projects == nil {
		projects = []string{}
	}
	return projects, nil
}

// ProjectApps returns the apps of project with repository links and the latest
// build tag of every deployed branch filled in, ordered by q.
func (s *Service) ProjectApps(ctx context.Context, project string, q AppQuery) ([]catalog.App, error) {
	if err := q.validate(s); err != nil {
		return nil, err
	}

	apps, err := s.loadProject(ctx, project)
	if err != nil {
		return nil, err
	}

	if q.SortBy != "" {
		catalog.SortApps(apps, q.SortBy, q.Env, q.Direction)
	}
	return apps, nil
}

func (s *Service) loadProject(ctx context.Context, project string) ([]catalog.App, error) {
	key := "apps:" + project

	if s.cache != nil {
		var cached []catalog.App
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			slog.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		} else if hit {
			return cached, nil
		}
	}

	apps, err := s.store.AppsByProject(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("loading project %s: %w", project, err)
	}
	if apps == nil {
		apps = []catalog.App{}
	}

	for i := range apps {
		apps[i].Repo = s.opts.Repositories[apps[i].Name]
		for env, d := range apps[i].Deployments {
			if d == nil || d.Branch == "" {
				continue
			}
			tag, err := s.store.LatestBuildTag(ctx, apps[i].Name, d.Branch)
			if err != nil {
				slog.WarnContext(ctx, "latest build tag lookup failed",
					"app", apps[i].Name, "env", env, "branch", d.Branch, "error", err)
				continue
			}
			d.LatestBuildTag = tag
		}
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, apps, s.opts.CacheTTL); err != nil {
			slog.WarnContext(ctx, "cache write failed", "key", key, "error", err)
		}
	}
	return apps, nil
}

// Builds lists the builds of app on branch, newest first.
func (s *Service) Builds(ctx context.Context, app, branch string) ([]catalog.Build, error) {
	if branch == "" {
		return nil, fmt.Errorf("branch is required: %w", ErrInvalid)
	}

	id, err := s.store.AppID(ctx, app)
	if errors.Is(err, clients.ErrNotFound) {
		return nil, fmt.Errorf("app %s: %w", app, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving app %s: %w", app, err)
	}

	builds, err := s.store.BuildsForBranch(ctx, id, branch)
	if err != nil {
		return nil, fmt.Errorf("listing builds of %s: %w", app, err)
	}
	return builds, nil
}

// Export writes the deployments of project in env as CSV, ordered by q.
func (s *Service) Export(ctx context.Context, project, env string, q AppQuery, w io.Writer) error {
	if err := s.checkEnv(env); err != nil {
		return err
	}
	apps, err := s.ProjectApps(ctx, project, q)
	if err != nil {
		return err
	}
	return catalog.WriteCSV(w, env, apps)
}

// Candidates lists the apps of project that can be promoted from one
// environment to another. to may be empty.
func (s *Service) Candidates(ctx context.Context, project, from, to, filter string) ([]catalog.Candidate, error) {
	if err := s.checkEnv(from); err != nil {
		return nil, err
	}
	if to != "" {
		if err := s.checkEnv(to); err != nil {
			return nil, err
		}
	}

	apps, err := s.loadProject(ctx, project)
	if err != nil {
		return nil, err
	}
	return catalog.BulkDeployCandidates(apps, from, to, filter), nil
}

// Links returns the ArgoCD and Kibana URLs of app in env.
func (s *Service) Links(app, env, portfolio string) (catalog.Links, error) {
	if app == "" || env == "" {
		return catalog.Links{}, fmt.Errorf("app and env are required: %w", ErrInvalid)
	}
	return s.opts.Links.For(app, env, portfolio), nil
}

// Settings is the public part of the configuration. It never carries
// credentials.
type Settings struct {
	Environments  []string          `json:"environments"`
	Repositories  map[string]string `json:"repositories"`
	AuthEnabled   bool              `json:"authEnabled"`
	AuthProvider  string            `json:"authProvider"`
	DeployRoles   []string          `json:"deployRoles"`
	BulkDeployJob string            `json:"bulkDeployJob"`
}

// Settings returns the configuration the dashboard needs to render.
func (s *Service) Settings() Settings {
	repos := s.opts.Repositories
	if repos == nil {
		repos = map[string]string{}
	}
	return Settings{
		Environments:  s.opts.Environments,
		Repositories:  repos,
		AuthEnabled:   s.opts.AuthEnabled,
		AuthProvider:  s.opts.AuthProvider,
		DeployRoles:   s.opts.DeployRoles,
		BulkDeployJob: s.opts.BulkDeployJob,
	}
}

func (s *Service) checkEnv(env string) error {
	if env == "" {
		return fmt.Errorf("environment is required: %w", ErrInvalid)
	}
	if len(s.opts.Environments) > 0 && !slices.Contains(s.opts.Environments, env) {
		return fmt.Errorf("unknown environment %q: %w", env, ErrInvalid)
	}
	return nil
}

func checkBuildRef(id string) error {
	if buildNumberRE.MatchString(id) || slices.Contains(buildPermalinks, id) {
		return nil
	}
	return fmt.Errorf("build reference %q is not a number or permalink: %w", id, ErrInvalid)
}

func (s *Service) newJobID() string {
	frag := strings.ReplaceAll(s.newID(), "-", "")
	if len(frag) > 9 {
		frag = frag[:9]
	}
	return fmt.Sprintf("bulk-deploy-%d-%s", s.now().UnixMilli(), frag)
}
