package clients

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"

	"github.com/Swap-nul/statusoverview/internal/catalog"
	"github.com/Swap-nul/statusoverview/internal/config"
	"github.com/Swap-nul/statusoverview/internal/orchestrator"
)

const postgresProbeName = "postgres"

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// dbPool abstracts the pgxpool.Pool methods used by PostgresClient so tests
// can inject a fake without standing up a real database.
type dbPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresClient is the deployment catalog store. It wraps a pgx pool, opened
// lazily on first use, with a circuit breaker around every call.
type PostgresClient struct {
	cfg     config.PostgresConfig
	cb      *gobreaker.CircuitBreaker
	connect func(ctx context.Context, cfg config.PostgresConfig) (dbPool, error)

	mu   sync.Mutex
	pool dbPool
}

// NewPostgresClient creates a PostgresClient. No connection is made at
// construction time.
func NewPostgresClient(cfg config.PostgresConfig, cb *gobreaker.CircuitBreaker) *PostgresClient {
	return &PostgresClient{
		cfg:     cfg,
		cb:      cb,
		connect: realConnect,
	}
}

// migrations are applied in order by Migrate. Each statement is idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    integer PRIMARY KEY,
		applied_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS apps (
		id       bigserial PRIMARY KEY,
		app_name text NOT NULL UNIQUE,
		parent   text NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS apps_parent_idx ON apps (parent)`,
	`CREATE TABLE IF NOT EXISTS deployments (
		app_id            bigint NOT NULL REFERENCES apps (id) ON DELETE CASCADE,
		environment       text NOT NULL,
		tag               text NOT NULL DEFAULT '',
		branch            text NOT NULL DEFAULT '',
		status            text NOT NULL DEFAULT '',
		cluster           text NOT NULL DEFAULT '',
		commitby          text NOT NULL DEFAULT '',
		commit_id         text NOT NULL DEFAULT '',
		namespace         text NOT NULL DEFAULT '',
		previous_tag      text NOT NULL DEFAULT '',
		commitmessage     text NOT NULL DEFAULT '',
		image_created_at  timestamptz,
		image_deployed_at timestamptz,
		image_deployed_by text NOT NULL DEFAULT '',
		PRIMARY KEY (app_id, environment)
	)`,
	`CREATE TABLE IF NOT EXISTS builds (
		build_id      bigserial PRIMARY KEY,
		app_id        bigint NOT NULL REFERENCES apps (id) ON DELETE CASCADE,
		image         text NOT NULL,
		tag           text NOT NULL,
		git_sha       text NOT NULL DEFAULT '',
		docker_sha    text NOT NULL DEFAULT '',
		branch        text NOT NULL,
		created_at    timestamptz NOT NULL DEFAULT now(),
		commitmessage text NOT NULL DEFAULT '',
		commitby      text NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS builds_app_branch_idx ON builds (app_id, branch, build_id DESC)`,
	`INSERT INTO schema_migrations (version) VALUES (1) ON CONFLICT DO NOTHING`,
}

// Migrate creates the catalog schema. It is safe to run repeatedly.
func (c *PostgresClient) Migrate(ctx context.Context) error {
	return c.run(ctx, func(db dbPool) error {
		for i, stmt := range migrations {
			if _, err := db.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migration step %d: %w", i+1, err)
			}
		}
		return nil
	})
}

// Probe pings the Postgres server and verifies the schema_migrations table
// exists in the public schema. It wraps the check in the circuit breaker so
// that persistent failures trip the breaker after three consecutive errors.
func (c *PostgresClient) Probe(ctx context.Context) orchestrator.ProbeResult {
	start := time.Now()

	err := c.run(ctx, func(db dbPool) error {
		if err := db.Ping(ctx); err != nil {
			return fmt.Errorf("ping: %w", err)
		}

		var exists int
		row := db.QueryRow(ctx,
			"SELECT 1 FROM information_schema.tables WHERE table_schema='public' AND table_name='schema_migrations'",
		)
		if err := row.Scan(&exists); err != nil {
			return fmt.Errorf("schema_migrations table not found: %w", err)
		}
		return nil
	})

	return probeResult(postgresProbeName, start, err)
}

const tsText = `'YYYY-MM-DD"T"HH24:MI:SS"Z"'`

// AppsByProject returns every app whose parent is project, ordered by name,
// with all of its deployments attached.
func (c *PostgresClient) AppsByProject(ctx context.Context, project string) ([]catalog.App, error) {
	query := `
SELECT a.id, a.app_name, a.parent,
       COALESCE(d.environment, ''), COALESCE(d.tag, ''), COALESCE(d.branch, ''),
       COALESCE(d.status, ''), COALESCE(d.cluster, ''), COALESCE(d.commitby, ''),
       COALESCE(d.commit_id, ''), COALESCE(d.namespace, ''), COALESCE(d.previous_tag, ''),
       COALESCE(d.commitmessage, ''),
       COALESCE(to_char(d.image_created_at AT TIME ZONE 'UTC', ` + tsText + `), ''),
       COALESCE(to_char(d.image_deployed_at AT TIME ZONE 'UTC', ` + tsText + `), ''),
       COALESCE(d.image_deployed_by, '')
FROM apps a
LEFT JOIN deployments d ON d.app_id = a.id
WHERE a.parent = $1
ORDER BY a.app_name, d.environment`

	var apps []catalog.App
	err := c.run(ctx, func(db dbPool) error {
		rows, err := db.Query(ctx, query, project)
		if err != nil {
			return fmt.Errorf("querying apps for %s: %w", project, err)
		}
		defer rows.Close()

		index := make(map[int64]int)
		for rows.Next() {
			var (
				a   catalog.App
				env string
				d   catalog.DeployDetails
			)
			if err := rows.Scan(
				&a.ID, &a.Name, &a.Parent,
				&env, &d.Tag, &d.Branch,
				&d.Status, &d.Cluster, &d.CommitBy,
				&d.CommitID, &d.Namespace, &d.PreviousTag,
				&d.CommitMessage,
				&d.ImageCreatedAt, &d.ImageDeployedAt, &d.ImageDeployedBy,
			); err != nil {
				return fmt.Errorf("scanning app row: %w", err)
			}

			i, ok := index[a.ID]
			if !ok {
				a.Deployments = make(map[string]*catalog.DeployDetails)
				apps = append(apps, a)
				i = len(apps) - 1
				index[a.ID] = i
			}
			if env != "" {
				apps[i].Deployments[env] = &d
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return apps, nil
}

// Projects lists the distinct project (parent) names in the catalog.
func (c *PostgresClient) Projects(ctx context.Context) ([]string, error) {
	var out []string
	err := c.run(ctx, func(db dbPool) error {
		rows, err := db.Query(ctx, `SELECT DISTINCT parent FROM apps`)
		if err != nil {
			return fmt.Errorf("querying projects: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var p string
			if err := rows.Scan(&p); err != nil {
				return fmt.Errorf("scanning project: %w", err)
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// AppID resolves an application name to its id. Unknown names return
// ErrNotFound.
func (c *PostgresClient) AppID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := c.run(ctx, func(db dbPool) error {
		err := db.QueryRow(ctx, `SELECT id FROM apps WHERE app_name = $1`, name).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("app %s: %w", name, ErrNotFound)
		}
		return err
	})
	return id, err
}

// BuildsForBranch lists builds of appID on exactly branch, newest first.
func (c *PostgresClient) BuildsForBranch(ctx context.Context, appID int64, branch string) ([]catalog.Build, error) {
	query := `
SELECT build_id, app_id, image, tag, git_sha, docker_sha, branch,
       to_char(created_at AT TIME ZONE 'UTC', ` + tsText + `), commitmessage, commitby
FROM builds
WHERE app_id = $1 AND branch = $2
ORDER BY build_id DESC`

	builds := []catalog.Build{}
	err := c.run(ctx, func(db dbPool) error {
		rows, err := db.Query(ctx, query, appID, branch)
		if err != nil {
			return fmt.Errorf("querying builds: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var b catalog.Build
			if err := rows.Scan(
				&b.BuildID, &b.AppID, &b.Image, &b.Tag, &b.GitSHA, &b.DockerSHA,
				&b.Branch, &b.CreatedAt, &b.CommitMessage, &b.CommitBy,
			); err != nil {
				return fmt.Errorf("scanning build: %w", err)
			}
			builds = append(builds, b)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return builds, nil
}

// LatestBuildTag returns the tag of the newest build whose branch contains
// branch and whose image contains appName. It returns "" when no build matches.
func (c *PostgresClient) LatestBuildTag(ctx context.Context, appName, branch string) (string, error) {
	var tag string
	err := c.run(ctx, func(db dbPool) error {
		err := db.QueryRow(ctx, `
SELECT tag FROM builds
WHERE branch LIKE '%' || $1 || '%' AND image LIKE '%' || $2 || '%'
ORDER BY build_id DESC
LIMIT 1`, escapeLike(branch), escapeLike(appName)).Scan(&tag)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	})
	return tag, err
}

// Close releases the pool if one was opened.
func (c *PostgresClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
}

// run executes fn against the shared pool inside the circuit breaker.
func (c *PostgresClient) run(ctx context.Context, fn func(db dbPool) error) error {
	_, err := c.cb.Execute(func() (any, error) {
		db, err := c.db(ctx)
		if err != nil {
			return nil, err
		}
		return nil, fn(db)
	})
	if errors.Is(err, gobreaker.ErrOpenState) {
		return fmt.Errorf("postgres: circuit open: %w", err)
	}
	return err
}

func (c *PostgresClient) db(ctx context.Context) (dbPool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool != nil {
		return c.pool, nil
	}
	pool, err := c.connect(ctx, c.cfg)
	if err != nil {
		return nil, err
	}
	c.pool = pool
	return pool, nil
}

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

// realConnect opens a pgxpool.Pool using the provided PostgresConfig.
func realConnect(ctx context.Context, cfg config.PostgresConfig) (dbPool, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DB, cfg.SSLMode,
	)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}

	return pool, nil
}
