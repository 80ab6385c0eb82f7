package overview

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/Swap-nul/statusoverview/internal/catalog"
	"github.com/Swap-nul/statusoverview/internal/clients"
)

// fakeStore is an in-memory Store.
type fakeStore struct {
	apps      map[string][]catalog.App
	ids       map[string]int64
	builds    map[int64][]catalog.Build
	latest    map[string]string // "app|branch" -> tag
	latestErr error
	appsErr   error

	appsCalls int
}

func (f *fakeStore) AppsByProject(_ context.Context, project string) ([]catalog.App, error) {
	f.appsCalls++
	if f.appsErr != nil {
		return nil, f.appsErr
	}
	// Hand out deep copies so callers cannot mutate the fixture.
	b, _ := json.Marshal(f.apps[project])
	var out []catalog.App
	_ = json.Unmarshal(b, &out)
	return out, nil
}

func (f *fakeStore) Projects(_ context.Context) ([]string, error) {
	var out []string
	for p := range f.apps {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) AppID(_ context.Context, name string) (int64, error) {
	id, ok := f.ids[name]
	if !ok {
		return 0, clients.ErrNotFound
	}
	return id, nil
}

func (f *fakeStore) BuildsForBranch(_ context.Context, appID int64, branch string) ([]catalog.Build, error) {
	var out []catalog.Build
	for _, b := range f.builds[appID] {
		if b.Branch == branch {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) LatestBuildTag(_ context.Context, appName, branch string) (string, error) {
	if f.latestErr != nil {
		return "", f.latestErr
	}
	return f.latest[appName+"|"+branch], nil
}

// fakeCache stores JSON blobs in a map.
type fakeCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	setErr  error
	setTTLs []time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return false, f.getErr
	}
	b, ok := f.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (f *fakeCache) SetJSON(_ context.Context, key string, v any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.data[key] = b
	f.setTTLs = append(f.setTTLs, ttl)
	return nil
}

// fakeCI records triggered bulk deployments.
type fakeCI struct {
	triggerErr error
	queueID    int64
	status     *clients.JobStatus
	statusErr  error
	console    string

	params []clients.BulkDeployParams
	ids    []string
}

func (f *fakeCI) TriggerBulkDeploy(_ context.Context, p clients.BulkDeployParams) (*clients.QueuedBuild, error) {
	f.params = append(f.params, p)
	if f.triggerErr != nil {
		return nil, f.triggerErr
	}
	return &clients.QueuedBuild{QueueID: f.queueID}, nil
}

func (f *fakeCI) JobStatus(_ context.Context, id string) (*clients.JobStatus, error) {
	f.ids = append(f.ids, id)
	return f.status, f.statusErr
}

func (f *fakeCI) ConsoleText(_ context.Context, id string) (string, error) {
	f.ids = append(f.ids, id)
	return f.console, f.statusErr
}

// fakePublisher records published events.
type fakePublisher struct {
	err      error
	subjects []string
	payloads [][]byte
}

func (f *fakePublisher) Publish(_ context.Context, subject string, data []byte) error {
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return f.err
}

var errBoom = errors.New("boom")

func projectFixture() map[string][]catalog.App {
	return map[string][]catalog.App{
		"alpha": {
			{
				ID: 1, Name: "cms-api", Parent: "alpha",
				Deployments: map[string]*catalog.DeployDetails{
					"qa": {Tag: "2.0.0", Branch: "main", ImageDeployedAt: "2024-03-01T10:00:00Z"},
				},
			},
			{
				ID: 2, Name: "loan-api", Parent: "alpha",
				Deployments: map[string]*catalog.DeployDetails{
					"qa":   {Tag: "1.4.0", Branch: "release/1.4", ImageDeployedAt: "2024-02-01T10:00:00Z"},
					"prod": {Tag: "1.3.2", Branch: "main", ImageDeployedAt: "2024-01-01T10:00:00Z"},
				},
			},
			{ID: 3, Name: "sms-api", Parent: "alpha"},
		},
	}
}

func newTestService(store *fakeStore, cache Cache, ci *fakeCI, pub Publisher) *Service {
	svc := NewService(store, cache, ci, pub, Options{
		Environments:  []string{"qa", "uat", "prod"},
		Repositories:  map[string]string{"loan-api": "https://github.com/org-name/loan-api"},
		CacheTTL:      30 * time.Second,
		AuthProvider:  "keycloak",
		DeployRoles:   []string{"deployer"},
		BulkDeployJob: "bulk-deployment-job",
		Links: catalog.LinkTemplates{
			ArgoCDProd:    "https://argo.prod/applications/",
			ArgoCDNonProd: "https://argo.np/applications/",
		},
	})
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	svc.newID = func() string { return "0123abcd-4567-89ef-0123-456789abcdef" }
	return svc
}
