package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Swap-nul/statusoverview/internal/config"
	"github.com/Swap-nul/statusoverview/internal/orchestrator"
)

const (
	jenkinsProbeName = "jenkins"
	maxConsoleBytes  = 4 << 20
)

// Jenkins failures callers may want to tell apart.
var (
	ErrJenkinsUnauthorized = errors.New("authentication failed, check Jenkins credentials")
	ErrJenkinsForbidden    = errors.New("permission denied, user cannot trigger Jenkins jobs")
	ErrJenkinsNotFound     = errors.New("jenkins job not found, check job configuration")
)

var queueItemRE = regexp.MustCompile(`/queue/item/(\d+)/`)

// BulkDeployParams are the build parameters of the bulk deployment job.
type BulkDeployParams struct {
	ProjectName      string
	FromEnvironment  string
	ToEnvironment    string
	ApplicationsJSON string
	TriggerUser      string
}

// QueuedBuild is Jenkins' answer to a buildWithParameters call. QueueID is 0
// when the Location header did not name a queue item.
type QueuedBuild struct {
	QueueID  int64
	Location string
}

// JobStatus is the subset of a Jenkins build's api/json the dashboard shows.
type JobStatus struct {
	Number      int    `json:"number"`
	DisplayName string `json:"displayName"`
	Result      string `json:"result"`
	Building    bool   `json:"building"`
	Duration    int64  `json:"duration"`
	Timestamp   int64  `json:"timestamp"`
	URL         string `json:"url"`
}

// JenkinsClient drives the bulk deployment job through the Jenkins REST API,
// with a circuit breaker around all outbound calls.
type JenkinsClient struct {
	baseURL string
	user    string
	token   string
	job     string
	cb      *gobreaker.CircuitBreaker
	httpDo  func(req *http.Request) (*http.Response, error)
}

// NewJenkinsClient constructs a JenkinsClient. No HTTP calls are made at
// construction time.
func NewJenkinsClient(cfg config.JenkinsConfig, cb *gobreaker.CircuitBreaker) *JenkinsClient {
	hc := &http.Client{Timeout: cfg.Timeout}
	return &JenkinsClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		user:    cfg.APIUser,
		token:   cfg.APIToken,
		job:     cfg.BulkDeployJob,
		cb:      cb,
		httpDo:  hc.Do,
	}
}

// TriggerBulkDeploy queues the bulk deployment job. Jenkins answers 201 with
// the queue item in the Location header; any other status is an error.
func (c *JenkinsClient) TriggerBulkDeploy(ctx context.Context, p BulkDeployParams) (*QueuedBuild, error) {
	form := url.Values{}
	form.Set("PROJECT_NAME", p.ProjectName)
	form.Set("FROM_ENVIRONMENT", p.FromEnvironment)
	form.Set("TO_ENVIRONMENT", p.ToEnvironment)
	form.Set("APPLICATIONS_JSON", p.ApplicationsJSON)
	form.Set("TRIGGER_USER", p.TriggerUser)

	res, err := c.execute(func() (any, error) {
		req, err := c.newRequest(ctx, http.MethodPost, c.jobURL("buildWithParameters"), strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpDo(req)
		if err != nil {
			return nil, fmt.Errorf("triggering %s: %w", c.job, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			return nil, statusError(resp)
		}

		loc := resp.Header.Get("Location")
		return &QueuedBuild{QueueID: parseQueueID(loc), Location: loc}, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*QueuedBuild), nil
}

// JobStatus fetches the api/json of build id of the bulk deployment job.
func (c *JenkinsClient) JobStatus(ctx context.Context, id string) (*JobStatus, error) {
	res, err := c.execute(func() (any, error) {
		req, err := c.newRequest(ctx, http.MethodGet, c.jobURL(url.PathEscape(id), "api", "json"), nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpDo(req)
		if err != nil {
			return nil, fmt.Errorf("fetching job %s: %w", id, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, statusError(resp)
		}

		var st JobStatus
		if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
			return nil, fmt.Errorf("decoding job %s: %w", id, err)
		}
		return &st, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*JobStatus), nil
}

// ConsoleText returns the plain console log of build id, truncated to 4 MiB.
func (c *JenkinsClient) ConsoleText(ctx context.Context, id string) (string, error) {
	res, err := c.execute(func() (any, error) {
		req, err := c.newRequest(ctx, http.MethodGet, c.jobURL(url.PathEscape(id), "consoleText"), nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpDo(req)
		if err != nil {
			return nil, fmt.Errorf("fetching console of %s: %w", id, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, statusError(resp)
		}

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxConsoleBytes))
		if err != nil {
			return nil, fmt.Errorf("reading console of %s: %w", id, err)
		}
		return string(b), nil
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

// Probe checks that Jenkins is reachable and accepts the configured
// credentials.
func (c *JenkinsClient) Probe(ctx context.Context) orchestrator.ProbeResult {
	start := time.Now()

	_, err := c.cb.Execute(func() (any, error) {
		req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/api/json", nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpDo(req)
		if err != nil {
			return nil, fmt.Errorf("probe request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("probe returned HTTP %d", resp.StatusCode)
		}
		return nil, nil
	})

	return probeResult(jenkinsProbeName, start, err)
}

func (c *JenkinsClient) execute(fn func() (any, error)) (any, error) {
	res, err := c.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) {
		return nil, fmt.Errorf("jenkins: circuit open: %w", err)
	}
	return res, err
}

func (c *JenkinsClient) jobURL(parts ...string) string {
	return c.baseURL + "/job/" + url.PathEscape(c.job) + "/" + strings.Join(parts, "/")
}

func (c *JenkinsClient) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("building request %s %s: %w", method, u, err)
	}
	if c.user != "" || c.token != "" {
		req.SetBasicAuth(c.user, c.token)
	}
	return req, nil
}

// statusError maps a non-success Jenkins response onto a sentinel error.
func statusError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrJenkinsUnauthorized
	case http.StatusForbidden:
		return ErrJenkinsForbidden
	case http.StatusNotFound:
		return ErrJenkinsNotFound
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("jenkins returned HTTP %d: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("jenkins returned HTTP %d", resp.StatusCode)
}

func parseQueueID(location string) int64 {
	m := queueItemRE.FindStringSubmatch(location)
	if m == nil {
		return 0
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return id
}
