// Package catalog holds the deployment catalog model shown by the status
// overview dashboard: applications grouped by project, their per-environment
// deployment details, and the CI builds that produced them. Everything here is
// pure data manipulation; storage lives in internal/clients.
package catalog

import (
	"encoding/json"
	"fmt"
)

// DeployDetails describes what is currently running for one app in one
// environment.
type DeployDetails struct {
	Tag             string `json:"tag"`
	Branch          string `json:"branch"`
	Status          string `json:"status"`
	Cluster         string `json:"cluster"`
	CommitBy        string `json:"commitby"`
	CommitID        string `json:"commit_id"`
	Namespace       string `json:"namespace"`
	PreviousTag     string `json:"previous_tag"`
	CommitMessage   string `json:"commitmessage"`
	ImageCreatedAt  string `json:"image_created_at"`
	ImageDeployedAt string `json:"image_deployed_at"`
	ImageDeployedBy string `json:"image_deployed_by"`
	LatestBuildTag  string `json:"latest_build_tag"`
}

// Build is a CI image build record.
type Build struct {
	BuildID       int64  `json:"build_id"`
	AppID         int64  `json:"app_id"`
	Image         string `json:"image"`
	Tag           string `json:"tag"`
	GitSHA        string `json:"git_sha"`
	DockerSHA     string `json:"docker_sha"`
	Branch        string `json:"branch"`
	CreatedAt     string `json:"created_at"`
	CommitMessage string `json:"commitmessage"`
	CommitBy      string `json:"commitby"`
}

// App is one application of a project together with its deployment in every
// environment it runs in. Environments without a deployment are absent from
// Deployments.
type App struct {
	ID          int64
	Name        string
	Parent      string
	Repo        string
	Deployments map[string]*DeployDetails
}

// Deployment returns the details for env, or nil.
func (a *App) Deployment(env string) *DeployDetails {
	if a.Deployments == nil {
		return nil
	}
	return a.Deployments[env]
}

var reservedKeys = map[string]bool{
	"id":       true,
	"app_name": true,
	"parent":   true,
	"app_repo": true,
}

// MarshalJSON flattens environments into top-level keys, the row shape the
// dashboard tables are built on: {"app_name":"x","parent":"p","qa":{...}}.
func (a App) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(a.Deployments)+4)
	for env, d := range a.Deployments {
		if reservedKeys[env] {
			return nil, fmt.Errorf("environment name %q collides with an app attribute", env)
		}
		m[env] = d
	}
	m["id"] = a.ID
	m["app_name"] = a.Name
	m["parent"] = a.Parent
	if a.Repo != "" {
		m["app_repo"] = a.Repo
	}
	return json.Marshal(m)
}

// UnmarshalJSON is the inverse of MarshalJSON. Every non-reserved key is
// decoded as an environment; null values are skipped.
func (a *App) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := App{Deployments: make(map[string]*DeployDetails)}
	for key, val := range raw {
		var err error
		switch key {
		case "id":
			err = json.Unmarshal(val, &out.ID)
		case "app_name":
			err = json.Unmarshal(val, &out.Name)
		case "parent":
			err = json.Unmarshal(val, &out.Parent)
		case "app_repo":
			err = json.Unmarshal(val, &out.Repo)
		default:
			var d *DeployDetails
			err = json.Unmarshal(val, &d)
			if d != nil {
				out.Deployments[key] = d
			}
		}
		if err != nil {
			return fmt.Errorf("decoding %q: %w", key, err)
		}
	}

	*a = out
	return nil
}
