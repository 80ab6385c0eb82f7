package overview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Swap-nul/statusoverview/internal/clients"
)

// Application is one app selected for promotion.
type Application struct {
	AppName string `json:"appName"`
	Version string `json:"version"`
	Branch  string `json:"branch"`
}

// BulkDeployment asks Jenkins to promote Applications of ProjectName from
// FromEnvironment to ToEnvironment.
type BulkDeployment struct {
	ProjectName     string        `json:"projectName"`
	FromEnvironment string        `json:"fromEnvironment"`
	ToEnvironment   string        `json:"toEnvironment"`
	Applications    []Application `json:"applications"`
}

// JobResponse acknowledges a queued bulk deployment.
type JobResponse struct {
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
	Message string `json:"message"`
	QueueID int64  `json:"queueId,omitempty"`
}

// BulkDeployEvent is published on BulkTriggeredSubject after Jenkins accepted
// a bulk deployment.
type BulkDeployEvent struct {
	JobID        string        `json:"jobId"`
	QueueID      int64         `json:"queueId,omitempty"`
	Project      string        `json:"project"`
	From         string        `json:"from"`
	To           string        `json:"to"`
	Applications []Application `json:"applications"`
	TriggeredBy  string        `json:"triggeredBy"`
	TriggeredAt  time.Time     `json:"triggeredAt"`
}

// validateDeployment checks req before anything is sent to Jenkins.
func (s *Service) validateDeployment(req BulkDeployment) error {
	if req.ProjectName == "" {
		return fmt.Errorf("projectName is required: %w", ErrInvalid)
	}
	if err := s.checkEnv(req.FromEnvironment); err != nil {
		return fmt.Errorf("fromEnvironment: %w", err)
	}
	if err := s.checkEnv(req.ToEnvironment); err != nil {
		return fmt.Errorf("toEnvironment: %w", err)
	}
	if req.FromEnvironment == req.ToEnvironment {
		return fmt.Errorf("source and target environment are both %q: %w", req.FromEnvironment, ErrInvalid)
	}
	if len(req.Applications) == 0 {
		return fmt.Errorf("at least one application is required: %w", ErrInvalid)
	}
	for i, a := range req.Applications {
		if a.AppName == "" {
			return fmt.Errorf("applications[%d].appName is required: %w", i, ErrInvalid)
		}
	}
	return nil
}

// TriggerBulkDeploy queues the bulk deployment job for req on behalf of user
// and announces it on the deployments stream. A failed announcement is logged
// and does not fail the request.
func (s *Service) TriggerBulkDeploy(ctx context.Context, req BulkDeployment, user string) (_ *JobResponse, err error) {
	ctx, span := otel.Tracer("status-overview").Start(ctx, "statusoverview.bulk_deploy")
	span.SetAttributes(
		attribute.String("project", req.ProjectName),
		attribute.String("from", req.FromEnvironment),
		attribute.String("to", req.ToEnvironment),
		attribute.Int("apps", len(req.Applications)),
	)
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err = s.validateDeployment(req); err != nil {
		return nil, err
	}
	if user == "" {
		user = defaultTriggerUser
	}

	appsJSON, err := json.Marshal(req.Applications)
	if err != nil {
		return nil, fmt.Errorf("encoding applications: %w", err)
	}

	queued, err := s.ci.TriggerBulkDeploy(ctx, clients.BulkDeployParams{
		ProjectName:      req.ProjectName,
		FromEnvironment:  req.FromEnvironment,
		ToEnvironment:    req.ToEnvironment,
		ApplicationsJSON: string(appsJSON),
		TriggerUser:      user,
	})
	if err != nil {
		return nil, fmt.Errorf("triggering bulk deployment: %w", err)
	}

	resp := &JobResponse{
		JobID:   s.newJobID(),
		Status:  "TRIGGERED",
		Message: fmt.Sprintf("Bulk deployment job successfully triggered for %d applications", len(req.Applications)),
		QueueID: queued.QueueID,
	}

	slog.InfoContext(ctx, "bulk deployment triggered",
		"job_id", resp.JobID, "queue_id", resp.QueueID, "project", req.ProjectName,
		"from", req.FromEnvironment, "to", req.ToEnvironment,
		"apps", len(req.Applications), "user", user)

	s.publish(ctx, BulkDeployEvent{
		JobID:        resp.JobID,
		QueueID:      resp.QueueID,
		Project:      req.ProjectName,
		From:         req.FromEnvironment,
		To:           req.ToEnvironment,
		Applications: req.Applications,
		TriggeredBy:  user,
		TriggeredAt:  s.now().UTC(),
	})

	return resp, nil
}

func (s *Service) publish(ctx context.Context, ev BulkDeployEvent) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		slog.WarnContext(ctx, "encoding deployment event failed", "job_id", ev.JobID, "error", err)
		return
	}
	if err := s.events.Publish(ctx, BulkTriggeredSubject, data); err != nil {
		slog.WarnContext(ctx, "publishing deployment event failed", "job_id", ev.JobID, "error", err)
	}
}

// JobStatus returns the Jenkins status of build id of the bulk deployment job.
func (s *Service) JobStatus(ctx context.Context, id string) (*clients.JobStatus, error) {
	if err := checkBuildRef(id); err != nil {
		return nil, err
	}
	st, err := s.ci.JobStatus(ctx, id)
	if errors.Is(err, clients.ErrJenkinsNotFound) {
		return nil, fmt.Errorf("build %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching status of build %s: %w", id, err)
	}
	return st, nil
}

// JobConsole returns the console log of build id.
func (s *Service) JobConsole(ctx context.Context, id string) (string, error) {
	if err := checkBuildRef(id); err != nil {
		return "", err
	}
	out, err := s.ci.ConsoleText(ctx, id)
	if errors.Is(err, clients.ErrJenkinsNotFound) {
		return "", fmt.Errorf("build %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("fetching console of build %s: %w", id, err)
	}
	return out, nil
}
