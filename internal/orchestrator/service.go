package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// ErrBootstrapInProgress is returned when RunBootstrap is called while a
// bootstrap is already running.
var ErrBootstrapInProgress = errors.New("bootstrap already in progress")

// Prober is satisfied by every dependency client.
type Prober interface {
	Probe(ctx context.Context) ProbeResult
}

// SchemaMigrator is satisfied by *clients.PostgresClient.
type SchemaMigrator interface {
	Prober
	Migrate(ctx context.Context) error
}

// StreamProvisioner is satisfied by *clients.NATSClient.
type StreamProvisioner interface {
	Prober
	ProvisionStreams(ctx context.Context) error
}

// Dependencies are the clients the orchestrator drives. A nil field is
// reported as a skipped phase and left out of deep health.
type Dependencies struct {
	Postgres SchemaMigrator
	NATS     StreamProvisioner
	Redis    Prober
	Jenkins  Prober
}

// phase is one named bootstrap step.
type phase struct {
	name string
	run  func(ctx context.Context) PhaseResult
}

// Orchestrator runs bootstrap phases and health probes.
type Orchestrator struct {
	phases []phase
	probes map[string]Prober

	bootstrapInProgress atomic.Bool
	lastResult          *BootstrapResult
	resultMu            sync.RWMutex
}

// New constructs an Orchestrator over deps.
func New(deps Dependencies) *Orchestrator {
	o := &Orchestrator{probes: make(map[string]Prober, 4)}

	if deps.Postgres != nil {
		o.addPhase("postgres", func(ctx context.Context) PhaseResult {
			return errToPhase("postgres", deps.Postgres.Migrate(ctx))
		})
		o.probes["postgres"] = deps.Postgres
	} else {
		o.addSkipped("postgres")
	}

	if deps.NATS != nil {
		o.addPhase("nats", func(ctx context.Context) PhaseResult {
			return errToPhase("nats", deps.NATS.ProvisionStreams(ctx))
		})
		o.probes["nats"] = deps.NATS
	} else {
		o.addSkipped("nats")
	}

	for name, p := range map[string]Prober{"redis": deps.Redis, "jenkins": deps.Jenkins} {
		if p == nil {
			o.addSkipped(name)
			continue
		}
		o.addPhase(name, func(ctx context.Context) PhaseResult {
			return probeToPhase(name, p.Probe(ctx))
		})
		o.probes[name] = p
	}

	return o
}

func (o *Orchestrator) addPhase(name string, run func(ctx context.Context) PhaseResult) {
	o.phases = append(o.phases, phase{name: name, run: run})
}

func (o *Orchestrator) addSkipped(name string) {
	o.addPhase(name, func(context.Context) PhaseResult {
		return PhaseResult{Name: name, Status: StatusSkipped}
	})
}

// RunBootstrap runs all phases concurrently. A phase failure is recorded in
// BootstrapResult but does not cancel the other phases. Returns
// ErrBootstrapInProgress if a bootstrap is already running.
func (o *Orchestrator) RunBootstrap(ctx context.Context) (*BootstrapResult, error) {
	if !o.bootstrapInProgress.CompareAndSwap(false, true) {
		return nil, ErrBootstrapInProgress
	}
	defer o.bootstrapInProgress.Store(false)

	result := &BootstrapResult{
		Status: StatusInProgress,
		Phases: make(map[string]PhaseResult, len(o.phases)),
	}

	ctx, span := otel.Tracer("status-overview").Start(ctx, "statusoverview.bootstrap")
	defer span.End()

	slog.InfoContext(ctx, "bootstrap started", "phases", len(o.phases))

	// A plain errgroup (no derived context): one failing phase must not
	// cancel its siblings.
	var g errgroup.Group
	for _, p := range o.phases {
		g.Go(func() error {
			pr := p.run(ctx)
			logPhase(ctx, pr)
			result.Lock()
			result.Phases[p.name] = pr
			result.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	result.Status = StatusOK
	for _, pr := range result.Phases {
		if pr.Status == StatusError {
			result.Status = StatusError
			break
		}
	}

	span.SetAttributes(attribute.String("bootstrap.status", result.Status))
	if result.Status == StatusError {
		span.SetStatus(codes.Error, "one or more bootstrap phases failed")
		slog.WarnContext(ctx, "bootstrap completed with errors", "status", result.Status)
	} else {
		span.SetStatus(codes.Ok, "")
		slog.InfoContext(ctx, "bootstrap completed", "status", result.Status)
	}

	o.resultMu.Lock()
	o.lastResult = result
	o.resultMu.Unlock()

	return result, nil
}

// RunDeepHealth probes every configured dependency concurrently and returns
// a map of dependency name to ProbeResult.
func (o *Orchestrator) RunDeepHealth(ctx context.Context) map[string]ProbeResult {
	results := make(map[string]ProbeResult, len(o.probes))
	var mu sync.Mutex
	var g errgroup.Group

	for name, p := range o.probes {
		g.Go(func() error {
			probe := p.Probe(ctx)
			mu.Lock()
			results[name] = probe
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// IsBootstrapInProgress returns true while a bootstrap run is active.
func (o *Orchestrator) IsBootstrapInProgress() bool {
	return o.bootstrapInProgress.Load()
}

// IsReady returns true if the last bootstrap completed with StatusOK.
func (o *Orchestrator) IsReady() bool {
	o.resultMu.RLock()
	defer o.resultMu.RUnlock()
	return o.lastResult != nil && o.lastResult.Status == StatusOK
}

// logPhase emits a trace-correlated log for a bootstrap phase result.
func logPhase(ctx context.Context, p PhaseResult) {
	switch p.Status {
	case StatusOK:
		slog.InfoContext(ctx, "bootstrap phase ok", "phase", p.Name)
	case StatusSkipped:
		slog.InfoContext(ctx, "bootstrap phase skipped", "phase", p.Name)
	default:
		slog.WarnContext(ctx, "bootstrap phase failed", "phase", p.Name, "error", p.Error)
	}
}

func probeToPhase(name string, p ProbeResult) PhaseResult {
	if p.OK {
		return PhaseResult{Name: name, Status: StatusOK}
	}
	return PhaseResult{Name: name, Status: StatusError, Error: p.Error}
}

func errToPhase(name string, err error) PhaseResult {
	if err == nil {
		return PhaseResult{Name: name, Status: StatusOK}
	}
	return PhaseResult{Name: name, Status: StatusError, Error: err.Error()}
}
