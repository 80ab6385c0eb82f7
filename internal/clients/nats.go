package clients

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker"

	"github.com/Swap-nul/statusoverview/internal/config"
	"github.com/Swap-nul/statusoverview/internal/orchestrator"
)

const natsProbeName = "nats"

// streamSpec describes a single JetStream stream to provision.
type streamSpec struct {
	name      string
	subjects  []string
	retention nats.RetentionPolicy
	maxAge    time.Duration
}

// DeploymentsStream carries deployment events published by the service.
var DeploymentsStream = streamSpec{
	name:      "STATUS_DEPLOYMENTS",
	subjects:  []string{"deployments.>"},
	retention: nats.LimitsPolicy,
	maxAge:    30 * 24 * time.Hour,
}

// jsContext is the subset of nats.JetStreamContext used here. Defining an
// interface allows test doubles to be injected without a live NATS server.
type jsContext interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	UpdateStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSClient provisions the deployments stream and publishes deployment
// events to it.
type NATSClient struct {
	url   string
	cb    *gobreaker.CircuitBreaker
	newJS func(url string) (jsContext, func(), error)

	mu      sync.Mutex
	js      jsContext
	cleanup func()
}

// NewNATSClient constructs a NATSClient. The connection is opened lazily and
// then shared by every call.
func NewNATSClient(cfg config.NATSConfig, cb *gobreaker.CircuitBreaker) *NATSClient {
	return &NATSClient{
		url:   cfg.URL,
		cb:    cb,
		newJS: realNewJS,
	}
}

// ProvisionStreams creates or updates the deployments stream. It is
// idempotent: an existing stream is updated rather than errored.
func (c *NATSClient) ProvisionStreams(ctx context.Context) error {
	_, err := c.cb.Execute(func() (any, error) {
		js, err := c.jetStream()
		if err != nil {
			return nil, err
		}
		return nil, provisionStream(js, DeploymentsStream)
	})

	if errors.Is(err, gobreaker.ErrOpenState) {
		return fmt.Errorf("circuit open: %w", err)
	}
	return err
}

// Probe verifies NATS connectivity. A missing stream is not a failure; it only
// means bootstrap has not run yet.
func (c *NATSClient) Probe(ctx context.Context) orchestrator.ProbeResult {
	start := time.Now()

	_, err := c.cb.Execute(func() (any, error) {
		js, err := c.jetStream()
		if err != nil {
			return nil, err
		}

		_, infoErr := js.StreamInfo(DeploymentsStream.name, nats.Context(ctx))
		if infoErr != nil && !errors.Is(infoErr, nats.ErrStreamNotFound) {
			return nil, fmt.Errorf("stream info: %w", infoErr)
		}
		return nil, nil
	})

	return probeResult(natsProbeName, start, err)
}

// Publish sends data on subject and waits for the JetStream ack.
func (c *NATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := c.cb.Execute(func() (any, error) {
		js, err := c.jetStream()
		if err != nil {
			return nil, err
		}
		if _, err := js.Publish(subject, data, nats.Context(ctx)); err != nil {
			return nil, fmt.Errorf("publishing %s: %w", subject, err)
		}
		return nil, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) {
		return fmt.Errorf("circuit open: %w", err)
	}
	return err
}

// Close drains the shared connection if one was opened.
func (c *NATSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cleanup != nil {
		c.cleanup()
	}
	c.js, c.cleanup = nil, nil
}

func (c *NATSClient) jetStream() (jsContext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.js != nil {
		return c.js, nil
	}

	js, cleanup, err := c.newJS(c.url)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	c.js, c.cleanup = js, cleanup
	return js, nil
}

// provisionStream creates the stream if it does not exist, or updates it if it
// does. nats.ErrStreamNotFound signals "create"; any other error is returned.
func provisionStream(js jsContext, spec streamSpec) error {
	cfg := &nats.StreamConfig{
		Name:      spec.name,
		Subjects:  spec.subjects,
		Retention: spec.retention,
		MaxAge:    spec.maxAge,
	}

	_, err := js.StreamInfo(spec.name)
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		if _, addErr := js.AddStream(cfg); addErr != nil {
			return fmt.Errorf("creating stream %s: %w", spec.name, addErr)
		}
	case err != nil:
		return fmt.Errorf("querying stream %s: %w", spec.name, err)
	default:
		if _, updErr := js.UpdateStream(cfg); updErr != nil {
			return fmt.Errorf("updating stream %s: %w", spec.name, updErr)
		}
	}
	return nil
}

// realNewJS opens a real NATS connection and returns a JetStreamContext plus a
// cleanup function that drains the connection.
func realNewJS(url string) (jsContext, func(), error) {
	nc, err := nats.Connect(url, nats.Name("status-overview"))
	if err != nil {
		return nil, func() {}, fmt.Errorf("nats connect %s: %w", url, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, func() {}, fmt.Errorf("nats jetstream context: %w", err)
	}

	return js, func() { nc.Drain() }, nil
}
