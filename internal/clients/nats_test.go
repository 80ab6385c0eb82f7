package clients

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swap-nul/statusoverview/internal/config"
)

// fakeJS is a test double for jsContext. It records calls and returns
// preconfigured responses.
type fakeJS struct {
	// streamInfoErr is keyed by stream name; a nil value means "stream exists".
	streamInfoErr map[string]error

	addStreamErr    error
	updateStreamErr error
	publishErr      error

	addStreamCalls    []string
	updateStreamCalls []string
	published         map[string][]byte
}

func (f *fakeJS) StreamInfo(stream string, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	err, ok := f.streamInfoErr[stream]
	if !ok || err == nil {
		return &nats.StreamInfo{}, nil
	}
	return nil, err
}

func (f *fakeJS) AddStream(cfg *nats.StreamConfig, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	f.addStreamCalls = append(f.addStreamCalls, cfg.Name)
	return &nats.StreamInfo{}, f.addStreamErr
}

func (f *fakeJS) UpdateStream(cfg *nats.StreamConfig, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	f.updateStreamCalls = append(f.updateStreamCalls, cfg.Name)
	return &nats.StreamInfo{}, f.updateStreamErr
}

func (f *fakeJS) Publish(subj string, data []byte, _ ...nats.PubOpt) (*nats.PubAck, error) {
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	if f.published == nil {
		f.published = make(map[string][]byte)
	}
	f.published[subj] = data
	return &nats.PubAck{Stream: DeploymentsStream.name}, nil
}

// makeNATSClient builds a NATSClient backed by the provided fakeJS.
func makeNATSClient(js jsContext, cb *gobreaker.CircuitBreaker) *NATSClient {
	return &NATSClient{
		url: "nats://localhost:4222",
		cb:  cb,
		newJS: func(_ string) (jsContext, func(), error) {
			return js, func() {}, nil
		},
	}
}

// makeNATSClientWithConnErr builds a NATSClient whose connection always fails.
func makeNATSClientWithConnErr(connErr error, cb *gobreaker.CircuitBreaker) *NATSClient {
	return &NATSClient{
		url: "nats://localhost:4222",
		cb:  cb,
		newJS: func(_ string) (jsContext, func(), error) {
			return nil, func() {}, connErr
		},
	}
}

func TestNewNATSClient(t *testing.T) {
	t.Parallel()

	client := NewNATSClient(config.NATSConfig{URL: "nats://example:4222"}, NewCircuitBreaker("nats-new"))
	assert.Equal(t, "nats://example:4222", client.url)
	assert.NotNil(t, client.newJS)
}

func TestProvisionStreams_CreatesMissingStream(t *testing.T) {
	t.Parallel()

	js := &fakeJS{
		streamInfoErr: map[string]error{
			DeploymentsStream.name: nats.ErrStreamNotFound,
		},
	}

	client := makeNATSClient(js, NewCircuitBreaker("provision-create"))
	require.NoError(t, client.ProvisionStreams(context.Background()))

	assert.Equal(t, []string{"STATUS_DEPLOYMENTS"}, js.addStreamCalls)
	assert.Empty(t, js.updateStreamCalls)
}

func TestProvisionStreams_UpdatesExistingStream(t *testing.T) {
	t.Parallel()

	js := &fakeJS{}

	client := makeNATSClient(js, NewCircuitBreaker("provision-update"))
	require.NoError(t, client.ProvisionStreams(context.Background()))

	assert.Empty(t, js.addStreamCalls)
	assert.Equal(t, []string{"STATUS_DEPLOYMENTS"}, js.updateStreamCalls)
}

func TestProvisionStreams_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		js      *fakeJS
		wantSub string
	}{
		{
			name: "add fails",
			js: &fakeJS{
				streamInfoErr: map[string]error{DeploymentsStream.name: nats.ErrStreamNotFound},
				addStreamErr:  errors.New("insufficient resources"),
			},
			wantSub: "creating stream STATUS_DEPLOYMENTS",
		},
		{
			name:    "update fails",
			js:      &fakeJS{updateStreamErr: errors.New("subjects overlap")},
			wantSub: "updating stream STATUS_DEPLOYMENTS",
		},
		{
			name: "info fails",
			js: &fakeJS{
				streamInfoErr: map[string]error{DeploymentsStream.name: errors.New("timeout")},
			},
			wantSub: "querying stream STATUS_DEPLOYMENTS",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := makeNATSClient(tc.js, NewCircuitBreaker("provision-"+tc.name))
			err := client.ProvisionStreams(context.Background())
			assert.ErrorContains(t, err, tc.wantSub)
		})
	}
}

func TestProvisionStreams_CircuitOpenAfterThreeFailures(t *testing.T) {
	t.Parallel()

	client := makeNATSClientWithConnErr(errors.New("connection refused"), NewCircuitBreaker("provision-cb-open"))

	for i := range 3 {
		err := client.ProvisionStreams(context.Background())
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "circuit open",
			"circuit should not be open yet on attempt %d", i+1)
	}

	err := client.ProvisionStreams(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
}

func TestNATSProbe_Success(t *testing.T) {
	t.Parallel()

	client := makeNATSClient(&fakeJS{}, NewCircuitBreaker("probe-success"))
	result := client.Probe(context.Background())

	assert.Equal(t, natsProbeName, result.Name)
	assert.True(t, result.OK)
	assert.Empty(t, result.Error)
}

func TestNATSProbe_StreamNotFoundIsOK(t *testing.T) {
	t.Parallel()

	js := &fakeJS{
		streamInfoErr: map[string]error{
			DeploymentsStream.name: nats.ErrStreamNotFound,
		},
	}

	client := makeNATSClient(js, NewCircuitBreaker("probe-stream-not-found"))
	result := client.Probe(context.Background())

	assert.True(t, result.OK)
	assert.Empty(t, result.Error)
}

func TestNATSProbe_ConnectionFailure(t *testing.T) {
	t.Parallel()

	client := makeNATSClientWithConnErr(errors.New("connection refused"), NewCircuitBreaker("probe-conn-fail"))
	result := client.Probe(context.Background())

	assert.Equal(t, natsProbeName, result.Name)
	assert.False(t, result.OK)
	assert.Contains(t, result.Error, "connection refused")
}

func TestNATSProbe_CircuitOpenAfterThreeFailures(t *testing.T) {
	t.Parallel()

	client := makeNATSClientWithConnErr(errors.New("connection refused"), NewCircuitBreaker("probe-cb-open"))

	for i := range 3 {
		result := client.Probe(context.Background())
		assert.False(t, result.OK, "probe %d should fail", i+1)
		assert.NotEqual(t, "circuit open", result.Error,
			"probe %d should not be circuit-open yet", i+1)
	}

	result := client.Probe(context.Background())
	assert.False(t, result.OK)
	assert.Equal(t, "circuit open", result.Error)
}

func TestPublish(t *testing.T) {
	t.Parallel()

	js := &fakeJS{}
	client := makeNATSClient(js, NewCircuitBreaker("publish-ok"))

	require.NoError(t, client.Publish(context.Background(), "deployments.bulk.triggered", []byte(`{"jobId":"x"}`)))
	assert.JSONEq(t, `{"jobId":"x"}`, string(js.published["deployments.bulk.triggered"]))
}

func TestPublish_Error(t *testing.T) {
	t.Parallel()

	js := &fakeJS{publishErr: nats.ErrNoStreamResponse}
	client := makeNATSClient(js, NewCircuitBreaker("publish-err"))

	err := client.Publish(context.Background(), "deployments.bulk.triggered", nil)
	assert.ErrorContains(t, err, "publishing deployments.bulk.triggered")
	assert.ErrorIs(t, err, nats.ErrNoStreamResponse)
}

func TestNATSClient_ConnectionSharedAndClosed(t *testing.T) {
	t.Parallel()

	connects, cleanups := 0, 0
	client := &NATSClient{
		cb: NewCircuitBreaker("nats-shared"),
		newJS: func(_ string) (jsContext, func(), error) {
			connects++
			return &fakeJS{}, func() { cleanups++ }, nil
		},
	}

	client.Probe(context.Background())
	require.NoError(t, client.Publish(context.Background(), "deployments.x", nil))
	assert.Equal(t, 1, connects)

	client.Close()
	assert.Equal(t, 1, cleanups)

	client.Close()
	assert.Equal(t, 1, cleanups)
}
