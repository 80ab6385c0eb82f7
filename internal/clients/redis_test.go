package clients

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swap-nul/statusoverview/internal/config"
)

// mockRedis is an in-memory test double for redisConn.
type mockRedis struct {
	pingVal string
	pingErr error
	getErr  error
	setErr  error

	store  map[string][]byte
	ttls   map[string]time.Duration
	closed bool
}

func newMockRedis() *mockRedis {
	return &mockRedis{
		pingVal: "PONG",
		store:   make(map[string][]byte),
		ttls:    make(map[string]time.Duration),
	}
}

func (m *mockRedis) PingResult(_ context.Context) (string, error) {
	return m.pingVal, m.pingErr
}

func (m *mockRedis) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	b, ok := m.store[key]
	return b, ok, nil
}

func (m *mockRedis) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.store[key] = val
	m.ttls[key] = ttl
	return nil
}

func (m *mockRedis) Close() error {
	m.closed = true
	return nil
}

func TestRedisProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		pingVal    string
		pingErr    error
		wantOK     bool
		wantErrSub string
	}{
		{
			name:    "success, PING returns PONG",
			pingVal: "PONG",
			wantOK:  true,
		},
		{
			name:       "failure, PING returns error",
			pingErr:    errors.New("connection refused"),
			wantErrSub: "connection refused",
		},
		{
			name:       "failure, PING returns unexpected value",
			pingVal:    "WHOOPS",
			wantErrSub: "unexpected PING response",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mock := newMockRedis()
			mock.pingVal, mock.pingErr = tc.pingVal, tc.pingErr
			client := &RedisClient{cb: NewCircuitBreaker("redis-test-" + tc.name), conn: mock}

			result := client.Probe(context.Background())

			assert.Equal(t, redisProbeName, result.Name)
			assert.Equal(t, tc.wantOK, result.OK)
			if tc.wantErrSub != "" {
				assert.Contains(t, result.Error, tc.wantErrSub)
			}
			if tc.wantOK {
				assert.Empty(t, result.Error)
			}
		})
	}
}

func TestRedisProbeCircuitBreaker_OpensAfterThreeFailures(t *testing.T) {
	t.Parallel()

	mock := newMockRedis()
	mock.pingErr = errors.New("connection refused")
	client := &RedisClient{cb: NewCircuitBreaker("redis-cb-open-test"), conn: mock}

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

func TestRedisJSON_RoundTripUsesPrefixAndTTL(t *testing.T) {
	t.Parallel()

	mock := newMockRedis()
	client := &RedisClient{cb: NewCircuitBreaker("redis-json"), conn: mock}
	ctx := context.Background()

	type entry struct {
		Name string `json:"name"`
	}

	require.NoError(t, client.SetJSON(ctx, "apps:alpha", []entry{{Name: "loan-api"}}, time.Minute))
	assert.Contains(t, mock.store, "statusoverview:apps:alpha")
	assert.Equal(t, time.Minute, mock.ttls["statusoverview:apps:alpha"])

	var got []entry
	hit, err := client.GetJSON(ctx, "apps:alpha", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []entry{{Name: "loan-api"}}, got)
}

func TestRedisGetJSON_Miss(t *testing.T) {
	t.Parallel()

	client := &RedisClient{cb: NewCircuitBreaker("redis-miss"), conn: newMockRedis()}

	var dst map[string]string
	hit, err := client.GetJSON(context.Background(), "absent", &dst)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, dst)
}

func TestRedisGetJSON_CorruptValue(t *testing.T) {
	t.Parallel()

	mock := newMockRedis()
	mock.store["statusoverview:bad"] = []byte("{not json")
	client := &RedisClient{cb: NewCircuitBreaker("redis-corrupt"), conn: mock}

	var dst map[string]string
	hit, err := client.GetJSON(context.Background(), "bad", &dst)
	assert.False(t, hit)
	assert.ErrorContains(t, err, "decoding cached bad")
}

func TestRedisSetJSON_Error(t *testing.T) {
	t.Parallel()

	mock := newMockRedis()
	mock.setErr = errors.New("READONLY")
	client := &RedisClient{cb: NewCircuitBreaker("redis-set-err"), conn: mock}

	err := client.SetJSON(context.Background(), "k", 1, time.Second)
	assert.ErrorContains(t, err, "READONLY")
}

func TestRedisClose(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NewRedisClient(config.RedisConfig{}, NewCircuitBreaker("redis-close-nil")).Close())

	mock := newMockRedis()
	client := &RedisClient{cb: NewCircuitBreaker("redis-close"), conn: mock}
	require.NoError(t, client.Close())
	assert.True(t, mock.closed)
}

func TestRedisClose_ConcurrentWithLazyInit(t *testing.T) {
	t.Parallel()

	client := NewRedisClient(config.RedisConfig{Host: "127.0.0.1", Port: 6379}, NewCircuitBreaker("redis-close-race"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NotNil(t, client.client())
		}()
		go func() {
			defer wg.Done()
			_ = client.Close()
		}()
	}
	wg.Wait()

	require.NoError(t, client.Close())
	assert.Nil(t, client.conn)
}
