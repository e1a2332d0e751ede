package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/registry"
	"github.com/cloudposse/weave/pkg/ai/tools"
	"github.com/cloudposse/weave/pkg/ai/types"
	"github.com/cloudposse/weave/pkg/schema"
	"github.com/cloudposse/weave/pkg/store"
)

type stubClient struct {
	calls  int
	answer string
	err    error
}

func (s *stubClient) Retrieve(_ context.Context, _ []types.Message, _ int, _ tools.Selection) (*types.RetrievalResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &types.RetrievalResult{Content: s.answer}, nil
}

func (s *stubClient) GetModel() string  { return "stub" }
func (s *stubClient) GetMaxTokens() int { return 1024 }

type failingCache struct{}

func (failingCache) Get(context.Context, string) (string, error) {
	return "", errUtils.ErrCacheFailed
}

func (failingCache) Set(context.Context, string, string, time.Duration) error {
	return errUtils.ErrCacheFailed
}

func providers() map[string]*schema.ProviderConfig {
	return map[string]*schema.ProviderConfig{
		"lore": {Type: schema.ProviderOpenAI, Model: "gpt-4o-mini"},
	}
}

func factoryFor(client *stubClient, created *int) registry.ClientFactory {
	return func(_ context.Context, _ *schema.ProviderConfig) (registry.Client, error) {
		*created++
		return client, nil
	}
}

var (
	query = []types.Message{{Role: types.RoleSystem, Content: "S"}, {Role: types.RoleUser, Content: "Q"}}
	sel   = tools.Selection{Tool: tools.Function{Name: "search"}, Choice: types.ToolChoiceRequired}
)

func TestRouter_Send(t *testing.T) {
	client := &stubClient{answer: "The sword is cursed."}
	created := 0
	r := NewRouter(providers(), WithClientFactory(factoryFor(client, &created)))

	for range 2 {
		result, err := r.Send(context.Background(), "lore", query, 512, sel)
		require.NoError(t, err)
		assert.Equal(t, "The sword is cursed.", result.Content)
	}

	assert.Equal(t, 1, created, "client is reused")
	assert.Equal(t, 2, client.calls)
}

func TestRouter_UnknownTarget(t *testing.T) {
	r := NewRouter(providers())

	_, err := r.Send(context.Background(), "missing", query, 512, sel)
	assert.ErrorIs(t, err, errUtils.ErrProviderNotConfigured)
}

func TestRouter_ClientError(t *testing.T) {
	expected := errors.New("upstream down")
	client := &stubClient{err: expected}
	created := 0
	r := NewRouter(providers(), WithClientFactory(factoryFor(client, &created)))

	_, err := r.Send(context.Background(), "lore", query, 512, sel)
	assert.ErrorIs(t, err, expected)
}

func TestRouter_Cache(t *testing.T) {
	client := &stubClient{answer: "cached answer"}
	created := 0
	cache := store.NewInMemoryStore()
	r := NewRouter(providers(), WithClientFactory(factoryFor(client, &created)), WithCache(cache, time.Minute))

	for range 3 {
		result, err := r.Send(context.Background(), "lore", query, 512, sel)
		require.NoError(t, err)
		assert.Equal(t, "cached answer", result.Content)
	}
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, 1, cache.Len())

	// A different budget is a different request.
	_, err := r.Send(context.Background(), "lore", query, 256, sel)
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
}

func TestRouter_CacheSkipsEmptyAnswers(t *testing.T) {
	client := &stubClient{answer: "  "}
	created := 0
	cache := store.NewInMemoryStore()
	r := NewRouter(providers(), WithClientFactory(factoryFor(client, &created)), WithCache(cache, time.Minute))

	_, err := r.Send(context.Background(), "lore", query, 512, sel)
	require.NoError(t, err)
	assert.Equal(t, 0, cache.Len())
}

func TestRouter_CacheFailuresAreNotFatal(t *testing.T) {
	client := &stubClient{answer: "fresh"}
	created := 0
	r := NewRouter(providers(), WithClientFactory(factoryFor(client, &created)), WithCache(failingCache{}, time.Minute))

	result, err := r.Send(context.Background(), "lore", query, 512, sel)
	require.NoError(t, err)
	assert.Equal(t, "fresh", result.Content)
	assert.Equal(t, 1, client.calls)
}

type flakyClient struct {
	stubClient
	failures int
}

func (f *flakyClient) Retrieve(ctx context.Context, messages []types.Message, maxTokens int, sel tools.Selection) (*types.RetrievalResult, error) {
	if f.failures > 0 {
		f.failures--
		f.calls++
		return nil, errors.New("503 service unavailable")
	}
	return f.stubClient.Retrieve(ctx, messages, maxTokens, sel)
}

func TestRouter_Retry(t *testing.T) {
	settings := schema.RetrySettings{
		MaxAttempts:     3,
		BackoffStrategy: schema.BackoffConstant,
		InitialDelay:    time.Millisecond,
	}

	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   bool
	}{
		{name: "recovers after transient failures", failures: 2, wantCalls: 3},
		{name: "gives up after max attempts", failures: 5, wantCalls: 3, wantErr: true},
		{name: "missing key is not retried", err: errUtils.ErrAPIKeyNotFound, wantCalls: 1, wantErr: true},
		{name: "malformed parameters are not retried", err: errUtils.ErrMalformedToolParameters, wantCalls: 1, wantErr: true},
		{name: "deadline is not retried", err: context.DeadlineExceeded, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &flakyClient{stubClient: stubClient{answer: "ok", err: tt.err}, failures: tt.failures}
			r := NewRouter(providers(),
				WithRetry(settings),
				WithClientFactory(func(context.Context, *schema.ProviderConfig) (registry.Client, error) {
					return client, nil
				}),
			)

			result, err := r.Send(context.Background(), "lore", query, 512, sel)
			assert.Equal(t, tt.wantCalls, client.calls)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", result.Content)
		})
	}
}
