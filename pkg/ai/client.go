// Package ai routes retrieval requests to the configured provider targets.
package ai

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/registry"
	"github.com/cloudposse/weave/pkg/ai/tools"
	"github.com/cloudposse/weave/pkg/ai/types"
	log "github.com/cloudposse/weave/pkg/logger"
	"github.com/cloudposse/weave/pkg/retry"
	"github.com/cloudposse/weave/pkg/schema"
	"github.com/cloudposse/weave/pkg/store"
)

// Sender performs one retrieval round trip against a named target.
type Sender interface {
	Send(ctx context.Context, target string, messages []types.Message, maxTokens int, sel tools.Selection) (*types.RetrievalResult, error)
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithCache stores non-empty retrieval answers for ttl.
func WithCache(cache store.Cache, ttl time.Duration) RouterOption {
	return func(r *Router) {
		r.cache = cache
		r.ttl = ttl
	}
}

// WithClientFactory replaces the provider registry lookup.
func WithClientFactory(factory registry.ClientFactory) RouterOption {
	return func(r *Router) {
		r.newClient = factory
	}
}

// WithRetry re-sends failed requests according to settings. Configuration errors and
// cancellations are never retried.
func WithRetry(settings schema.RetrySettings) RouterOption {
	return func(r *Router) {
		r.retry = retry.New(settings)
	}
}

// Router is a Sender backed by the provider registry. Clients are created on first
// use and reused for later requests to the same target.
type Router struct {
	providers map[string]*schema.ProviderConfig
	newClient registry.ClientFactory
	cache     store.Cache
	ttl       time.Duration
	retry     *retry.Executor

	mu      sync.Mutex
	clients map[string]registry.Client
}

// Ensure Router implements the Sender interface.
var _ Sender = (*Router)(nil)

// NewRouter creates a router over the configured provider profiles.
func NewRouter(providers map[string]*schema.ProviderConfig, opts ...RouterOption) *Router {
	r := &Router{
		providers: providers,
		newClient: registry.NewClient,
		clients:   make(map[string]registry.Client),
		retry:     retry.New(retry.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Send implements Sender.
func (r *Router) Send(ctx context.Context, target string, messages []types.Message, maxTokens int, sel tools.Selection) (*types.RetrievalResult, error) {
	key := r.cacheKey(target, messages, maxTokens, sel)
	if key != "" {
		value, err := r.cache.Get(ctx, key)
		switch {
		case err == nil:
			log.Debug("Retrieval cache hit", "target", target)
			return &types.RetrievalResult{Content: value}, nil
		case !errors.Is(err, errUtils.ErrCacheMiss):
			log.Warn("Retrieval cache read failed", "target", target, "error", err)
		}
	}

	client, err := r.client(ctx, target)
	if err != nil {
		return nil, err
	}

	log.Debug("Sending retrieval request", "target", target, "model", client.GetModel(), "messages", len(messages), "tool", sel.ToolName())

	var result *types.RetrievalResult
	err = r.retry.ExecuteWithPredicate(ctx, func() error {
		var sendErr error
		result, sendErr = client.Retrieve(ctx, messages, maxTokens, sel)
		if sendErr != nil {
			log.Debug("Retrieval attempt failed", "target", target, "error", sendErr)
		}
		return sendErr
	}, isRetryable)
	if err != nil {
		return nil, err
	}

	if key != "" && !result.IsEmpty() {
		if err := r.cache.Set(ctx, key, result.Content, r.ttl); err != nil {
			log.Warn("Retrieval cache write failed", "target", target, "error", err)
		}
	}
	return result, nil
}

func (r *Router) client(ctx context.Context, target string) (registry.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[target]; ok {
		return c, nil
	}

	profile, ok := r.providers[target]
	if !ok || profile == nil {
		return nil, errUtils.Build(errUtils.ErrProviderNotConfigured).
			WithContext("target", target).
			WithHintf("add `%s` under settings.providers", target).
			Err()
	}

	c, err := r.newClient(ctx, profile)
	if err != nil {
		return nil, err
	}
	r.clients[target] = c
	return c, nil
}

// isRetryable rejects errors that another attempt cannot fix.
func isRetryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, errUtils.ErrProviderNotConfigured),
		errors.Is(err, errUtils.ErrAPIKeyNotFound),
		errors.Is(err, errUtils.ErrUnsupportedProvider),
		errors.Is(err, errUtils.ErrMalformedToolParameters):
		return false
	}
	return true
}

// cacheKey returns "" when caching is off.
func (r *Router) cacheKey(target string, messages []types.Message, maxTokens int, sel tools.Selection) string {
	if r.cache == nil {
		return ""
	}
	body, err := json.Marshal(messages)
	if err != nil {
		return ""
	}
	return store.Key(target, string(body), sel.ToolName(), string(sel.Choice), strconv.Itoa(maxTokens))
}
