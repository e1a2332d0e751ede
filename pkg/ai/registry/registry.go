// Package registry maps provider types to the factories that build their retrieval clients.
// Provider packages register themselves from init.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/tools"
	"github.com/cloudposse/weave/pkg/ai/types"
	"github.com/cloudposse/weave/pkg/schema"
)

// Client sends one retrieval request to a provider.
type Client interface {
	// Retrieve sends messages with a single granted tool and returns the text answer.
	Retrieve(ctx context.Context, messages []types.Message, maxTokens int, sel tools.Selection) (*types.RetrievalResult, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetMaxTokens returns the configured max tokens.
	GetMaxTokens() int
}

// ClientFactory creates a client for one configured target.
type ClientFactory func(ctx context.Context, cfg *schema.ProviderConfig) (Client, error)

type registry struct {
	mu        sync.RWMutex
	providers map[string]ClientFactory
}

var globalRegistry = &registry{
	providers: make(map[string]ClientFactory),
}

// Register adds a factory for a provider type, replacing any previous one.
func Register(name string, factory ClientFactory) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.providers[name] = factory
}

// GetFactory returns the factory registered for name.
func GetFactory(name string) (ClientFactory, error) {
	globalRegistry.mu.RLock()
	factory, ok := globalRegistry.providers[name]
	globalRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: `%s` (available: %s)", errUtils.ErrUnsupportedProvider, name, ListProviders())
	}
	return factory, nil
}

// NewClient builds a client for a configured target.
func NewClient(ctx context.Context, cfg *schema.ProviderConfig) (Client, error) {
	if cfg == nil {
		return nil, errUtils.ErrProviderNotConfigured
	}
	factory, err := GetFactory(string(cfg.Type))
	if err != nil {
		return nil, err
	}
	return factory(ctx, cfg)
}

// ListProviders returns the registered provider names, sorted and comma-separated.
func ListProviders() string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	names := make([]string, 0, len(globalRegistry.providers))
	for name := range globalRegistry.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// IsProviderRegistered reports whether a factory exists for name. Names are case-sensitive.
func IsProviderRegistered(name string) bool {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	_, ok := globalRegistry.providers[name]
	return ok
}

// ProviderCount returns the number of registered providers.
func ProviderCount() int {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	return len(globalRegistry.providers)
}
