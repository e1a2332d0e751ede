package openai

import (
	"context"

	"github.com/cloudposse/weave/pkg/ai/registry"
	"github.com/cloudposse/weave/pkg/schema"
)

func init() {
	factory := func(_ context.Context, profile *schema.ProviderConfig) (registry.Client, error) {
		return NewClient(profile)
	}
	registry.Register(ProviderName, factory)
	registry.Register(CustomProviderName, factory)
}
