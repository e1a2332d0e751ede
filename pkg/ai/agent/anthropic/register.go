package anthropic

import (
	"context"

	"github.com/cloudposse/weave/pkg/ai/registry"
	"github.com/cloudposse/weave/pkg/schema"
)

func init() {
	registry.Register(ProviderName, func(_ context.Context, profile *schema.ProviderConfig) (registry.Client, error) {
		return NewClient(profile)
	})
}
