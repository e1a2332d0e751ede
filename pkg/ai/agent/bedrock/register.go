package bedrock

import (
	"context"

	"github.com/cloudposse/weave/pkg/ai/registry"
	"github.com/cloudposse/weave/pkg/schema"
)

func init() {
	registry.Register(ProviderName, func(ctx context.Context, profile *schema.ProviderConfig) (registry.Client, error) {
		return NewClient(ctx, profile)
	})
}
