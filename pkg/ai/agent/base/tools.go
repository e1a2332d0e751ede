package base

import (
	"fmt"

	"github.com/samber/lo"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/tools"
)

// SchemaParts splits a JSON Schema object into the pieces SDKs model as separate
// fields: the properties, the required names, and every other keyword.
func SchemaParts(parameters map[string]any) (properties map[string]any, required []string, extra map[string]any) {
	properties = map[string]any{}
	if p, ok := parameters["properties"].(map[string]any); ok {
		properties = p
	}

	switch r := parameters["required"].(type) {
	case []string:
		required = r
	case []any:
		for _, name := range r {
			if s, ok := name.(string); ok {
				required = append(required, s)
			}
		}
	}

	extra = lo.OmitByKeys(parameters, []string{"type", "properties", "required"})
	if len(extra) == 0 {
		extra = nil
	}
	return properties, required, extra
}

// UnsupportedTool reports a descriptor variant the provider cannot send.
func UnsupportedTool(provider string, d tools.Descriptor) error {
	return errUtils.Build(errUtils.ErrUnsupportedProvider).
		WithExplanation(fmt.Sprintf("%s cannot send a %T tool", provider, d)).
		WithContext("provider", provider).
		Err()
}
