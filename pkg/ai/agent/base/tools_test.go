package base

import (
	"testing"

	"github.com/stretchr/testify/assert"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/tools"
)

func TestSchemaParts(t *testing.T) {
	params := map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"query": map[string]any{"type": "string"}},
		"required":             []any{"query", 3},
		"additionalProperties": false,
	}

	properties, required, extra := SchemaParts(params)

	assert.Equal(t, map[string]any{"query": map[string]any{"type": "string"}}, properties)
	assert.Equal(t, []string{"query"}, required)
	assert.Equal(t, map[string]any{"additionalProperties": false}, extra)
}

func TestSchemaParts_Empty(t *testing.T) {
	properties, required, extra := SchemaParts(map[string]any{"type": "object"})

	assert.Empty(t, properties)
	assert.Nil(t, required)
	assert.Nil(t, extra)
}

func TestUnsupportedTool(t *testing.T) {
	err := UnsupportedTool("anthropic", tools.Retrieval{Name: "search"})

	assert.ErrorIs(t, err, errUtils.ErrUnsupportedProvider)
}
