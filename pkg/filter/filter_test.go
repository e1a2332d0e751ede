package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/types"
)

func TestNewEnv(t *testing.T) {
	env := NewEnv("chat-1", "Seraphina", "Ada", []types.Message{
		{Role: types.RoleSystem, Content: "S"},
		{Role: types.RoleUser, Content: "Tell me about the sword."},
	}, true)

	assert.Equal(t, Env{
		ChatID:        "chat-1",
		CharacterName: "Seraphina",
		UserName:      "Ada",
		MessageCount:  2,
		LastRole:      "user",
		LastMessage:   "Tell me about the sword.",
		DryRun:        true,
	}, env)
}

func TestSet_Match(t *testing.T) {
	set, err := Compile(map[string]string{
		"seraphina":  `characterName == "Seraphina"`,
		"long":       `messageCount > 3`,
		"questions":  `lastRole == "user" && lastMessage endsWith "?"`,
		"not-dryrun": `!dryRun`,
	})
	require.NoError(t, err)

	env := Env{CharacterName: "Seraphina", MessageCount: 2, LastRole: "user", LastMessage: "Where?"}

	tests := []struct {
		id       string
		expected bool
	}{
		{"seraphina", true},
		{"long", false},
		{"questions", true},
		{"not-dryrun", true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.True(t, set.Has(tt.id))
			got, err := set.Match(tt.id, env)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"syntax error", `characterName ==`},
		{"not boolean", `messageCount + 1`},
		{"unknown variable", `mood == "happy"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(map[string]string{"f": tt.expr})
			assert.ErrorIs(t, err, errUtils.ErrInvalidFilterExpression)
			assert.Equal(t, errUtils.ExitCodeUsage, errUtils.GetExitCode(err))
		})
	}
}

func TestSet_MatchUnknown(t *testing.T) {
	set, err := Compile(nil)
	require.NoError(t, err)

	assert.False(t, set.Has("missing"))
	_, err = set.Match("missing", Env{})
	assert.ErrorIs(t, err, errUtils.ErrFilterNotFound)
}
