package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cloudposse/weave/pkg/ai/types"
)

func testContext() Context {
	return Context{
		CharacterName: "Seraphina",
		UserName:      "Alex",
		Description:   "a forest guardian",
		Personality:   "kind",
		Scenario:      "a glade at dusk",
		History: []types.Message{
			{Role: types.RoleSystem, Content: "S"},
			{Role: types.RoleUser, Content: "hi"},
			{Role: types.RoleAssistant, Content: "hey"},
			{Role: types.RoleUser, Content: "bye"},
		},
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		template string
		extra    map[string]string
		expected string
	}{
		{
			name:     "empty template",
			template: "",
			expected: "",
		},
		{
			name:     "template without macros is unchanged",
			template: "Plain text with {braces} and {{ spaced }} tokens.",
			expected: "Plain text with {braces} and {{ spaced }} tokens.",
		},
		{
			name:     "character and user aliases",
			template: "{{char}}/{{characterName}} talks to {{user}}/{{userName}}",
			expected: "Seraphina/Seraphina talks to Alex/Alex",
		},
		{
			name:     "card fields",
			template: "{{description}}|{{personality}}|{{scenario}}",
			expected: "a forest guardian|kind|a glade at dusk",
		},
		{
			name:     "last message",
			template: "> {{lastMessage}}",
			expected: "> bye",
		},
		{
			name:     "messages slice with end",
			template: "{{messages:-2:-1}}",
			expected: "Assistant: hey",
		},
		{
			name:     "messages slice without end",
			template: "{{messages:1}}",
			expected: "Assistant: hey\n\nUser: bye",
		},
		{
			name:     "multiple parametric tokens resolve independently",
			template: "[{{lastNMessages:1}}] [{{lastNMessages:2}}] [{{messages:0:1}}]",
			expected: "[User: bye] [Assistant: hey\n\nUser: bye] [User: hi]",
		},
		{
			name:     "last zero messages is empty",
			template: "x{{lastNMessages:0}}x",
			expected: "xx",
		},
		{
			name:     "malformed parametric tokens stay literal",
			template: "{{lastNMessages:-1}} {{lastNMessages:two}} {{messages:a:b}} {{messages:}}",
			expected: "{{lastNMessages:-1}} {{lastNMessages:two}} {{messages:a:b}} {{messages:}}",
		},
		{
			name:     "unknown keys stay literal",
			template: "{{nope}}",
			expected: "{{nope}}",
		},
		{
			name:     "extra values are substituted",
			template: "Context: {{retrievedContext}}",
			extra:    map[string]string{"retrievedContext": "the glade is safe"},
			expected: "Context: the glade is safe",
		},
		{
			name:     "extra wins over base keys",
			template: "{{char}}",
			extra:    map[string]string{"char": "Override"},
			expected: "Override",
		},
		{
			name:     "substituted values are not substituted again",
			template: "{{loreBefore}}",
			extra:    map[string]string{"loreBefore": "{{user}}"},
			expected: "{{user}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext()
			ctx.Extra = tt.extra
			assert.Equal(t, tt.expected, Resolve(tt.template, ctx))
		})
	}
}

func TestResolve_EmptyFieldsNeverUndefined(t *testing.T) {
	out := Resolve("[{{char}}][{{lastMessage}}][{{recentHistory}}]", Context{})

	assert.Equal(t, "[][][]", out)
}

func TestResolve_RecentHistoryLimit(t *testing.T) {
	ctx := Context{History: numbered(15)}

	out := Resolve("{{recentHistory}}", ctx)

	assert.NotContains(t, out, "m4\n")
	assert.Contains(t, out, "m5")
	assert.Contains(t, out, "m14")
	assert.Equal(t, FormatSlice(ctx.History, -RecentHistoryCount, nil), out)
}

func TestResolve_FullHistory(t *testing.T) {
	ctx := testContext()

	assert.Equal(t, "User: hi\n\nAssistant: hey\n\nUser: bye", Resolve("{{fullHistory}}", ctx))
}

func TestContext_WithExtra(t *testing.T) {
	base := testContext()
	base.Extra = map[string]string{"a": "1"}

	layered := base.WithExtra(map[string]string{"b": "2", "a": "3"})

	assert.Equal(t, map[string]string{"a": "1"}, base.Extra)
	assert.Equal(t, map[string]string{"a": "3", "b": "2"}, layered.Extra)
}
