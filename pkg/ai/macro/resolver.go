// Package macro resolves {{name}} and {{name:args}} tokens in prompt templates against
// the character, persona and conversation state of a chat.
package macro

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/cloudposse/weave/pkg/ai/types"
)

// RecentHistoryCount is the number of non-system messages rendered by {{recentHistory}}.
const RecentHistoryCount = 10

// Names of the context-derived macros.
const (
	KeyCharacterName = "characterName"
	KeyChar          = "char"
	KeyUserName      = "userName"
	KeyUser          = "user"
	KeyDescription   = "description"
	KeyPersonality   = "personality"
	KeyScenario      = "scenario"
	KeyLastMessage   = "lastMessage"
	KeyRecentHistory = "recentHistory"
	KeyFullHistory   = "fullHistory"
)

var (
	lastNMessagesPattern = regexp.MustCompile(`\{\{lastNMessages:(\d+)\}\}`)
	messagesPattern      = regexp.MustCompile(`\{\{messages:(-?\d+)(?::(-?\d+))?\}\}`)
)

// Context is the read-only state a template is resolved against.
// Values in Extra take precedence over context-derived values of the same name.
type Context struct {
	CharacterName string
	UserName      string
	Description   string
	Personality   string
	Scenario      string
	History       []types.Message
	Extra         map[string]string
}

// WithExtra returns a copy of the context with additional extra values layered on top.
func (c Context) WithExtra(extra map[string]string) Context {
	c.Extra = lo.Assign(c.Extra, extra)
	return c
}

// Resolve substitutes every macro in template.
//
// Direct keys are resolved first in a single pass over the merged key set, then the
// parametric {{lastNMessages:N}} and {{messages:START[:END]}} tokens. Unknown keys and
// malformed parametric tokens are left as literal text.
func Resolve(template string, ctx Context) string {
	if template == "" {
		return ""
	}

	out := replacer(ctx).Replace(template)

	out = lastNMessagesPattern.ReplaceAllStringFunc(out, func(token string) string {
		m := lastNMessagesPattern.FindStringSubmatch(token)
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return token
		}
		if n == 0 {
			return ""
		}
		return FormatSlice(ctx.History, -n, nil)
	})

	out = messagesPattern.ReplaceAllStringFunc(out, func(token string) string {
		m := messagesPattern.FindStringSubmatch(token)
		start, err := strconv.Atoi(m[1])
		if err != nil {
			return token
		}
		if m[2] == "" {
			return FormatSlice(ctx.History, start, nil)
		}
		end, err := strconv.Atoi(m[2])
		if err != nil {
			return token
		}
		return FormatSlice(ctx.History, start, &end)
	})

	return out
}

// Values returns the merged direct-substitution values for ctx.
func Values(ctx Context) map[string]string {
	values := map[string]string{
		KeyCharacterName: ctx.CharacterName,
		KeyChar:          ctx.CharacterName,
		KeyUserName:      ctx.UserName,
		KeyUser:          ctx.UserName,
		KeyDescription:   ctx.Description,
		KeyPersonality:   ctx.Personality,
		KeyScenario:      ctx.Scenario,
		KeyLastMessage:   lastMessage(ctx.History),
		KeyRecentHistory: FormatSlice(ctx.History, -RecentHistoryCount, nil),
		KeyFullHistory:   FormatSlice(ctx.History, 0, nil),
	}
	for k, v := range ctx.Extra {
		values[k] = v
	}
	return values
}

func replacer(ctx Context) *strings.Replacer {
	values := Values(ctx)

	keys := lo.Keys(values)
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{{"+k+"}}", values[k])
	}
	return strings.NewReplacer(pairs...)
}

func lastMessage(history []types.Message) string {
	last, ok := lo.Last(NonSystem(history))
	if !ok {
		return ""
	}
	return Text(last)
}
