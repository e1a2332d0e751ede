package base

import (
	"strings"

	"github.com/cloudposse/weave/pkg/ai/macro"
	"github.com/cloudposse/weave/pkg/ai/types"
)

// SplitSystem separates system instructions from conversation turns.
// System contents are joined with a blank line. Tool turns are sent as assistant
// turns and consecutive turns of the same role are merged, since the chat APIs
// that take a separate system prompt require alternating roles.
func SplitSystem(messages []types.Message) (string, []types.Message) {
	var system []string
	turns := make([]types.Message, 0, len(messages))

	for _, m := range messages {
		text := macro.Text(m)
		if m.IsSystem() {
			if text != "" {
				system = append(system, text)
			}
			continue
		}

		role := types.RoleAssistant
		if m.Role == types.RoleUser {
			role = types.RoleUser
		}

		if n := len(turns); n > 0 && turns[n-1].Role == role {
			turns[n-1].Content += "\n\n" + text
			continue
		}
		turns = append(turns, types.Message{Role: role, Content: text})
	}

	return strings.Join(system, "\n\n"), turns
}

// ResponseText builds the retrieval result from the text blocks of a response.
func ResponseText(parts ...string) *types.RetrievalResult {
	return &types.RetrievalResult{Content: strings.Join(parts, "")}
}

// ResponseOrToolInput returns the text of a response, or the arguments of its tool
// calls when there is no text. A required tool choice makes the model answer through
// the tool only.
func ResponseOrToolInput(text string, toolInputs ...string) *types.RetrievalResult {
	if strings.TrimSpace(text) != "" {
		return ResponseText(text)
	}
	inputs := make([]string, 0, len(toolInputs))
	for _, in := range toolInputs {
		if in = strings.TrimSpace(in); in != "" && in != "{}" {
			inputs = append(inputs, in)
		}
	}
	return ResponseText(strings.Join(inputs, "\n"))
}
