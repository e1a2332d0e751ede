package macro

import (
	"encoding/json"
	"strings"

	"github.com/samber/lo"

	"github.com/cloudposse/weave/pkg/ai/types"
)

const (
	labelUser      = "User"
	labelAssistant = "Assistant"
	entrySeparator = "\n\n"
)

// FormatSlice renders a slice of the non-system messages as "<Label>: <content>" entries
// separated by a blank line.
//
// Indexing is half-open over the filtered list. Negative indices count from the end.
// A negative start that reaches past the beginning is clamped to 0 rather than wrapping,
// and a nil end means through the last message.
func FormatSlice(messages []types.Message, start int, end *int) string {
	filtered := NonSystem(messages)
	from, to := normalizeRange(len(filtered), start, end)
	if from >= to {
		return ""
	}

	entries := make([]string, 0, to-from)
	for _, m := range filtered[from:to] {
		entries = append(entries, label(m.Role)+": "+Text(m))
	}
	return strings.Join(entries, entrySeparator)
}

// NonSystem returns the messages whose role is not system, preserving order.
func NonSystem(messages []types.Message) []types.Message {
	return lo.Filter(messages, func(m types.Message, _ int) bool {
		return !m.IsSystem()
	})
}

// Text returns the renderable content of a message. Structured parts are dumped as JSON.
func Text(m types.Message) string {
	if m.Parts == nil {
		return m.Content
	}
	dump, err := json.MarshalIndent(m.Parts, "", "  ")
	if err != nil {
		return m.Content
	}
	return string(dump)
}

func normalizeRange(n, start int, end *int) (int, int) {
	from := start
	if from < 0 {
		from = max(n+from, 0)
	}
	from = min(from, n)

	to := n
	if end != nil {
		to = *end
		if to < 0 {
			to = n + to
		}
		to = min(max(to, 0), n)
	}
	return from, to
}

func label(role types.Role) string {
	if role == types.RoleUser {
		return labelUser
	}
	return labelAssistant
}
