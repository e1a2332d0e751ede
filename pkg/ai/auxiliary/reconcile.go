// Package auxiliary keeps the identifier-tagged before/after context messages of a
// conversation in sync with freshly derived content.
package auxiliary

import (
	"github.com/samber/lo"

	"github.com/cloudposse/weave/pkg/ai/types"
)

// DefaultRole is the role given to auxiliary messages that did not exist before.
const DefaultRole = types.RoleSystem

// Reconcile returns a new conversation holding at most one message per auxiliary
// identifier.
//
// An existing tagged message keeps its position and role and takes the new content, or
// is dropped when the new content is empty. Later duplicates of a tag are dropped.
// Missing tags with non-empty content are added: "before" at the front, "after" at the end.
// All untagged messages keep their relative order.
func Reconcile(messages []types.Message, before, after string) []types.Message {
	content := map[string]string{
		types.IdentifierBefore: before,
		types.IdentifierAfter:  after,
	}
	seen := make(map[string]bool, len(content))

	out := make([]types.Message, 0, len(messages)+2)
	for _, m := range messages {
		if !m.IsAuxiliary() {
			out = append(out, m)
			continue
		}
		if seen[m.Identifier] {
			continue
		}
		seen[m.Identifier] = true

		updated := content[m.Identifier]
		if updated == "" {
			continue
		}
		m.Content = updated
		m.Parts = nil
		out = append(out, m)
	}

	if before != "" && !seen[types.IdentifierBefore] {
		out = append([]types.Message{{Role: DefaultRole, Content: before, Identifier: types.IdentifierBefore}}, out...)
	}
	if after != "" && !seen[types.IdentifierAfter] {
		out = append(out, types.Message{Role: DefaultRole, Content: after, Identifier: types.IdentifierAfter})
	}

	return out
}

// Without returns the conversation minus its auxiliary messages.
func Without(messages []types.Message) []types.Message {
	return lo.Reject(messages, func(m types.Message, _ int) bool {
		return m.IsAuxiliary()
	})
}
