// Package injection computes where a retrieved-context message goes in a conversation
// and splices it in, either as a new message or merged into a neighbour of the same role.
package injection

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/types"
)

// MergeSeparator joins merged content onto an existing message.
const MergeSeparator = "\n\n"

// NoMerge marks a placement that inserts a new message.
const NoMerge = -1

// Position selects how the insertion index is computed.
type Position string

const (
	// PositionStart places the message before the first non-system message.
	PositionStart Position = "start"
	// PositionDepth places the message relative to the end of the conversation.
	PositionDepth Position = "depth"
)

// ParsePosition validates a position name.
func ParsePosition(s string) (Position, error) {
	switch p := Position(strings.ToLower(strings.TrimSpace(s))); p {
	case PositionStart, PositionDepth:
		return p, nil
	default:
		return "", fmt.Errorf("%w `%s`: expected start or depth", errUtils.ErrInvalidPosition, s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Position) UnmarshalText(text []byte) error {
	parsed, err := ParsePosition(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Spec configures placement. Depth is only used with PositionDepth: 0 appends,
// -1 inserts before the last message, and so on.
type Spec struct {
	Role     types.Role
	Position Position
	Depth    int
	Merge    bool
}

// Placement is the outcome of Plan.
type Placement struct {
	Index int
	// MergeTarget is the index of the message to merge into, or NoMerge.
	MergeTarget int
}

// Merges reports whether the placement merges into an existing message.
func (p Placement) Merges() bool {
	return p.MergeTarget != NoMerge
}

// Plan computes the insertion index and merge decision for a new message.
//
// Only the message at the index (or the one right before it when the index is the end)
// is considered for merging.
func Plan(messages []types.Message, spec Spec) Placement {
	n := len(messages)

	index := n
	switch spec.Position {
	case PositionStart:
		if _, i, ok := lo.FindIndexOf(messages, func(m types.Message) bool { return !m.IsSystem() }); ok {
			index = i
		}
	case PositionDepth:
		index = min(max(n+spec.Depth, 0), n)
	}

	placement := Placement{Index: index, MergeTarget: NoMerge}
	if !spec.Merge || index <= 0 {
		return placement
	}

	candidate := index
	if candidate >= n {
		candidate = index - 1
	}
	if messages[candidate].Role == spec.Role {
		placement.MergeTarget = candidate
	}
	return placement
}

// Apply returns a new conversation with content placed according to spec.
// The input slice is not modified.
func Apply(messages []types.Message, spec Spec, content string) ([]types.Message, Placement) {
	placement := Plan(messages, spec)

	if placement.Merges() {
		out := types.Clone(messages)
		target := &out[placement.MergeTarget]
		if target.Parts != nil {
			// Structured bodies get the content as an extra text part.
			parts := make([]map[string]any, 0, len(target.Parts)+1)
			parts = append(parts, target.Parts...)
			target.Parts = append(parts, map[string]any{"type": "text", "text": content})
		} else {
			target.Content = target.Content + MergeSeparator + content
		}
		return out, placement
	}

	out := make([]types.Message, 0, len(messages)+1)
	out = append(out, messages[:placement.Index]...)
	out = append(out, types.Message{Role: spec.Role, Content: content})
	out = append(out, messages[placement.Index:]...)
	return out, placement
}
