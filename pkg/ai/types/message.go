package types

import (
	"encoding/json"
	"fmt"
	"strings"

	errUtils "github.com/cloudposse/weave/errors"
)

// Role identifies the author of a conversation message.
type Role string

// Role constants for messages.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	// RoleTool is accepted on input so host requests carrying tool results can be
	// processed. It renders like an assistant turn.
	RoleTool Role = "tool"
)

// Identifiers of the auxiliary context messages managed by the reconciler.
const (
	IdentifierBefore = "before-context"
	IdentifierAfter  = "after-context"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return r, nil
	default:
		return "", fmt.Errorf("%w `%s`: expected one of system, user, assistant", errUtils.ErrInvalidRole, s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler so configuration decoding
// rejects unknown roles.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// String returns the role name.
func (r Role) String() string {
	return string(r)
}

// Message represents a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Parts holds structured content when the host sent a non-string body.
	// When Parts is set, Content is ignored for rendering.
	Parts      []map[string]any `json:"parts,omitempty"`
	Identifier string           `json:"identifier,omitempty"`
	Name       string           `json:"name,omitempty"`
	// Raw is the message object as the host sent it. Fields the pipeline does not
	// own (tool_calls, tool_call_id, ...) are written back from it.
	Raw json.RawMessage `json:"-" yaml:"-"`
}

// IsSystem reports whether the message is a system message.
func (m Message) IsSystem() bool {
	return m.Role == RoleSystem
}

// IsAuxiliary reports whether the message is one of the tagged auxiliary context messages.
func (m Message) IsAuxiliary() bool {
	return m.Identifier == IdentifierBefore || m.Identifier == IdentifierAfter
}

// Clone returns a copy of the messages. Parts maps are shared.
func Clone(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	out := make([]Message, len(messages))
	copy(out, messages)
	return out
}
