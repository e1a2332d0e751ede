package types

import (
	"fmt"
	"strings"

	errUtils "github.com/cloudposse/weave/errors"
)

// ToolChoice is the policy that tells a model whether it may or must call a granted tool.
type ToolChoice string

const (
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceRequired ToolChoice = "required"
)

// ParseToolChoice validates a tool choice name.
func ParseToolChoice(s string) (ToolChoice, error) {
	switch c := ToolChoice(strings.ToLower(strings.TrimSpace(s))); c {
	case ToolChoiceAuto, ToolChoiceRequired:
		return c, nil
	default:
		return "", fmt.Errorf("%w `%s`: expected auto or required", errUtils.ErrInvalidToolChoice, s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ToolChoice) UnmarshalText(text []byte) error {
	parsed, err := ParseToolChoice(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// RetrievalResult is the answer produced by the retrieval model.
type RetrievalResult struct {
	Content string `json:"content"`
}

// IsEmpty reports whether the result carries no usable content.
func (r *RetrievalResult) IsEmpty() bool {
	return r == nil || strings.TrimSpace(r.Content) == ""
}
