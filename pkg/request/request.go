// Package request reads and writes the OpenAI-style chat-completion bodies the host sends.
package request

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/tools"
	"github.com/cloudposse/weave/pkg/ai/types"
)

// Request is the mutable outgoing request a pipeline run works on.
type Request struct {
	Messages   []types.Message
	Tools      []map[string]any
	ToolChoice string
	// ChatID is read from the body's "chat_id" or "metadata.chat_id" fields.
	ChatID string
}

// HasTool reports whether a tool with the given name is already granted.
func (r *Request) HasTool(name string) bool {
	for _, t := range r.Tools {
		if tools.RequestToolName(t) == name {
			return true
		}
	}
	return false
}

// FromBody decodes a chat-completion body.
func FromBody(body []byte) (*Request, error) {
	if !gjson.ValidBytes(body) {
		return nil, errUtils.Build(errUtils.ErrInvalidRequestBody).
			WithHint("the request body must be a JSON object").
			WithExitCode(errUtils.ExitCodeUsage).
			Err()
	}

	root := gjson.ParseBytes(body)
	messages := root.Get("messages")
	if !messages.IsArray() {
		return nil, errUtils.Build(errUtils.ErrMissingMessages).
			WithHint("the request body must carry a `messages` array").
			WithExitCode(errUtils.ExitCodeUsage).
			Err()
	}

	req := &Request{
		ToolChoice: root.Get("tool_choice").String(),
		ChatID:     root.Get("chat_id").String(),
	}
	if req.ChatID == "" {
		req.ChatID = root.Get("metadata.chat_id").String()
	}

	var decodeErr error
	messages.ForEach(func(key, value gjson.Result) bool {
		msg, err := decodeMessage(value)
		if err != nil {
			decodeErr = errUtils.Build(errUtils.ErrInvalidRequestBody).
				WithCause(err).
				WithContext("message", key.Int()).
				Err()
			return false
		}
		req.Messages = append(req.Messages, msg)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}

	for _, t := range root.Get("tools").Array() {
		var tool map[string]any
		if err := json.Unmarshal([]byte(t.Raw), &tool); err != nil {
			return nil, errUtils.Build(errUtils.ErrInvalidRequestBody).WithCause(err).WithContext("field", "tools").Err()
		}
		req.Tools = append(req.Tools, tool)
	}

	return req, nil
}

func decodeMessage(value gjson.Result) (types.Message, error) {
	role, err := types.ParseRole(value.Get("role").String())
	if err != nil {
		return types.Message{}, err
	}

	msg := types.Message{
		Role:       role,
		Name:       value.Get("name").String(),
		Identifier: value.Get("identifier").String(),
		Raw:        json.RawMessage(value.Raw),
	}

	content := value.Get("content")
	switch {
	case content.IsArray():
		if err := json.Unmarshal([]byte(content.Raw), &msg.Parts); err != nil {
			return types.Message{}, err
		}
		if msg.Parts == nil {
			msg.Parts = []map[string]any{}
		}
	case content.Type == gjson.String:
		msg.Content = content.Str
	case content.Exists() && content.Type != gjson.Null:
		return types.Message{}, fmt.Errorf("unsupported content type %s", content.Type)
	}

	return msg, nil
}

// ApplyToBody writes the request's messages, tools and tool choice back into body.
// Only what the pipeline changed is written: untouched messages keep their original
// JSON and all other fields of body are preserved. With stripIdentifiers the auxiliary
// identifiers are left out, as providers reject unknown message fields.
func ApplyToBody(body []byte, req *Request, stripIdentifiers bool) ([]byte, error) {
	root := gjson.ParseBytes(body)
	out := body

	raws := make([]string, len(req.Messages))
	for i, m := range req.Messages {
		raw, err := encodeMessage(m, stripIdentifiers)
		if err != nil {
			return nil, writeFailed(err, "messages."+strconv.Itoa(i))
		}
		raws[i] = string(raw)
	}
	if !sameMessages(root.Get("messages").Array(), raws) {
		var err error
		if out, err = sjson.SetRawBytes(out, "messages", []byte("["+strings.Join(raws, ",")+"]")); err != nil {
			return nil, writeFailed(err, "messages")
		}
	}

	if len(req.Tools) > 0 && !sameTools(root.Get("tools"), req.Tools) {
		var err error
		if out, err = sjson.SetBytes(out, "tools", req.Tools); err != nil {
			return nil, writeFailed(err, "tools")
		}
	}
	// A structured tool_choice decodes to its raw JSON, so it only differs when the
	// pipeline set a policy.
	if req.ToolChoice != "" && req.ToolChoice != root.Get("tool_choice").String() {
		var err error
		if out, err = sjson.SetBytes(out, "tool_choice", req.ToolChoice); err != nil {
			return nil, writeFailed(err, "tool_choice")
		}
	}

	return out, nil
}

func sameMessages(source []gjson.Result, raws []string) bool {
	if len(source) != len(raws) {
		return false
	}
	for i := range source {
		if source[i].Raw != raws[i] {
			return false
		}
	}
	return true
}

func sameTools(source gjson.Result, granted []map[string]any) bool {
	var decoded []map[string]any
	if source.IsArray() {
		if err := json.Unmarshal([]byte(source.Raw), &decoded); err != nil {
			return false
		}
	}
	return cmp.Equal(decoded, granted)
}

// encodeMessage starts from the message as the host sent it and sets only the fields
// the pipeline owns. An unchanged message is returned byte for byte.
func encodeMessage(m types.Message, stripIdentifiers bool) ([]byte, error) {
	out := []byte("{}")
	if len(m.Raw) > 0 {
		out = []byte(m.Raw)
		if unchanged(m) {
			if stripIdentifiers && m.Identifier != "" {
				return sjson.DeleteBytes(out, "identifier")
			}
			return out, nil
		}
	}

	out, err := sjson.SetBytes(out, "role", string(m.Role))
	if err != nil {
		return nil, err
	}

	if m.Parts != nil {
		out, err = sjson.SetBytes(out, "content", m.Parts)
	} else {
		out, err = sjson.SetBytes(out, "content", m.Content)
	}
	if err != nil {
		return nil, err
	}

	if out, err = setOrDelete(out, "name", m.Name); err != nil {
		return nil, err
	}
	identifier := m.Identifier
	if stripIdentifiers {
		identifier = ""
	}
	return setOrDelete(out, "identifier", identifier)
}

// unchanged reports whether m still decodes from its original JSON.
func unchanged(m types.Message) bool {
	source, err := decodeMessage(gjson.ParseBytes(m.Raw))
	if err != nil {
		return false
	}
	source.Raw, m.Raw = nil, nil
	return cmp.Equal(source, m)
}

func setOrDelete(raw []byte, field, value string) ([]byte, error) {
	if value == "" {
		if !gjson.GetBytes(raw, field).Exists() {
			return raw, nil
		}
		return sjson.DeleteBytes(raw, field)
	}
	return sjson.SetBytes(raw, field, value)
}

func writeFailed(err error, field string) error {
	return errUtils.Build(errUtils.ErrWriteRequestBody).WithCause(err).WithContext("field", field).Err()
}
