// Package tools builds the single tool granted to the retrieval model, in the shape
// each provider family expects.
package tools

import (
	"encoding/json"

	"github.com/cloudposse/weave/pkg/ai/types"
)

// Descriptor is a provider-neutral tool description. The concrete variants are
// Retrieval, Function and Raw.
type Descriptor interface {
	// ToolName returns the name the model sees.
	ToolName() string
	isDescriptor()
}

// Retrieval grounds the model on a managed search data store (Vertex AI Search).
type Retrieval struct {
	Name       string
	DataStore  string
	MaxResults int
}

// Function is a function-calling tool described by a JSON Schema.
type Function struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Raw is a complete provider tool object passed through verbatim.
type Raw struct {
	Name string
	JSON json.RawMessage
}

func (r Retrieval) ToolName() string { return r.Name }
func (f Function) ToolName() string  { return f.Name }
func (r Raw) ToolName() string       { return r.Name }

func (Retrieval) isDescriptor() {}
func (Function) isDescriptor()  {}
func (Raw) isDescriptor()       {}

// Selection is a tool plus the policy for using it.
type Selection struct {
	Tool   Descriptor
	Choice types.ToolChoice
}

// ToolName returns the selected tool's name, or "" when no tool is selected.
func (s Selection) ToolName() string {
	if s.Tool == nil {
		return ""
	}
	return s.Tool.ToolName()
}
