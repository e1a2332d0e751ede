package tools

import (
	"encoding/json"
)

// ToRequestTool renders a descriptor as a tool entry of a chat-completions request body.
// Retrieval tools use the Gemini REST shape since OpenAI has no equivalent.
func ToRequestTool(d Descriptor) (map[string]any, error) {
	switch t := d.(type) {
	case Function:
		fn := map[string]any{
			"name":       t.Name,
			"parameters": t.Parameters,
		}
		if t.Description != "" {
			fn["description"] = t.Description
		}
		return map[string]any{"type": "function", "function": fn}, nil

	case Retrieval:
		search := map[string]any{"datastore": t.DataStore}
		if t.MaxResults > 0 {
			search["maxResults"] = t.MaxResults
		}
		return map[string]any{"retrieval": map[string]any{"vertexAiSearch": search}}, nil

	case Raw:
		var out map[string]any
		if err := json.Unmarshal(t.JSON, &out); err != nil {
			return nil, malformed("")
		}
		return out, nil
	}

	return nil, nil
}

// RequestToolName returns the name a request tool entry declares, checking the
// function-calling shape first.
func RequestToolName(tool map[string]any) string {
	if fn, ok := tool["function"].(map[string]any); ok {
		if name, ok := fn["name"].(string); ok {
			return name
		}
	}
	if name, ok := tool["name"].(string); ok {
		return name
	}
	if _, ok := tool["retrieval"]; ok {
		return "retrieval"
	}
	return ""
}
