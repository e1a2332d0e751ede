package tools

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/schema"
)

// Preconditions reports whether the settings carry what the provider's tool needs.
// It returns ErrMissingDataSourceID or ErrMissingToolParameters, or nil.
func Preconditions(provider schema.ProviderType, r *schema.RetrievalSettings) error {
	switch provider {
	case schema.ProviderGoogle:
		if r.DataSourceID == "" {
			return errUtils.ErrMissingDataSourceID
		}
	case schema.ProviderOpenAI, schema.ProviderAnthropic, schema.ProviderBedrock, schema.ProviderCustom:
		if r.CustomParameters == "" {
			return errUtils.ErrMissingToolParameters
		}
	default:
		return fmt.Errorf("%w: %s", errUtils.ErrUnsupportedProvider, provider)
	}
	return nil
}

// Build creates the retrieval tool for the provider.
func Build(provider schema.ProviderType, r *schema.RetrievalSettings) (Descriptor, error) {
	if err := Preconditions(provider, r); err != nil {
		return nil, err
	}

	switch provider {
	case schema.ProviderGoogle:
		return Retrieval{
			Name:       r.Tool.Name,
			DataStore:  r.DataSourceID,
			MaxResults: r.MaxResults,
		}, nil

	case schema.ProviderOpenAI, schema.ProviderAnthropic, schema.ProviderBedrock:
		params, err := parseParameters(r.CustomParameters)
		if err != nil {
			return nil, err
		}
		return Function{
			Name:        r.Tool.Name,
			Description: r.Tool.Description,
			Parameters:  params,
		}, nil

	case schema.ProviderCustom:
		raw := jsonc.ToJSON([]byte(r.CustomParameters))
		if !gjson.ValidBytes(raw) {
			return nil, malformed(provider)
		}
		name := r.Tool.Name
		for _, path := range []string{"function.name", "name"} {
			if n := gjson.GetBytes(raw, path); n.Type == gjson.String && n.Str != "" {
				name = n.Str
				break
			}
		}
		return Raw{Name: name, JSON: json.RawMessage(raw)}, nil
	}

	return nil, fmt.Errorf("%w: %s", errUtils.ErrUnsupportedProvider, provider)
}

// parametersResource names the custom parameters while they are compiled as a schema.
const parametersResource = "tool-parameters.json"

// parseParameters decodes a JSON Schema object. Comments and trailing commas are allowed.
// The object must compile as a draft 2020-12 schema.
func parseParameters(custom string) (map[string]any, error) {
	raw := jsonc.ToJSON([]byte(custom))
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return nil, malformed("")
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(parametersResource, bytes.NewReader(raw)); err != nil {
		return nil, errUtils.Build(errUtils.ErrMalformedToolParameters).WithCause(err).Err()
	}
	if _, err := compiler.Compile(parametersResource); err != nil {
		return nil, errUtils.Build(errUtils.ErrMalformedToolParameters).
			WithCause(err).
			WithHint("settings.retrieval.custom_parameters must be a valid JSON Schema").
			Err()
	}

	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, errUtils.Build(errUtils.ErrMalformedToolParameters).WithCause(err).Err()
	}
	return params, nil
}

func malformed(provider schema.ProviderType) error {
	b := errUtils.Build(errUtils.ErrMalformedToolParameters).
		WithHint("settings.retrieval.custom_parameters must be a JSON object")
	if provider != "" {
		b = b.WithContext("provider", string(provider))
	}
	return b.Err()
}
