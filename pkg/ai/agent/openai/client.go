package openai

import (
	"context"
	"encoding/json"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/agent/base"
	"github.com/cloudposse/weave/pkg/ai/macro"
	"github.com/cloudposse/weave/pkg/ai/tools"
	"github.com/cloudposse/weave/pkg/ai/types"
	log "github.com/cloudposse/weave/pkg/logger"
	"github.com/cloudposse/weave/pkg/schema"
)

const (
	// ProviderName is the provider type served by this client.
	ProviderName = string(schema.ProviderOpenAI)
	// CustomProviderName serves custom targets, whose tool object is sent verbatim.
	CustomProviderName = string(schema.ProviderCustom)
	// DefaultModel is the default OpenAI model.
	DefaultModel = "gpt-4o"
	// DefaultAPIKeyEnv is the default environment variable for the API key.
	DefaultAPIKeyEnv = "OPENAI_API_KEY"
	// DefaultMaxTokens is the default maximum number of tokens in retrieval answers.
	DefaultMaxTokens = 1024
)

// Client sends retrieval requests to an OpenAI-compatible chat completions endpoint.
type Client struct {
	client   *openai.Client
	config   *base.Config
	provider string
}

// NewClient creates an OpenAI client from a provider profile. A base_url makes it
// talk to any OpenAI-compatible server.
func NewClient(profile *schema.ProviderConfig) (*Client, error) {
	config := base.ExtractConfig(profile, base.ProviderDefaults{
		Model:     DefaultModel,
		APIKeyEnv: DefaultAPIKeyEnv,
		MaxTokens: DefaultMaxTokens,
	})

	apiKey, err := base.RequireAPIKey(config.APIKeyEnv)
	if err != nil {
		return nil, err
	}

	// Retries are applied by the router according to settings.retrieval.retry.
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	client := openai.NewClient(opts...)

	provider := ProviderName
	if profile != nil && profile.Type == schema.ProviderCustom {
		provider = CustomProviderName
	}

	return &Client{
		client:   &client,
		config:   config,
		provider: provider,
	}, nil
}

// Retrieve sends the messages with the granted tool and returns the text answer.
func (c *Client) Retrieve(ctx context.Context, messages []types.Message, maxTokens int, sel tools.Selection) (*types.RetrievalResult, error) {
	params := openai.ChatCompletionNewParams{
		Messages:  convertMessages(messages),
		Model:     openai.ChatModel(c.config.Model),
		MaxTokens: openai.Int(int64(c.config.TokenBudget(maxTokens))),
	}

	opts, err := applyTool(&params, sel)
	if err != nil {
		return nil, err
	}

	log.Debug("Sending retrieval request", "provider", c.provider, "model", c.config.Model, "tool", sel.ToolName())

	response, err := c.client.Chat.Completions.New(ctx, params, opts...)
	if err != nil {
		return nil, errUtils.Build(errUtils.ErrRetrievalFailed).
			WithCause(err).
			WithContext("provider", c.provider).
			WithContext("model", c.config.Model).
			WithContext("messages_count", len(messages)).
			Err()
	}

	if len(response.Choices) == 0 {
		return base.ResponseText(), nil
	}
	message := response.Choices[0].Message
	arguments := make([]string, 0, len(message.ToolCalls))
	for _, call := range message.ToolCalls {
		arguments = append(arguments, call.Function.Arguments)
	}
	return base.ResponseOrToolInput(message.Content, arguments...), nil
}

// applyTool sets the tool on params, or returns request options that write a raw
// tool object into the body.
func applyTool(params *openai.ChatCompletionNewParams, sel tools.Selection) ([]option.RequestOption, error) {
	choice := string(sel.Choice)
	if choice == "" {
		choice = string(types.ToolChoiceAuto)
	}

	switch t := sel.Tool.(type) {
	case nil:
		return nil, nil

	case tools.Function:
		fn := openai.FunctionDefinitionParam{
			Name:       t.Name,
			Parameters: openai.FunctionParameters(t.Parameters),
		}
		if t.Description != "" {
			fn.Description = openai.String(t.Description)
		}
		params.Tools = []openai.ChatCompletionToolParam{{Function: fn}}
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String(choice)}
		return nil, nil

	case tools.Raw:
		return []option.RequestOption{
			option.WithJSONSet("tools", []json.RawMessage{t.JSON}),
			option.WithJSONSet("tool_choice", choice),
		}, nil
	}

	return nil, base.UnsupportedTool(ProviderName, sel.Tool)
}

func convertMessages(messages []types.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		text := macro.Text(m)
		switch m.Role {
		case types.RoleSystem:
			result = append(result, openai.SystemMessage(text))
		case types.RoleUser:
			result = append(result, openai.UserMessage(text))
		default:
			result = append(result, openai.AssistantMessage(text))
		}
	}
	return result
}

// GetModel returns the configured model name.
func (c *Client) GetModel() string {
	return c.config.Model
}

// GetMaxTokens returns the configured max tokens.
func (c *Client) GetMaxTokens() int {
	return c.config.MaxTokens
}
