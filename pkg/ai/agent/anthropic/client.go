package anthropic

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/agent/base"
	"github.com/cloudposse/weave/pkg/ai/tools"
	"github.com/cloudposse/weave/pkg/ai/types"
	log "github.com/cloudposse/weave/pkg/logger"
	"github.com/cloudposse/weave/pkg/schema"
)

const (
	// ProviderName is the provider type served by this client.
	ProviderName = string(schema.ProviderAnthropic)
	// DefaultModel is the default Anthropic model.
	DefaultModel = "claude-sonnet-4-20250514"
	// DefaultAPIKeyEnv is the default environment variable for the API key.
	DefaultAPIKeyEnv = "ANTHROPIC_API_KEY"
	// DefaultMaxTokens is the default maximum number of tokens in retrieval answers.
	DefaultMaxTokens = 1024
)

// Client sends retrieval requests to the Anthropic Messages API.
type Client struct {
	client *anthropic.Client
	config *base.Config
}

// NewClient creates an Anthropic client from a provider profile.
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
	client := anthropic.NewClient(opts...)

	return &Client{
		client: &client,
		config: config,
	}, nil
}

// Retrieve sends the messages with the granted tool and returns the text answer.
func (c *Client) Retrieve(ctx context.Context, messages []types.Message, maxTokens int, sel tools.Selection) (*types.RetrievalResult, error) {
	params, err := c.buildParams(messages, maxTokens, sel)
	if err != nil {
		return nil, err
	}

	log.Debug("Sending retrieval request", "provider", ProviderName, "model", c.config.Model, "tool", sel.ToolName())

	response, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, errUtils.Build(errUtils.ErrRetrievalFailed).
			WithCause(err).
			WithContext("provider", ProviderName).
			WithContext("model", c.config.Model).
			Err()
	}

	// Use indexing to avoid copying the content union structs.
	var text strings.Builder
	var inputs []string
	for i := range response.Content {
		switch response.Content[i].Type {
		case "text":
			text.WriteString(response.Content[i].Text)
		case "tool_use":
			inputs = append(inputs, string(response.Content[i].Input))
		}
	}

	return base.ResponseOrToolInput(text.String(), inputs...), nil
}

func (c *Client) buildParams(messages []types.Message, maxTokens int, sel tools.Selection) (anthropic.MessageNewParams, error) {
	system, turns := base.SplitSystem(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.config.TokenBudget(maxTokens)),
		Messages:  convertMessages(turns),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	if sel.Tool == nil {
		return params, nil
	}

	tool, err := convertTool(sel.Tool)
	if err != nil {
		return params, err
	}
	params.Tools = []anthropic.ToolUnionParam{tool}
	params.ToolChoice = convertChoice(sel.Choice)

	return params, nil
}

func convertMessages(turns []types.Message) []anthropic.MessageParam {
	result := make([]anthropic.MessageParam, 0, len(turns))
	for _, m := range turns {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == types.RoleUser {
			result = append(result, anthropic.NewUserMessage(block))
		} else {
			result = append(result, anthropic.NewAssistantMessage(block))
		}
	}
	return result
}

func convertTool(d tools.Descriptor) (anthropic.ToolUnionParam, error) {
	fn, ok := d.(tools.Function)
	if !ok {
		return anthropic.ToolUnionParam{}, base.UnsupportedTool(ProviderName, d)
	}

	properties, required, extra := base.SchemaParts(fn.Parameters)
	tool := &anthropic.ToolParam{
		Name: fn.Name,
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties:  properties,
			Required:    required,
			ExtraFields: extra,
		},
	}
	if fn.Description != "" {
		tool.Description = anthropic.String(fn.Description)
	}

	return anthropic.ToolUnionParam{OfTool: tool}, nil
}

// convertChoice maps "required" to Anthropic's "any", which forces some tool call.
func convertChoice(choice types.ToolChoice) anthropic.ToolChoiceUnionParam {
	if choice == types.ToolChoiceRequired {
		return anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}
	}
	return anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
}

// GetModel returns the configured model name.
func (c *Client) GetModel() string {
	return c.config.Model
}

// GetMaxTokens returns the configured max tokens.
func (c *Client) GetMaxTokens() int {
	return c.config.MaxTokens
}
