package bedrock

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/agent/base"
	"github.com/cloudposse/weave/pkg/ai/tools"
	"github.com/cloudposse/weave/pkg/ai/types"
	log "github.com/cloudposse/weave/pkg/logger"
	"github.com/cloudposse/weave/pkg/schema"
)

const (
	// ProviderName is the provider type served by this client.
	ProviderName = string(schema.ProviderBedrock)
	// DefaultMaxTokens is the default maximum number of tokens in retrieval answers.
	DefaultMaxTokens = 1024
	// DefaultModel is the default Bedrock model.
	DefaultModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	// DefaultRegion is the default AWS region for Bedrock.
	DefaultRegion = "us-east-1"
)

// converseAPI is the part of the Bedrock runtime client used here.
type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Client sends retrieval requests through the Bedrock Converse API.
type Client struct {
	client converseAPI
	config *base.Config
	region string
}

// NewClient creates a Bedrock client from a provider profile. Credentials come from
// the default AWS chain. The region is the profile's location, or its base_url.
func NewClient(ctx context.Context, profile *schema.ProviderConfig) (*Client, error) {
	cfg := base.ExtractConfig(profile, base.ProviderDefaults{
		Model:     DefaultModel,
		MaxTokens: DefaultMaxTokens,
	})

	region := DefaultRegion
	switch {
	case cfg.Location != "":
		region = cfg.Location
	case cfg.BaseURL != "":
		region = cfg.BaseURL
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, errUtils.Build(errUtils.ErrRetrievalFailed).
			WithCause(err).
			WithExplanation("failed to load AWS configuration").
			WithContext("region", region).
			Err()
	}

	return &Client{
		client: bedrockruntime.NewFromConfig(awsCfg),
		config: cfg,
		region: region,
	}, nil
}

// Retrieve sends the messages with the granted tool and returns the text answer.
func (c *Client) Retrieve(ctx context.Context, messages []types.Message, maxTokens int, sel tools.Selection) (*types.RetrievalResult, error) {
	input, err := c.buildInput(messages, maxTokens, sel)
	if err != nil {
		return nil, err
	}

	log.Debug("Sending retrieval request", "provider", ProviderName, "model", c.config.Model, "region", c.region, "tool", sel.ToolName())

	output, err := c.client.Converse(ctx, input)
	if err != nil {
		return nil, errUtils.Build(errUtils.ErrRetrievalFailed).
			WithCause(err).
			WithContext("provider", ProviderName).
			WithContext("model", c.config.Model).
			WithContext("region", c.region).
			Err()
	}

	return parseOutput(output), nil
}

func (c *Client) buildInput(messages []types.Message, maxTokens int, sel tools.Selection) (*bedrockruntime.ConverseInput, error) {
	system, turns := base.SplitSystem(messages)

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(c.config.Model),
		Messages: convertMessages(turns),
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens: aws.Int32(int32(c.config.TokenBudget(maxTokens))),
		},
	}
	if system != "" {
		input.System = []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: system},
		}
	}

	if sel.Tool == nil {
		return input, nil
	}

	fn, ok := sel.Tool.(tools.Function)
	if !ok {
		return nil, base.UnsupportedTool(ProviderName, sel.Tool)
	}

	spec := brtypes.ToolSpecification{
		Name:        aws.String(fn.Name),
		InputSchema: &brtypes.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(fn.Parameters)},
	}
	if fn.Description != "" {
		spec.Description = aws.String(fn.Description)
	}

	input.ToolConfig = &brtypes.ToolConfiguration{
		Tools:      []brtypes.Tool{&brtypes.ToolMemberToolSpec{Value: spec}},
		ToolChoice: convertChoice(sel.Choice),
	}
	return input, nil
}

func convertMessages(turns []types.Message) []brtypes.Message {
	result := make([]brtypes.Message, 0, len(turns))
	for _, m := range turns {
		role := brtypes.ConversationRoleAssistant
		if m.Role == types.RoleUser {
			role = brtypes.ConversationRoleUser
		}
		result = append(result, brtypes.Message{
			Role:    role,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m.Content}},
		})
	}
	return result
}

func convertChoice(choice types.ToolChoice) brtypes.ToolChoice {
	if choice == types.ToolChoiceRequired {
		return &brtypes.ToolChoiceMemberAny{Value: brtypes.AnyToolChoice{}}
	}
	return &brtypes.ToolChoiceMemberAuto{Value: brtypes.AutoToolChoice{}}
}

func parseOutput(output *bedrockruntime.ConverseOutput) *types.RetrievalResult {
	if output == nil {
		return base.ResponseText()
	}
	msg, ok := output.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return base.ResponseText()
	}

	var text strings.Builder
	var inputs []string
	for _, block := range msg.Value.Content {
		switch b := block.(type) {
		case *brtypes.ContentBlockMemberText:
			text.WriteString(b.Value)
		case *brtypes.ContentBlockMemberToolUse:
			if b.Value.Input == nil {
				continue
			}
			raw, err := b.Value.Input.MarshalSmithyDocument()
			if err != nil {
				log.Debug("Skipping unreadable tool input", "provider", ProviderName, "error", err)
				continue
			}
			inputs = append(inputs, string(raw))
		}
	}
	return base.ResponseOrToolInput(text.String(), inputs...)
}

// GetModel returns the configured model name.
func (c *Client) GetModel() string {
	return c.config.Model
}

// GetMaxTokens returns the configured max tokens.
func (c *Client) GetMaxTokens() int {
	return c.config.MaxTokens
}

// GetRegion returns the configured AWS region.
func (c *Client) GetRegion() string {
	return c.region
}
