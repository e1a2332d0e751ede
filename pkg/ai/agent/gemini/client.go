package gemini

import (
	"context"

	"google.golang.org/genai"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/agent/base"
	"github.com/cloudposse/weave/pkg/ai/tools"
	"github.com/cloudposse/weave/pkg/ai/types"
	log "github.com/cloudposse/weave/pkg/logger"
	"github.com/cloudposse/weave/pkg/schema"
)

const (
	// ProviderName is the provider type served by this client.
	ProviderName = string(schema.ProviderGoogle)
	// DefaultModel is the default Gemini model.
	DefaultModel = "gemini-2.5-flash"
	// DefaultAPIKeyEnv is the default environment variable for the API key.
	DefaultAPIKeyEnv = "GEMINI_API_KEY"
	// DefaultMaxTokens is the default maximum number of tokens in retrieval answers.
	DefaultMaxTokens = 1024
	// DefaultLocation is used for Vertex AI when a project is set without a location.
	DefaultLocation = "global"
)

// Client sends retrieval requests to Gemini, grounded on a Vertex AI Search data store.
type Client struct {
	client *genai.Client
	config *base.Config
}

// NewClient creates a Gemini client from a provider profile. Profiles with a project
// use Vertex AI with application default credentials; the rest use an API key.
func NewClient(ctx context.Context, profile *schema.ProviderConfig) (*Client, error) {
	config := base.ExtractConfig(profile, base.ProviderDefaults{
		Model:     DefaultModel,
		APIKeyEnv: DefaultAPIKeyEnv,
		MaxTokens: DefaultMaxTokens,
	})

	clientConfig := &genai.ClientConfig{}
	if config.Project != "" {
		clientConfig.Backend = genai.BackendVertexAI
		clientConfig.Project = config.Project
		clientConfig.Location = config.Location
		if clientConfig.Location == "" {
			clientConfig.Location = DefaultLocation
		}
	} else {
		apiKey, err := base.RequireAPIKey(config.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		clientConfig.Backend = genai.BackendGeminiAPI
		clientConfig.APIKey = apiKey
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, errUtils.Build(errUtils.ErrRetrievalFailed).
			WithCause(err).
			WithExplanation("failed to create Gemini client").
			WithContext("provider", ProviderName).
			Err()
	}

	return &Client{
		client: client,
		config: config,
	}, nil
}

// Retrieve sends the messages with the retrieval tool and returns the grounded answer.
func (c *Client) Retrieve(ctx context.Context, messages []types.Message, maxTokens int, sel tools.Selection) (*types.RetrievalResult, error) {
	system, turns := base.SplitSystem(messages)

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(c.config.TokenBudget(maxTokens)),
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	if sel.Tool != nil {
		tool, err := convertTool(sel.Tool)
		if err != nil {
			return nil, err
		}
		config.Tools = []*genai.Tool{tool}
		// Grounding is applied by the service, so there is no call for a choice policy to force.
		log.Trace("Tool choice has no effect on retrieval grounding", "choice", sel.Choice)
	}

	log.Debug("Sending retrieval request", "provider", ProviderName, "model", c.config.Model, "tool", sel.ToolName())

	response, err := c.client.Models.GenerateContent(ctx, c.config.Model, convertMessages(turns), config)
	if err != nil {
		return nil, errUtils.Build(errUtils.ErrRetrievalFailed).
			WithCause(err).
			WithContext("provider", ProviderName).
			WithContext("model", c.config.Model).
			Err()
	}

	return base.ResponseText(response.Text()), nil
}

func convertMessages(turns []types.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		var role genai.Role = genai.RoleModel
		if m.Role == types.RoleUser {
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}

func convertTool(d tools.Descriptor) (*genai.Tool, error) {
	r, ok := d.(tools.Retrieval)
	if !ok {
		return nil, base.UnsupportedTool(ProviderName, d)
	}

	search := &genai.VertexAISearch{Datastore: r.DataStore}
	if r.MaxResults > 0 {
		search.MaxResults = genai.Ptr(int32(r.MaxResults))
	}

	return &genai.Tool{
		Retrieval: &genai.Retrieval{VertexAISearch: search},
	}, nil
}

// GetModel returns the configured model name.
func (c *Client) GetModel() string {
	return c.config.Model
}

// GetMaxTokens returns the configured max tokens.
func (c *Client) GetMaxTokens() int {
	return c.config.MaxTokens
}
