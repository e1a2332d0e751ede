package schema

import (
	"fmt"
	"strings"
	"time"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/injection"
	"github.com/cloudposse/weave/pkg/ai/types"
)

// ProviderType selects the retrieval tool format and the client used for a target.
type ProviderType string

const (
	ProviderGoogle    ProviderType = "google"
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderBedrock   ProviderType = "bedrock"
	ProviderCustom    ProviderType = "custom"
)

// ProviderTypes lists every supported provider type.
var ProviderTypes = []ProviderType{ProviderGoogle, ProviderOpenAI, ProviderAnthropic, ProviderBedrock, ProviderCustom}

// ParseProviderType validates a provider type name.
func ParseProviderType(s string) (ProviderType, error) {
	p := ProviderType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ProviderTypes {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w `%s`: expected one of google, openai, anthropic, bedrock, custom", errUtils.ErrInvalidProviderType, s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *ProviderType) UnmarshalText(text []byte) error {
	parsed, err := ParseProviderType(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// CacheBackend selects where retrieval results are cached.
type CacheBackend string

const (
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendRedis  CacheBackend = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *CacheBackend) UnmarshalText(text []byte) error {
	switch b := CacheBackend(strings.ToLower(strings.TrimSpace(string(text)))); b {
	case CacheBackendMemory, CacheBackendRedis:
		*c = b
		return nil
	default:
		return fmt.Errorf("%w `%s`: expected memory or redis", errUtils.ErrInvalidCacheBackend, string(text))
	}
}

// ProviderConfig configures one retrieval target.
type ProviderConfig struct {
	Type      ProviderType `yaml:"type" json:"type" mapstructure:"type"`
	Model     string       `yaml:"model,omitempty" json:"model,omitempty" mapstructure:"model"`
	ApiKeyEnv string       `yaml:"api_key_env,omitempty" json:"api_key_env,omitempty" mapstructure:"api_key_env"`
	MaxTokens int          `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" mapstructure:"max_tokens"`
	BaseURL   string       `yaml:"base_url,omitempty" json:"base_url,omitempty" mapstructure:"base_url"` // Endpoint for OpenAI-compatible servers, region for Bedrock
	// Project and Location select Vertex AI for Google targets.
	Project  string `yaml:"project,omitempty" json:"project,omitempty" mapstructure:"project"`
	Location string `yaml:"location,omitempty" json:"location,omitempty" mapstructure:"location"`
}

// RetrievalSettings configures the retrieval pipeline.
type RetrievalSettings struct {
	Enabled bool   `yaml:"enabled,omitempty" json:"enabled,omitempty" mapstructure:"enabled"`
	Target  string `yaml:"target,omitempty" json:"target,omitempty" mapstructure:"target"` // Key into settings.providers
	Filter  string `yaml:"filter,omitempty" json:"filter,omitempty" mapstructure:"filter"` // Key into Filters
	// Filters maps filter ids to boolean expressions over the request.
	Filters            map[string]string `yaml:"filters,omitempty" json:"filters,omitempty" mapstructure:"filters"`
	DataSourceID       string            `yaml:"data_source_id,omitempty" json:"data_source_id,omitempty" mapstructure:"data_source_id"`
	CustomParameters   string            `yaml:"custom_parameters,omitempty" json:"custom_parameters,omitempty" mapstructure:"custom_parameters"`
	Tool               ToolSettings      `yaml:"tool,omitempty" json:"tool,omitempty" mapstructure:"tool"`
	MaxResults         int               `yaml:"max_results,omitempty" json:"max_results,omitempty" mapstructure:"max_results"`
	MaxTokens          int               `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" mapstructure:"max_tokens"`
	TimeoutSeconds     int               `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty" mapstructure:"timeout_seconds"`
	Templates          TemplateSettings  `yaml:"templates,omitempty" json:"templates,omitempty" mapstructure:"templates"`
	Injection          InjectionSettings `yaml:"injection,omitempty" json:"injection,omitempty" mapstructure:"injection"`
	ReconcileAuxiliary bool              `yaml:"reconcile_auxiliary,omitempty" json:"reconcile_auxiliary,omitempty" mapstructure:"reconcile_auxiliary"`
	ExtraSystemPrompt  string            `yaml:"extra_system_prompt,omitempty" json:"extra_system_prompt,omitempty" mapstructure:"extra_system_prompt"`
	MainTool           MainToolSettings  `yaml:"main_tool,omitempty" json:"main_tool,omitempty" mapstructure:"main_tool"`
	Cache              CacheSettings     `yaml:"cache,omitempty" json:"cache,omitempty" mapstructure:"cache"`
	Retry              RetrySettings     `yaml:"retry,omitempty" json:"retry,omitempty" mapstructure:"retry"`
	// LockFile makes the single-flight lock exclusive across processes.
	LockFile string `yaml:"lock_file,omitempty" json:"lock_file,omitempty" mapstructure:"lock_file"`
}

// ToolSettings describes the tool handed to the retrieval model.
type ToolSettings struct {
	Name        string           `yaml:"name,omitempty" json:"name,omitempty" mapstructure:"name"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty" mapstructure:"description"`
	Choice      types.ToolChoice `yaml:"choice,omitempty" json:"choice,omitempty" mapstructure:"choice"`
}

type TemplateSettings struct {
	System    string `yaml:"system,omitempty" json:"system,omitempty" mapstructure:"system"`
	User      string `yaml:"user,omitempty" json:"user,omitempty" mapstructure:"user"`
	Injection string `yaml:"injection,omitempty" json:"injection,omitempty" mapstructure:"injection"`
}

// InjectionSettings configures where the retrieved context lands.
type InjectionSettings struct {
	Role     types.Role         `yaml:"role,omitempty" json:"role,omitempty" mapstructure:"role"`
	Position injection.Position `yaml:"position,omitempty" json:"position,omitempty" mapstructure:"position"`
	Depth    int                `yaml:"depth,omitempty" json:"depth,omitempty" mapstructure:"depth"`
	Merge    bool               `yaml:"merge,omitempty" json:"merge,omitempty" mapstructure:"merge"`
}

// Spec converts the settings into a placement spec.
func (s InjectionSettings) Spec() injection.Spec {
	return injection.Spec{
		Role:     s.Role,
		Position: s.Position,
		Depth:    s.Depth,
		Merge:    s.Merge,
	}
}

// MainToolSettings grants the retrieval tool to the outgoing request itself.
type MainToolSettings struct {
	Enabled bool             `yaml:"enabled,omitempty" json:"enabled,omitempty" mapstructure:"enabled"`
	Choice  types.ToolChoice `yaml:"choice,omitempty" json:"choice,omitempty" mapstructure:"choice"`
}

type CacheSettings struct {
	Enabled    bool         `yaml:"enabled,omitempty" json:"enabled,omitempty" mapstructure:"enabled"`
	Backend    CacheBackend `yaml:"backend,omitempty" json:"backend,omitempty" mapstructure:"backend"`
	URL        string       `yaml:"url,omitempty" json:"url,omitempty" mapstructure:"url"`
	TTLSeconds int          `yaml:"ttl_seconds,omitempty" json:"ttl_seconds,omitempty" mapstructure:"ttl_seconds"`
	Prefix     string       `yaml:"prefix,omitempty" json:"prefix,omitempty" mapstructure:"prefix"`
}

// TargetProvider returns the provider configured as the retrieval target, if any.
func (s *Settings) TargetProvider() (*ProviderConfig, bool) {
	if s.Retrieval.Target == "" || s.Providers == nil {
		return nil, false
	}
	p, ok := s.Providers[s.Retrieval.Target]
	return p, ok && p != nil
}

// BackoffStrategy selects how the delay between retrieval attempts grows.
type BackoffStrategy string

const (
	BackoffConstant    BackoffStrategy = "constant"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *BackoffStrategy) UnmarshalText(text []byte) error {
	switch s := BackoffStrategy(strings.ToLower(strings.TrimSpace(string(text)))); s {
	case BackoffConstant, BackoffLinear, BackoffExponential:
		*b = s
		return nil
	default:
		return fmt.Errorf("%w: backoff `%s`: expected constant, linear or exponential", errUtils.ErrInvalidConfiguration, string(text))
	}
}

// RetrySettings configures retries of the retrieval round trip. One attempt means no retry.
type RetrySettings struct {
	MaxAttempts     int             `yaml:"max_attempts,omitempty" json:"max_attempts,omitempty" mapstructure:"max_attempts"`
	BackoffStrategy BackoffStrategy `yaml:"backoff_strategy,omitempty" json:"backoff_strategy,omitempty" mapstructure:"backoff_strategy"`
	InitialDelay    time.Duration   `yaml:"initial_delay,omitempty" json:"initial_delay,omitempty" mapstructure:"initial_delay"`
	MaxDelay        time.Duration   `yaml:"max_delay,omitempty" json:"max_delay,omitempty" mapstructure:"max_delay"`
	Multiplier      float64         `yaml:"multiplier,omitempty" json:"multiplier,omitempty" mapstructure:"multiplier"`
	RandomJitter    bool            `yaml:"random_jitter,omitempty" json:"random_jitter,omitempty" mapstructure:"random_jitter"`
	MaxElapsedTime  time.Duration   `yaml:"max_elapsed_time,omitempty" json:"max_elapsed_time,omitempty" mapstructure:"max_elapsed_time"`
}
