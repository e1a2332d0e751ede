// Package base holds helpers shared by the provider clients.
package base

import (
	"fmt"

	"github.com/spf13/viper"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/schema"
)

// ProviderDefaults contains the default values a provider falls back to.
type ProviderDefaults struct {
	Model     string
	APIKeyEnv string
	MaxTokens int
	BaseURL   string
}

// Config is the resolved configuration of one provider client.
type Config struct {
	Model     string
	APIKeyEnv string
	MaxTokens int
	BaseURL   string
	Project   string
	Location  string
}

// ExtractConfig overlays a provider profile on the provider defaults.
// Zero values in the profile are treated as "not set".
func ExtractConfig(profile *schema.ProviderConfig, defaults ProviderDefaults) *Config {
	config := &Config{
		Model:     defaults.Model,
		APIKeyEnv: defaults.APIKeyEnv,
		MaxTokens: defaults.MaxTokens,
		BaseURL:   defaults.BaseURL,
	}

	if profile == nil {
		return config
	}

	if profile.Model != "" {
		config.Model = profile.Model
	}
	if profile.ApiKeyEnv != "" {
		config.APIKeyEnv = profile.ApiKeyEnv
	}
	if profile.MaxTokens > 0 {
		config.MaxTokens = profile.MaxTokens
	}
	if profile.BaseURL != "" {
		config.BaseURL = profile.BaseURL
	}
	config.Project = profile.Project
	config.Location = profile.Location

	return config
}

// GetAPIKey reads an API key from the named environment variable.
func GetAPIKey(envVar string) string {
	_ = viper.BindEnv(envVar, envVar)
	return viper.GetString(envVar)
}

// RequireAPIKey is GetAPIKey but fails when the variable is unset or empty.
func RequireAPIKey(envVar string) (string, error) {
	apiKey := GetAPIKey(envVar)
	if apiKey == "" {
		return "", errUtils.Build(fmt.Errorf("%w: %s", errUtils.ErrAPIKeyNotFound, envVar)).
			WithHintf("export %s before running weave", envVar).
			WithContext("env", envVar).
			Err()
	}
	return apiKey, nil
}

// TokenBudget returns requested when positive, otherwise the configured maximum.
func (c *Config) TokenBudget(requested int) int {
	if requested > 0 {
		return requested
	}
	return c.MaxTokens
}
