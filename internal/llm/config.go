// Package llm wraps the model providers used for article generation behind a
// single Client interface.
package llm

import (
	"fmt"
	"strings"
)

// ModelTier represents the capability level of a model.
type ModelTier string

const (
	// TierLite is for cheap, short completions.
	TierLite ModelTier = "lite"
	// TierStandard is for edit passes over existing articles.
	TierStandard ModelTier = "standard"
	// TierAdvanced is for full article generation.
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

const (
	// ProviderGemini is Google Gemini via generative-ai-go.
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI is the OpenAI chat completions API (or any compatible endpoint).
	ProviderOpenAI Provider = "openai"
)

// ParseProvider normalises a provider name. Empty input selects Gemini.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ProviderGemini):
		return ProviderGemini, nil
	case string(ProviderOpenAI):
		return ProviderOpenAI, nil
	default:
		return "", fmt.Errorf("unknown LLM provider %q", s)
	}
}

// Config holds the model configuration for one provider.
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
	// BaseURL overrides the provider endpoint. Only the OpenAI client honours it.
	BaseURL string
}

// DefaultConfig returns the Gemini configuration.
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// DefaultOpenAIConfig returns the default OpenAI configuration.
func DefaultOpenAIConfig() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Models: map[ModelTier]string{
			TierLite:     "gpt-4o-mini",
			TierStandard: "gpt-4o",
			TierAdvanced: "gpt-4o",
		},
	}
}

// ConfigFor returns the default configuration of provider.
func ConfigFor(provider Provider) *Config {
	if provider == ProviderOpenAI {
		return DefaultOpenAIConfig()
	}
	return DefaultGeminiConfig()
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a copy of the config with model set for tier.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	out := &Config{
		Provider: c.Provider,
		BaseURL:  c.BaseURL,
		Models:   make(map[ModelTier]string, len(c.Models)+1),
	}
	for k, v := range c.Models {
		out.Models[k] = v
	}
	out.Models[tier] = model
	return out
}

// WithAllModels pins every tier to one model.
func (c *Config) WithAllModels(model string) *Config {
	out := c.WithModel(TierAdvanced, model)
	out.Models[TierStandard] = model
	out.Models[TierLite] = model
	return out
}
