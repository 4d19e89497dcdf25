package config

import (
	"fmt"
	"time"
)

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// DeliveryConfig represents one command delivery budget
type DeliveryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// VerifyConfig represents the verification client configuration
type VerifyConfig struct {
	Enabled        bool
	Endpoints      []string
	AttemptTimeout time.Duration
	Start          DeliveryConfig
	Result         DeliveryConfig
}

// FeedConfig represents the phishing feed configuration
type FeedConfig struct {
	URL          string
	TTL          time.Duration
	FetchTimeout time.Duration
	SampleSize   int
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetVerify returns the verification client configuration
func (c *Config) GetVerify() (VerifyConfig, error) {
	attemptTimeout, err := c.GetDuration("verify.attempt_timeout")
	if err != nil {
		return VerifyConfig{}, fmt.Errorf("invalid verify.attempt_timeout: %w", err)
	}
	startBackoff, err := c.GetDuration("delivery.start.base_backoff")
	if err != nil {
		return VerifyConfig{}, fmt.Errorf("invalid delivery.start.base_backoff: %w", err)
	}
	resultBackoff, err := c.GetDuration("delivery.result.base_backoff")
	if err != nil {
		return VerifyConfig{}, fmt.Errorf("invalid delivery.result.base_backoff: %w", err)
	}

	return VerifyConfig{
		Enabled:        c.GetBool("verify.enabled"),
		Endpoints:      c.GetStringSlice("verify.endpoints"),
		AttemptTimeout: attemptTimeout,
		Start: DeliveryConfig{
			MaxAttempts: c.GetInt("delivery.start.max_attempts"),
			BaseBackoff: startBackoff,
		},
		Result: DeliveryConfig{
			MaxAttempts: c.GetInt("delivery.result.max_attempts"),
			BaseBackoff: resultBackoff,
		},
	}, nil
}

// GetFeed returns the phishing feed configuration
func (c *Config) GetFeed() (FeedConfig, error) {
	ttl, err := c.GetDuration("feed.ttl")
	if err != nil {
		return FeedConfig{}, fmt.Errorf("invalid feed.ttl: %w", err)
	}
	fetchTimeout, err := c.GetDuration("feed.fetch_timeout")
	if err != nil {
		return FeedConfig{}, fmt.Errorf("invalid feed.fetch_timeout: %w", err)
	}

	return FeedConfig{
		URL:          c.GetString("feed.url"),
		TTL:          ttl,
		FetchTimeout: fetchTimeout,
		SampleSize:   c.GetInt("feed.sample_size"),
	}, nil
}
