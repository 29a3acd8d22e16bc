package llm

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config selects an LLM provider and carries every provider's settings.
// Only the selected provider's block is used.
type Config struct {
	// Provider is "gemini", "openai", "anthropic", "openrouter" or "mock".
	Provider string

	Gemini     GeminiConfig
	OpenAI     OpenAIConfig
	Anthropic  AnthropicConfig
	OpenRouter OpenRouterConfig

	Retry RetryConfig
	// Timeout bounds one Generate call, retries included. Watching a
	// long video takes a while, so the default is generous.
	Timeout time.Duration
}

type GeminiConfig struct {
	APIKey string
	Model  string
	// MediaResolution is "low", "medium" or "high". Empty leaves the
	// model default.
	MediaResolution string
	BaseURL         string
}

// OpenAIConfig also serves any OpenAI-compatible endpoint via BaseURL.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

// OpenRouterConfig model names are OpenRouter IDs such as
// "google/gemini-2.0-flash-exp". BaseURL defaults to the public API.
type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// RetryConfig shapes the backoff of RetryProvider.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

func DefaultConfig() Config {
	return Config{
		Provider:   "gemini",
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.0-flash-exp"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
		},
		Timeout: 120 * time.Second,
	}
}

// envBinding copies one environment variable into a Config field.
type envBinding struct {
	name string
	set  func(c *Config, v string)
}

var envBindings = []envBinding{
	{"VIDQUIZ_LLM_PROVIDER", func(c *Config, v string) { c.Provider = strings.ToLower(v) }},
	{"VIDQUIZ_LLM_TIMEOUT", func(c *Config, v string) {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Timeout = d
		}
	}},
	{"VIDQUIZ_LLM_MAX_ATTEMPTS", func(c *Config, v string) {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retry.MaxAttempts = n
		}
	}},

	{"VIDQUIZ_GEMINI_API_KEY", func(c *Config, v string) { c.Gemini.APIKey = v }},
	{"VIDQUIZ_GEMINI_MODEL", func(c *Config, v string) { c.Gemini.Model = v }},
	{"VIDQUIZ_GEMINI_MEDIA_RESOLUTION", func(c *Config, v string) { c.Gemini.MediaResolution = v }},

	{"VIDQUIZ_OPENAI_API_KEY", func(c *Config, v string) { c.OpenAI.APIKey = v }},
	{"VIDQUIZ_OPENAI_MODEL", func(c *Config, v string) { c.OpenAI.Model = v }},
	{"VIDQUIZ_OPENAI_BASE_URL", func(c *Config, v string) { c.OpenAI.BaseURL = v }},

	{"VIDQUIZ_ANTHROPIC_API_KEY", func(c *Config, v string) { c.Anthropic.APIKey = v }},
	{"VIDQUIZ_ANTHROPIC_MODEL", func(c *Config, v string) { c.Anthropic.Model = v }},

	{"VIDQUIZ_OPENROUTER_API_KEY", func(c *Config, v string) { c.OpenRouter.APIKey = v }},
	{"VIDQUIZ_OPENROUTER_MODEL", func(c *Config, v string) { c.OpenRouter.Model = v }},
}

// ConfigFromEnv applies the VIDQUIZ_* variables on top of DefaultConfig.
// Unparseable durations and counts are ignored.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	for _, b := range envBindings {
		if v := strings.TrimSpace(os.Getenv(b.name)); v != "" {
			b.set(&cfg, v)
		}
	}
	return cfg
}

// wellKnownKeys are the vendor variables probed when nothing VIDQUIZ_*
// selects a provider, in priority order. Gemini comes first because it is
// the only provider that watches the video.
var wellKnownKeys = []struct {
	env      string
	provider string
}{
	{"GEMINI_API_KEY", "gemini"},
	{"GOOGLE_API_KEY", "gemini"},
	{"OPENAI_API_KEY", "openai"},
	{"ANTHROPIC_API_KEY", "anthropic"},
	{"OPENROUTER_API_KEY", "openrouter"},
}

// DiscoverConfig returns a Config for the first vendor API key variable
// that is set.
func DiscoverConfig() (Config, bool) {
	for _, k := range wellKnownKeys {
		key := os.Getenv(k.env)
		if key == "" {
			continue
		}
		cfg := DefaultConfig()
		cfg.Provider = k.provider
		if err := cfg.setKey(key); err != nil {
			return Config{}, false
		}
		return cfg, true
	}
	return Config{}, false
}

func (c *Config) setKey(key string) error {
	switch c.Provider {
	case "gemini":
		c.Gemini.APIKey = key
	case "openai":
		c.OpenAI.APIKey = key
	case "anthropic":
		c.Anthropic.APIKey = key
	case "openrouter":
		c.OpenRouter.APIKey = key
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}

// apiKey returns the key of the selected provider.
func (c Config) apiKey() string {
	switch c.Provider {
	case "gemini":
		return c.Gemini.APIKey
	case "openai":
		return c.OpenAI.APIKey
	case "anthropic":
		return c.Anthropic.APIKey
	case "openrouter":
		return c.OpenRouter.APIKey
	}
	return ""
}

// Validate checks that the selected provider exists and has a key.
func (c Config) Validate() error {
	switch c.Provider {
	case "mock":
		return nil
	case "gemini", "openai", "anthropic", "openrouter":
		if c.apiKey() == "" {
			return fmt.Errorf("VIDQUIZ_%s_API_KEY is required for the %s provider", strings.ToUpper(c.Provider), c.Provider)
		}
		return nil
	}
	return fmt.Errorf("unknown LLM provider: %q", c.Provider)
}
