// Package config loads application settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Speech providers.
const (
	SpeechAuto   = "auto"
	SpeechOpenAI = "openai"
	SpeechRemote = "remote"
	SpeechSilent = "silent"
)

// Config is the resolved application configuration.
type Config struct {
	DBPath   string
	LogFile  string
	LogLevel string

	Speech SpeechConfig

	// BackendURL points at a `vidquiz serve` instance. When set, analysis
	// and reports go through it instead of a local LLM provider.
	BackendURL string

	Redis RedisConfig

	// StrictAudio requires a tap before each question is narrated.
	StrictAudio bool

	ServerAddr string
}

// SpeechConfig selects and configures speech synthesis and playback.
type SpeechConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Voice    string
	// Player is the external audio player ("ffplay", "mpg123", ...).
	// Empty means audio is timed but not played.
	Player string
}

// RedisConfig configures the synthesized audio cache. An empty Addr
// disables caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogLevel: "info",
		Speech: SpeechConfig{
			Provider: SpeechAuto,
		},
		Redis: RedisConfig{
			TTL: 7 * 24 * time.Hour,
		},
		ServerAddr: ":8080",
	}
}

// LoadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FromEnv builds a Config from VIDQUIZ_* variables.
func FromEnv() Config {
	cfg := Default()

	if v := os.Getenv("VIDQUIZ_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("VIDQUIZ_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("VIDQUIZ_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if v := os.Getenv("VIDQUIZ_SPEECH"); v != "" {
		cfg.Speech.Provider = strings.ToLower(v)
	}
	cfg.Speech.APIKey = firstEnv("VIDQUIZ_OPENAI_API_KEY", "OPENAI_API_KEY")
	cfg.Speech.BaseURL = os.Getenv("VIDQUIZ_OPENAI_BASE_URL")
	cfg.Speech.Model = os.Getenv("VIDQUIZ_TTS_MODEL")
	cfg.Speech.Voice = os.Getenv("VIDQUIZ_TTS_VOICE")
	cfg.Speech.Player = os.Getenv("VIDQUIZ_AUDIO_PLAYER")

	cfg.BackendURL = os.Getenv("VIDQUIZ_BACKEND_URL")

	cfg.Redis.Addr = os.Getenv("VIDQUIZ_REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("VIDQUIZ_REDIS_PASSWORD")
	if v := os.Getenv("VIDQUIZ_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	if v := os.Getenv("VIDQUIZ_REDIS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Redis.TTL = d
		}
	}

	if v := os.Getenv("VIDQUIZ_STRICT_AUDIO"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.StrictAudio = b
		}
	}
	if v := os.Getenv("VIDQUIZ_ADDR"); v != "" {
		cfg.ServerAddr = v
	}

	return cfg
}

// ResolveSpeech picks a concrete speech provider when Provider is auto:
// the backend when one is configured, OpenAI when a key is present,
// otherwise silent narration.
func (c Config) ResolveSpeech() string {
	if c.Speech.Provider != SpeechAuto && c.Speech.Provider != "" {
		return c.Speech.Provider
	}
	switch {
	case c.BackendURL != "":
		return SpeechRemote
	case c.Speech.APIKey != "":
		return SpeechOpenAI
	default:
		return SpeechSilent
	}
}

// Validate checks that the selected options are usable together.
func (c Config) Validate() error {
	switch c.Speech.Provider {
	case SpeechAuto, SpeechSilent, "":
	case SpeechOpenAI:
		if c.Speech.APIKey == "" {
			return fmt.Errorf("VIDQUIZ_OPENAI_API_KEY is required for openai speech")
		}
	case SpeechRemote:
		if c.BackendURL == "" {
			return fmt.Errorf("VIDQUIZ_BACKEND_URL is required for remote speech")
		}
	default:
		return fmt.Errorf("unknown speech provider: %q", c.Speech.Provider)
	}

	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return fmt.Errorf("unknown log level: %q", c.LogLevel)
	}

	if c.Redis.DB < 0 {
		return fmt.Errorf("VIDQUIZ_REDIS_DB must not be negative")
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
