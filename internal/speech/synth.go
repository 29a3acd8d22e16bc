// Package speech turns narration text into audio and plays utterances one
// at a time.
package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Synthesizer converts text to encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// SynthesizerFunc adapts a function to Synthesizer.
type SynthesizerFunc func(ctx context.Context, text string) ([]byte, error)

func (f SynthesizerFunc) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return f(ctx, text)
}

// DefaultBitrate is the bitrate assumed when sizing MP3 audio, in bits per
// second.
const DefaultBitrate = 48_000

// EstimateDuration estimates the play time of MP3 audio encoded at
// bitrate bits per second.
func EstimateDuration(audio []byte, bitrate int) time.Duration {
	if bitrate <= 0 {
		bitrate = DefaultBitrate
	}
	return time.Duration(len(audio)) * 8 * time.Second / time.Duration(bitrate)
}

// wordsPerSecond is the narration pace used by SilentSynthesizer.
const wordsPerSecond = 2.5

// SilentSynthesizer produces zeroed buffers sized so that their estimated
// duration matches a natural speaking pace. It lets the learning flow run
// without a speech backend.
type SilentSynthesizer struct {
	Bitrate int
}

func (s SilentSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bitrate := s.Bitrate
	if bitrate <= 0 {
		bitrate = DefaultBitrate
	}
	words := len(strings.Fields(text))
	bytesPerWord := float64(bitrate) / 8 / wordsPerSecond
	return make([]byte, int(float64(words)*bytesPerWord)), nil
}

// OpenAIConfig configures OpenAISynthesizer.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string // Default: "tts-1"
	Voice   string // Default: "nova"
}

// OpenAISynthesizer synthesizes speech with the OpenAI audio API.
type OpenAISynthesizer struct {
	client *openai.Client
	model  openai.SpeechModel
	voice  openai.SpeechVoice
}

// NewOpenAISynthesizer creates a synthesizer from cfg.
func NewOpenAISynthesizer(cfg OpenAIConfig) (*OpenAISynthesizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required for speech")
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	s := &OpenAISynthesizer{
		client: openai.NewClientWithConfig(config),
		model:  openai.TTSModel1,
		voice:  openai.VoiceNova,
	}
	if cfg.Model != "" {
		s.model = openai.SpeechModel(cfg.Model)
	}
	if cfg.Voice != "" {
		s.voice = openai.SpeechVoice(cfg.Voice)
	}
	return s, nil
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("create speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech audio: %w", err)
	}
	return audio, nil
}

// Voice returns the configured voice name.
func (s *OpenAISynthesizer) Voice() string { return string(s.voice) }

// ErrCacheMiss is returned by a Cache that holds no entry for a key.
var ErrCacheMiss = errors.New("speech: cache miss")

// Cache stores synthesized audio.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, audio []byte) error
}

// CachedSynthesizer serves repeated utterances from a Cache. Cache
// failures fall through to the wrapped synthesizer.
type CachedSynthesizer struct {
	inner Synthesizer
	cache Cache
	voice string
}

// WithCache wraps inner with cache. voice namespaces the cache keys.
func WithCache(inner Synthesizer, cache Cache, voice string) *CachedSynthesizer {
	return &CachedSynthesizer{inner: inner, cache: cache, voice: voice}
}

func (c *CachedSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	key := CacheKey(c.voice, text)
	if audio, err := c.cache.Get(ctx, key); err == nil {
		return audio, nil
	}

	audio, err := c.inner.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	// Write failures are ignored.
	_ = c.cache.Set(ctx, key, audio)
	return audio, nil
}

// CacheKey derives the cache key for text spoken in voice.
func CacheKey(voice, text string) string {
	sum := sha256.Sum256([]byte(voice + "\x00" + text))
	return "tts:" + hex.EncodeToString(sum[:])
}
