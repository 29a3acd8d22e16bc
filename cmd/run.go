package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abhisek/vidquiz/internal/analysis"
	"github.com/abhisek/vidquiz/internal/app"
	"github.com/abhisek/vidquiz/internal/config"
	"github.com/abhisek/vidquiz/internal/llm"
	"github.com/abhisek/vidquiz/internal/logging"
	"github.com/abhisek/vidquiz/internal/orchestrator"
	"github.com/abhisek/vidquiz/internal/platform"
	"github.com/abhisek/vidquiz/internal/quiz"
	"github.com/abhisek/vidquiz/internal/remote"
	"github.com/abhisek/vidquiz/internal/screens"
	"github.com/abhisek/vidquiz/internal/session"
	"github.com/abhisek/vidquiz/internal/speech"
	"github.com/abhisek/vidquiz/internal/store"
)

// env is what every command starts from: configuration, the database and
// a logger.
type env struct {
	cfg    config.Config
	store  *store.Store
	log    zerolog.Logger
	closer io.Closer
}

func (e *env) Close() {
	e.closer.Close()
	e.store.Close()
}

// openEnv loads configuration and opens the store. Interactive commands
// log to a file because the TUI owns the terminal; the others log to
// stderr.
func openEnv(cmd *cobra.Command, interactive bool) (*env, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg := config.FromEnv()
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	cfg.DBPath = dbPath

	logOpts := logging.Options{Level: cfg.LogLevel, Console: true, Out: os.Stderr}
	if interactive {
		logOpts.File = cfg.LogFile
		if logOpts.File == "" {
			logOpts.File = logging.DefaultFile(dbPath)
		}
	}
	log, closer, err := logging.New(logOpts)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(dbPath)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &env{cfg: cfg, store: st, log: log, closer: closer}, nil
}

// buildAnalyzer returns the backend client when VIDQUIZ_BACKEND_URL is
// set and a local LLM-backed service otherwise. It returns nil when
// neither is available.
func buildAnalyzer(ctx context.Context, e *env) screens.Analyzer {
	if e.cfg.BackendURL != "" {
		e.log.Info().Str("backend", e.cfg.BackendURL).Msg("using remote analysis")
		return remote.New(e.cfg.BackendURL, 0)
	}
	provider, cfg, err := llm.NewProviderFromEnv(ctx, e.store.EventRepo(), e.log)
	if err != nil {
		if !errors.Is(err, llm.ErrNotConfigured) {
			e.log.Warn().Err(err).Msg("LLM provider unavailable")
		}
		return nil
	}
	e.log.Info().Str("provider", cfg.Provider).Str("model", provider.ModelID()).Msg("using local analysis")
	return analysis.NewService(provider, analysis.DefaultConfig(), analysis.WithLogger(e.log))
}

// buildSynthesizer picks the speech provider, wrapping it with the Redis
// audio cache when one is configured.
func buildSynthesizer(ctx context.Context, e *env) (speech.Synthesizer, func()) {
	var (
		synth speech.Synthesizer
		voice string
	)
	switch e.cfg.ResolveSpeech() {
	case config.SpeechOpenAI:
		s, err := speech.NewOpenAISynthesizer(speech.OpenAIConfig{
			APIKey:  e.cfg.Speech.APIKey,
			BaseURL: e.cfg.Speech.BaseURL,
			Model:   e.cfg.Speech.Model,
			Voice:   e.cfg.Speech.Voice,
		})
		if err != nil {
			e.log.Warn().Err(err).Msg("openai speech unavailable, narrating silently")
			return speech.SilentSynthesizer{}, func() {}
		}
		synth, voice = s, "openai:"+s.Voice()
	case config.SpeechRemote:
		synth, voice = remote.New(e.cfg.BackendURL, 0), "remote"
	default:
		return speech.SilentSynthesizer{}, func() {}
	}

	if e.cfg.Redis.Addr == "" {
		return synth, func() {}
	}
	cache := speech.NewRedisCache(e.cfg.Redis.Addr, e.cfg.Redis.Password, e.cfg.Redis.DB, e.cfg.Redis.TTL)
	if err := cache.Ping(ctx); err != nil {
		e.log.Warn().Err(err).Str("addr", e.cfg.Redis.Addr).Msg("speech cache unavailable")
		cache.Close()
		return synth, func() {}
	}
	return speech.WithCache(synth, cache, voice), func() { cache.Close() }
}

// buildOutput plays audio through the configured external player, or
// only times it when there is none.
func buildOutput(e *env) speech.Output {
	if e.cfg.Speech.Player == "" {
		return speech.TimedOutput{}
	}
	out, err := speech.NewCommandOutput(e.cfg.Speech.Player)
	if err != nil {
		e.log.Warn().Err(err).Msg("audio player unavailable, narration is timed only")
		return speech.TimedOutput{}
	}
	return out
}

// runApp opens the store, builds dependencies, and launches the TUI.
func runApp(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := openEnv(cmd, true)
	if err != nil {
		return err
	}
	defer e.Close()

	strict, _ := cmd.Flags().GetBool("strict-audio")
	rate, _ := cmd.Flags().GetFloat64("rate")
	skip, _ := cmd.Flags().GetBool("skip-intro")
	lang, _ := cmd.Flags().GetString("language")
	name, _ := cmd.Flags().GetString("name")
	videos, _ := cmd.Flags().GetStringSlice("video")

	language := quiz.ParseLanguage(lang)

	plat := platform.New(strict || e.cfg.StrictAudio)
	synth, closeCache := buildSynthesizer(ctx, e)
	defer closeCache()
	narrator := speech.NewSequencer(synth, buildOutput(e),
		speech.WithPlatform(plat),
		speech.WithLogger(e.log),
	)

	sessions := session.NewStore(e.store.KV(), session.WithLogger(e.log))
	if _, err := sessions.Load(ctx); err != nil {
		e.log.Warn().Err(err).Msg("load stored session")
	}

	opts := app.Options{
		Sessions:     sessions,
		KV:           e.store.KV(),
		Narrator:     narrator,
		Platform:     plat,
		Logger:       e.log,
		PlaybackRate: rate,
		Orchestrator: orchestrator.Options{},
		Defaults:     screens.Request{Videos: videos, Language: language, Name: name},
		SkipWelcome:  skip,
	}
	if a := buildAnalyzer(ctx, e); a != nil {
		opts.Analyzer = a
	} else {
		fmt.Fprintln(os.Stderr, "No LLM provider or backend configured.")
		fmt.Fprintln(os.Stderr, "New sessions are unavailable; set GEMINI_API_KEY or VIDQUIZ_BACKEND_URL.")
	}

	e.log.Info().Bool("strict_audio", plat.Strict()).Float64("rate", rate).Msg("starting tui")
	return app.Run(opts)
}

func addPlayFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("strict-audio", false, "Require a key press before each question is narrated")
	cmd.Flags().Float64("rate", 1, "Simulated playback speed")
	cmd.Flags().Bool("skip-intro", false, "Skip the welcome animation")
	cmd.Flags().String("language", string(quiz.English), "Language for translated explanations (english, spanish, hindi)")
	cmd.Flags().String("name", "", "Pre-fill the learner name")
	cmd.Flags().StringSlice("video", nil, "Pre-fill a video URL (repeatable)")
}

// defaultTimeout bounds the non-interactive analysis and report commands.
const defaultTimeout = 5 * time.Minute
