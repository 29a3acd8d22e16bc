package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/vidquiz/internal/server"
	"github.com/abhisek/vidquiz/internal/speech"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP backend for speech, analysis and reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = e.cfg.ServerAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if e.cfg.BackendURL != "" {
			e.log.Warn().Msg("ignoring VIDQUIZ_BACKEND_URL while serving")
			e.cfg.BackendURL = ""
		}
		analyzer := buildAnalyzer(ctx, e)
		if analyzer == nil {
			return fmt.Errorf("no LLM provider configured; the backend needs one for analysis")
		}

		var synth speech.Synthesizer = speech.SilentSynthesizer{}
		closeCache := func() {}
		if e.cfg.Speech.APIKey != "" {
			synth, closeCache = buildSynthesizer(ctx, e)
		} else {
			e.log.Warn().Msg("no speech key configured, /api/speak returns silent audio")
		}
		defer closeCache()

		return server.New(synth, analyzer, e.log).Listen(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides VIDQUIZ_ADDR, default :8080)")
}
