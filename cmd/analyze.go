package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/vidquiz/internal/quiz"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>...",
	Short: "Generate quiz segments for videos and print them as JSON",
	Args:  cobra.RangeArgs(1, quiz.MaxVideos),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, _ := cmd.Flags().GetString("language")
		language := quiz.ParseLanguage(lang)

		urls, err := quiz.ValidateVideoURLs(args)
		if err != nil {
			return err
		}

		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()

		analyzer := buildAnalyzer(ctx, e)
		if analyzer == nil {
			return fmt.Errorf("no LLM provider or backend configured")
		}
		results, err := analyzer.AnalyzeAll(ctx, urls, language)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

func init() {
	analyzeCmd.Flags().String("language", string(quiz.English), "Language for translated explanations (english, spanish, hindi)")
}
