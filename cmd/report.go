package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/vidquiz/internal/quiz"
	"github.com/abhisek/vidquiz/internal/session"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a performance report from an answer history",
	Long: `Generate a performance report from an answer history.

The history is read from --history (a JSON array of answer records) or,
when omitted, from the finished or in-progress session in the database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		historyFile, _ := cmd.Flags().GetString("history")
		name, _ := cmd.Flags().GetString("name")
		asJSON, _ := cmd.Flags().GetBool("json")

		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()

		var history []quiz.AnswerRecord
		if historyFile != "" {
			data, err := os.ReadFile(historyFile)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			if err := json.Unmarshal(data, &history); err != nil {
				return fmt.Errorf("parse history: %w", err)
			}
		} else {
			sess, err := session.NewStore(e.store.KV(), session.WithLogger(e.log)).Load(ctx)
			if err != nil {
				return err
			}
			if sess == nil {
				return fmt.Errorf("no stored session; pass --history")
			}
			history = sess.Progress.History
			if name == "" {
				name = sess.UserName
			}
		}
		if len(history) == 0 {
			return fmt.Errorf("the answer history is empty")
		}

		analyzer := buildAnalyzer(ctx, e)
		if analyzer == nil {
			return fmt.Errorf("no LLM provider or backend configured")
		}
		r, err := analyzer.GenerateReport(ctx, history, name)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		}

		correct := quiz.Score(history)
		fmt.Printf("Score: %d / %d\n", correct, len(history))
		printList("Strengths", r.Strengths)
		printList("Areas to improve", r.Improvements)
		printList("Recommendations", r.Recommendations)
		return nil
	},
}

func printList(title string, items []string) {
	fmt.Println()
	fmt.Println(title)
	fmt.Println(strings.Repeat("─", len(title)))
	for _, it := range items {
		fmt.Println("  •", it)
	}
}

func init() {
	reportCmd.Flags().String("history", "", "JSON file holding the answer history")
	reportCmd.Flags().String("name", "", "Learner name used in the report")
	reportCmd.Flags().Bool("json", false, "Print the report as JSON")
}
