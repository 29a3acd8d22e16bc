package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/spf13/cobra"

	"github.com/abhisek/vidquiz/internal/llm"
	"github.com/abhisek/vidquiz/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect recorded video-analysis and report requests",
}

// withEvents opens the store named by --db for one command.
func withEvents(cmd *cobra.Command, fn func(store.EventRepo) error) error {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer s.Close()
	return fn(s.EventRepo())
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderColumn(false).
		BorderLeft(false).
		BorderRight(false).
		Headers(headers...)
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent requests, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		failed, _ := cmd.Flags().GetBool("failed")
		asJSON, _ := cmd.Flags().GetBool("json")

		return withEvents(cmd, func(repo store.EventRepo) error {
			events, err := repo.QueryLLMEvents(cmd.Context(), store.QueryOpts{
				Limit:      limit,
				Purpose:    purpose,
				FailedOnly: failed,
			})
			if err != nil {
				return fmt.Errorf("query events: %w", err)
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(events)
			}
			if len(events) == 0 {
				fmt.Println("No requests recorded.")
				return nil
			}

			t := newTable("ID", "Time", "Purpose", "Try", "Model", "In", "Out", "Latency", "")
			for _, e := range events {
				status := "✓"
				if !e.Success {
					status = "✗ " + truncate(e.ErrorMessage, 40)
				}
				t.Row(
					strconv.FormatInt(e.ID, 10),
					e.Timestamp.Local().Format("Jan 02 15:04:05"),
					e.Purpose,
					strconv.Itoa(e.Attempt),
					truncate(e.Model, 28),
					strconv.Itoa(e.InputTokens),
					strconv.Itoa(e.OutputTokens),
					(time.Duration(e.LatencyMs) * time.Millisecond).String(),
					status,
				)
			}
			fmt.Println(t.Render())
			return nil
		})
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the full prompt and answer of one request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		return withEvents(cmd, func(repo store.EventRepo) error {
			e, err := repo.GetLLMEvent(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get event: %w", err)
			}
			if e == nil {
				return fmt.Errorf("event %d not found", id)
			}

			label := lipgloss.NewStyle().Bold(true).Width(10)
			field := func(name, value string) {
				fmt.Println(label.Render(name) + value)
			}
			field("ID", strconv.FormatInt(e.ID, 10))
			field("Time", e.Timestamp.Local().Format(time.DateTime))
			field("Provider", e.Provider)
			field("Model", e.Model)
			field("Purpose", e.Purpose)
			field("Attempt", strconv.Itoa(e.Attempt))
			field("Tokens", fmt.Sprintf("%d in / %d out", e.InputTokens, e.OutputTokens))
			field("Latency", (time.Duration(e.LatencyMs) * time.Millisecond).String())
			if e.Success {
				field("Result", "ok")
			} else {
				field("Result", "failed: "+e.ErrorMessage)
			}

			section := lipgloss.NewStyle().Bold(true).
				Border(lipgloss.NormalBorder(), false, false, true, false).
				MarginTop(1)
			fmt.Println(section.Render("Request"))
			fmt.Println(orNotCaptured(e.RequestBody))
			fmt.Println(section.Render("Response"))
			fmt.Println(orNotCaptured(prettyJSON(e.ResponseBody)))
			return nil
		})
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage per purpose and estimated cost per model",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEvents(cmd, func(repo store.EventRepo) error {
			ctx := cmd.Context()
			byPurpose, err := repo.LLMUsageByPurpose(ctx)
			if err != nil {
				return fmt.Errorf("query usage: %w", err)
			}
			if len(byPurpose) == 0 {
				fmt.Println("No requests recorded yet.")
				return nil
			}

			var calls, in, out int
			usage := newTable("Purpose", "Calls", "Input", "Output", "Avg latency")
			for _, u := range byPurpose {
				usage.Row(u.Purpose, strconv.Itoa(u.Calls), strconv.Itoa(u.InputTokens), strconv.Itoa(u.OutputTokens),
					(time.Duration(u.AvgLatencyMs) * time.Millisecond).String())
				calls += u.Calls
				in += u.InputTokens
				out += u.OutputTokens
			}
			usage.Row("total", strconv.Itoa(calls), strconv.Itoa(in), strconv.Itoa(out), "")
			fmt.Println(usage.Render())

			byModel, err := repo.LLMUsageByModel(ctx)
			if err != nil {
				return fmt.Errorf("query model usage: %w", err)
			}
			if len(byModel) == 0 {
				return nil
			}

			var total float64
			var unpriced []string
			costs := newTable("Model", "Calls", "Input", "Output", "Cost (USD)")
			for _, m := range byModel {
				cost := "?"
				if price := llm.LookupCost(m.Model); price != nil {
					c := price.Cost(m.InputTokens, m.OutputTokens)
					total += c
					cost = formatCost(c)
				} else {
					unpriced = append(unpriced, m.Model)
				}
				costs.Row(truncate(m.Model, 32), strconv.Itoa(m.Calls), strconv.Itoa(m.InputTokens), strconv.Itoa(m.OutputTokens), cost)
			}
			totalLabel := "total"
			if len(unpriced) > 0 {
				totalLabel = "total (partial)"
			}
			costs.Row(totalLabel, "", "", "", formatCost(total))
			fmt.Println()
			fmt.Println(costs.Render())
			if len(unpriced) > 0 {
				fmt.Printf("\nNo pricing for: %s\n", strings.Join(unpriced, ", "))
			}
			return nil
		})
	},
}

var llmPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete recorded requests older than a cutoff",
	RunE: func(cmd *cobra.Command, args []string) error {
		age, _ := cmd.Flags().GetDuration("older-than")
		if age <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}
		return withEvents(cmd, func(repo store.EventRepo) error {
			n, err := repo.PruneLLMEvents(cmd.Context(), time.Now().Add(-age))
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d request(s).\n", n)
			return nil
		})
	},
}

func orNotCaptured(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(not captured)"
	}
	return s
}

// prettyJSON indents s when it is JSON and returns it unchanged otherwise.
func prettyJSON(s string) string {
	var v any
	if json.Unmarshal([]byte(s), &v) != nil {
		return s
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return s
	}
	return string(b)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of requests to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Only show one purpose ("+llm.PurposeVideoAnalysis+", "+llm.PurposeReport+")")
	llmListCmd.Flags().Bool("failed", false, "Only show failed requests")
	llmListCmd.Flags().Bool("json", false, "Print JSON")

	llmPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "Delete requests recorded before now minus this")

	llmCmd.AddCommand(llmListCmd, llmViewCmd, llmStatsCmd, llmPruneCmd)
}
