package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/vidquiz/internal/queue"
	"github.com/abhisek/vidquiz/internal/session"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the stored session and learning progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, false)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := context.Background()
		if err := session.NewStore(e.store.KV(), session.WithLogger(e.log)).Clear(ctx); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		if err := queue.NewPersister(e.store.KV(), queue.WithLogger(e.log)).Clear(ctx); err != nil {
			return fmt.Errorf("clear learning progress: %w", err)
		}
		fmt.Println("Stored session cleared.")
		return nil
	},
}
