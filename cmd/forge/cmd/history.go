package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"contentforge/internal/engineinit"
	"contentforge/internal/observability"
)

var historyCmd = &cobra.Command{
	Use:   "history <movieId>",
	Short: "List a movie's past build summaries, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	movieID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.Logging)

	ws, err := engineinit.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("opening workspace: %w", err)
	}

	rows, err := ws.Ledger.History(movieID)
	if err != nil {
		return fmt.Errorf("reading build history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintf(out, "no build history for %s\n", movieID)
		return nil
	}
	for _, row := range rows {
		fmt.Fprintf(out, "revision %d: %s (%d succeeded, %d failed, %d skipped)\n",
			row.Revision, row.Status, row.Succeeded, row.Failed, row.Skipped)
	}
	return nil
}
