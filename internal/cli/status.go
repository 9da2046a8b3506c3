package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusTimeout time.Duration

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus totals, degradation counters and circuit states",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 10*time.Second, "status timeout")
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	dash, err := app.scores.Dashboard(ctx)
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	return printJSON(dash)
}
