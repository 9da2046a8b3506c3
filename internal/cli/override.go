package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var (
	overrideReason  string
	overrideActor   string
	overrideTimeout time.Duration
)

// overrideCmd represents the override command
var overrideCmd = &cobra.Command{
	Use:   "override <article-id> <score>",
	Short: "Manually override an article's trust score",
	Long: `Override replaces the article's composite score with a manually
assigned value in [0,1] and recomputes the author's trust aggregates by
replaying the author's full history with the corrected score in place.

Example:
  newstrust override 42 0.85 --reason "manual fact-check passed" --actor editor@example.com`,
	Args: cobra.ExactArgs(2),
	RunE: runOverride,
}

func init() {
	rootCmd.AddCommand(overrideCmd)

	overrideCmd.Flags().StringVar(&overrideReason, "reason", "", "why the score is being overridden (required)")
	overrideCmd.Flags().StringVar(&overrideActor, "actor", "", "who is overriding")
	overrideCmd.Flags().DurationVar(&overrideTimeout, "timeout", 30*time.Second, "overall override timeout")
	_ = overrideCmd.MarkFlagRequired("reason")
}

func runOverride(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid article id %q", args[0])
	}
	newScore, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid score %q", args[1])
	}

	app, err := newApp()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), overrideTimeout)
	defer cancel()

	result, err := app.scores.OverrideTrust(ctx, uint(id), newScore, overrideReason, overrideActor)
	if err != nil {
		return fmt.Errorf("override failed: %w", err)
	}

	return printJSON(result)
}
