package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var (
	verifyStrict  bool
	verifyTimeout time.Duration
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <article-id>",
	Short: "Verify an article against its ledger anchor",
	Long: `Verify recomputes the hash of the stored article text and compares it
with the anchored hash; any tampering since anchoring reports as
unverified. With --strict the ledger is also queried and the anchored
score cross-checked against the stored composite.

Example:
  newstrust verify 42
  newstrust verify 42 --strict`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().BoolVar(&verifyStrict, "strict", false, "also cross-check the ledger proof")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 30*time.Second, "overall verification timeout")
}

func runVerify(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid article id %q", args[0])
	}

	app, err := newApp()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	result, err := app.anchors.Verify(ctx, uint(id), verifyStrict)
	if err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}

	return printJSON(result)
}
