package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/veritaslab/newstrust/internal/anchor"
)

var (
	reconcileDaemon  bool
	reconcileTimeout time.Duration
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Re-attempt failed and pending ledger anchors",
	Long: `Reconcile sweeps articles whose anchor never reached success and
re-attempts the ledger write through a bounded worker pool.

By default it runs one sweep and exits. With --daemon it keeps sweeping
on the configured cron schedule until interrupted.

Example:
  newstrust reconcile
  newstrust reconcile --daemon`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().BoolVar(&reconcileDaemon, "daemon", false, "keep sweeping on the configured schedule")
	reconcileCmd.Flags().DurationVar(&reconcileTimeout, "timeout", 5*time.Minute, "single sweep timeout")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	if reconcileDaemon {
		sched, err := anchor.NewScheduler(app.rec, app.cfg.Ledger.ReconcileSchedule, app.log)
		if err != nil {
			return fmt.Errorf("invalid reconcile schedule %q: %w", app.cfg.Ledger.ReconcileSchedule, err)
		}
		sched.Start()
		defer sched.Stop()

		fmt.Fprintf(os.Stderr, "Reconciling on schedule %q, Ctrl-C to stop\n", app.cfg.Ledger.ReconcileSchedule)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	attempted, succeeded, err := app.rec.Run(ctx)
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}

	fmt.Printf("Attempted %d, anchored %d\n", attempted, succeeded)
	return nil
}
