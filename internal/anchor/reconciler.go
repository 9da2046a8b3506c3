package anchor

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/veritaslab/newstrust/internal/worker"
)

// Reconciler re-attempts anchor writes for articles whose ledger status
// never reached success. Attempts run through a bounded worker pool; one
// sweep is one batch.
type Reconciler struct {
	svc     *Service
	workers int
	batch   int
	log     *slog.Logger
}

// NewReconciler creates a reconciler sweeping up to batch articles per
// run across the given number of workers.
func NewReconciler(svc *Service, workers, batch int, log *slog.Logger) *Reconciler {
	if batch <= 0 {
		batch = 100
	}
	return &Reconciler{svc: svc, workers: workers, batch: batch, log: log}
}

// Run performs one sweep and reports how many articles were attempted and
// how many anchored successfully.
func (r *Reconciler) Run(ctx context.Context) (attempted, succeeded int, err error) {
	backlog, err := r.svc.store.ArticlesNeedingAnchor(ctx, r.batch)
	if err != nil {
		return 0, 0, err
	}
	if len(backlog) == 0 {
		return 0, 0, nil
	}

	pool := worker.NewPool(r.workers)
	pool.Start()
	for _, article := range backlog {
		id := article.ID
		pool.Submit(func(ctx context.Context) error {
			return r.svc.Anchor(ctx, id)
		})
	}

	for _, taskErr := range pool.Wait() {
		attempted++
		if taskErr == nil {
			succeeded++
		}
	}

	r.log.Info("anchor reconciliation sweep finished",
		"attempted", attempted,
		"succeeded", succeeded)
	return attempted, succeeded, nil
}

// Scheduler runs the reconciler on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	rec  *Reconciler
	log  *slog.Logger
}

// NewScheduler wires the reconciler onto the given cron expression
// (e.g. "@every 5m").
func NewScheduler(rec *Reconciler, schedule string, log *slog.Logger) (*Scheduler, error) {
	c := cron.New()
	s := &Scheduler{cron: c, rec: rec, log: log}
	_, err := c.AddFunc(schedule, func() {
		if _, _, err := rec.Run(context.Background()); err != nil {
			log.Error("anchor reconciliation sweep failed", "error", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins scheduled sweeps.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("anchor reconciler scheduled")
}

// Stop halts scheduling; a running sweep finishes on its own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
