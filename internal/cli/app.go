package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/veritaslab/newstrust/internal/anchor"
	"github.com/veritaslab/newstrust/internal/detect"
	"github.com/veritaslab/newstrust/internal/image"
	"github.com/veritaslab/newstrust/internal/metrics"
	"github.com/veritaslab/newstrust/internal/model"
	"github.com/veritaslab/newstrust/internal/resilient"
	"github.com/veritaslab/newstrust/internal/score"
	"github.com/veritaslab/newstrust/internal/scorer"
	"github.com/veritaslab/newstrust/internal/store"
)

// app is the assembled service graph. Each downstream dependency gets
// its own gateway so one failing service cannot trip another's breaker.
type app struct {
	cfg *model.Config
	log *slog.Logger
	reg *metrics.Registry

	store   *store.Store
	scores  *score.Service
	images  *image.Engine
	anchors *anchor.Service
	rec     *anchor.Reconciler
}

// newApp builds the full graph from configuration.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	reg := metrics.NewRegistry()

	st, err := store.Open(cfg.Database.Path, cfg.Database.BestEffort, log, reg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	gateway := resilient.Config{
		Timeout:           cfg.Gateway.Timeout,
		Retries:           cfg.Gateway.Retries,
		FailureThreshold:  cfg.Gateway.FailureThreshold,
		Cooldown:          cfg.Gateway.Cooldown,
		RequestsPerSecond: cfg.Gateway.RequestsPerSecond,
		Burst:             cfg.Gateway.Burst,
	}
	scorerClient := resilient.New(gateway)
	imageClient := resilient.New(gateway)
	ledgerClient := resilient.New(gateway)

	provider, err := scorer.NewProvider(cfg.Scorer, scorerClient)
	if err != nil {
		return nil, fmt.Errorf("configure scorer: %w", err)
	}

	var ledger anchor.Ledger
	if cfg.Ledger.URL != "" {
		ledger = anchor.NewHTTPLedger(ledgerClient, cfg.Ledger.URL)
	} else {
		// No ledger endpoint configured: anchor in process. Proofs do not
		// survive a restart, but every other path behaves identically.
		log.Warn("no ledger URL configured, using in-memory ledger")
		ledger = anchor.NewMemoryLedger()
	}

	anchors := anchor.NewService(st, ledger, reg, log)

	detector := detect.NewContextDetector(cfg.Detect.FetchPage, cfg.Detect.FetchTimeout, cfg.Detect.UserAgent)

	scores := score.NewService(score.Deps{
		Store:           st,
		Provider:        provider,
		ContextDetector: detector,
		Anchors:         anchors,
		Registry:        reg,
		Log:             log,
		Circuits: map[string]func() resilient.Status{
			"scorer":       scorerClient.Status,
			"image_worker": imageClient.Status,
			"ledger":       ledgerClient.Status,
		},
	}, cfg.Scoring, cfg.Cache)

	images := image.NewEngine(st, image.NewWorkerClient(imageClient, cfg.Image.WorkerURL), cfg.Image.ReuseThreshold, log)

	rec := anchor.NewReconciler(anchors, cfg.Ledger.ReconcileWorkers, 100, log)

	return &app{
		cfg:     cfg,
		log:     log,
		reg:     reg,
		store:   st,
		scores:  scores,
		images:  images,
		anchors: anchors,
		rec:     rec,
	}, nil
}
