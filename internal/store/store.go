// Package store is the primary datastore layer: articles, authors and the
// image corpus, with unique-constraint dedup and an explicit transaction
// capability selected once at open time.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/veritaslab/newstrust/internal/metrics"
	"github.com/veritaslab/newstrust/internal/model"
)

// Capabilities describes what the opened backend supports. Decided by a
// probe at startup, never by sniffing error messages at request time.
type Capabilities struct {
	Transactions bool
}

// Store wraps the database handle together with its capabilities.
type Store struct {
	db   *gorm.DB
	caps Capabilities
	log  *slog.Logger
	reg  *metrics.Registry
}

// Open connects, migrates the schema and probes transaction support.
// bestEffort forces the non-transactional path regardless of the probe.
func Open(path string, bestEffort bool, log *slog.Logger, reg *metrics.Registry) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&model.Author{}, &model.Article{}, &model.Image{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	s := &Store{db: db, log: log, reg: reg}
	s.caps = Capabilities{Transactions: !bestEffort && probeTransactions(db)}
	if !s.caps.Transactions {
		log.Warn("store opened without transaction support, persistence units run best-effort")
	}
	return s, nil
}

// probeTransactions runs an empty transaction to learn whether the backend
// supports them.
func probeTransactions(db *gorm.DB) bool {
	return db.Transaction(func(tx *gorm.DB) error { return nil }) == nil
}

// Capabilities reports what the store supports.
func (s *Store) Capabilities() Capabilities { return s.caps }

// DB exposes the raw handle for read paths that need no unit semantics.
func (s *Store) DB() *gorm.DB { return s.db }

// RunUnit executes fn as one atomic unit when transactions are supported.
// Otherwise fn runs against the plain handle as a best-effort sequence;
// the degradation is logged and counted, never surfaced to the caller.
func (s *Store) RunUnit(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.caps.Transactions {
		return s.db.WithContext(ctx).Transaction(fn)
	}

	s.log.Warn("running persistence unit without transaction")
	s.reg.ConsistencyDegraded()
	return fn(s.db.WithContext(ctx))
}
