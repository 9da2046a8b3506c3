package model

import (
	"fmt"
	"time"
)

// Config is the full runtime configuration, loaded through viper with
// these defaults underneath.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Scoring  ScoringConfig  `mapstructure:"scoring" yaml:"scoring"`
	Scorer   ScorerConfig   `mapstructure:"scorer" yaml:"scorer"`
	Image    ImageConfig    `mapstructure:"image" yaml:"image"`
	Ledger   LedgerConfig   `mapstructure:"ledger" yaml:"ledger"`
	Gateway  GatewayConfig  `mapstructure:"gateway" yaml:"gateway"`
	Detect   DetectConfig   `mapstructure:"detect" yaml:"detect"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
}

// DatabaseConfig locates the primary store.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
	// BestEffort forces the non-transactional persistence path even when
	// the backend supports transactions. Used for stores (or deployments)
	// without multi-statement transaction support.
	BestEffort bool `mapstructure:"best_effort" yaml:"best_effort"`
}

// ScoringConfig holds the composite weights. f = alpha*M + beta*F +
// (1-alpha-beta)*C, so alpha+beta must not exceed 1.
type ScoringConfig struct {
	Alpha float64 `mapstructure:"alpha" yaml:"alpha"`
	Beta  float64 `mapstructure:"beta" yaml:"beta"`
}

// ScorerConfig selects and configures the external scoring provider.
type ScorerConfig struct {
	// Provider is "remote" (HTTP ML service) or "openai".
	Provider string `mapstructure:"provider" yaml:"provider"`
	URL      string `mapstructure:"url" yaml:"url"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
	Model    string `mapstructure:"model" yaml:"model"`
}

// ImageConfig configures the image analysis worker and the reuse decision.
type ImageConfig struct {
	WorkerURL string `mapstructure:"worker_url" yaml:"worker_url"`
	// ReuseThreshold is the similarity percentage (inclusive) at which a
	// near-duplicate counts as reused.
	ReuseThreshold float64 `mapstructure:"reuse_threshold" yaml:"reuse_threshold"`
}

// LedgerConfig configures the anchor ledger client and the reconciler.
type LedgerConfig struct {
	URL               string `mapstructure:"url" yaml:"url"`
	ReconcileSchedule string `mapstructure:"reconcile_schedule" yaml:"reconcile_schedule"`
	ReconcileWorkers  int    `mapstructure:"reconcile_workers" yaml:"reconcile_workers"`
}

// GatewayConfig is shared by every resilient downstream client. Each
// dependency still gets its own breaker state.
type GatewayConfig struct {
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Retries           int           `mapstructure:"retries" yaml:"retries"`
	FailureThreshold  int           `mapstructure:"failure_threshold" yaml:"failure_threshold"`
	Cooldown          time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int           `mapstructure:"burst" yaml:"burst"`
}

// DetectConfig configures the local fallback detectors.
type DetectConfig struct {
	// FetchPage lets the context detector fetch the article page to count
	// ad markers. Disabled, it scores from the text alone.
	FetchPage    bool          `mapstructure:"fetch_page" yaml:"fetch_page"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
	UserAgent    string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// CacheConfig configures the in-memory score cache in front of the store.
type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl" yaml:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
}

// DefaultConfig returns sensible defaults. Timeouts and breaker settings
// follow the downstream clients' historical values.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "data/newstrust.db",
		},
		Scoring: ScoringConfig{
			Alpha: 0.4,
			Beta:  0.4,
		},
		Scorer: ScorerConfig{
			Provider: "remote",
		},
		Image: ImageConfig{
			WorkerURL:      "http://127.0.0.1:6000/",
			ReuseThreshold: 85.0,
		},
		Ledger: LedgerConfig{
			ReconcileSchedule: "@every 5m",
			ReconcileWorkers:  4,
		},
		Gateway: GatewayConfig{
			Timeout:           3 * time.Second,
			Retries:           3,
			FailureThreshold:  3,
			Cooldown:          15 * time.Second,
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Detect: DetectConfig{
			FetchPage:    false,
			FetchTimeout: 4 * time.Second,
			UserAgent:    "newstrust/1.0 (+https://github.com/veritaslab/newstrust)",
		},
		Cache: CacheConfig{
			TTL:             10 * time.Minute,
			CleanupInterval: 15 * time.Minute,
		},
	}
}

// Validate rejects configurations the scoring math cannot honor.
func (c *Config) Validate() error {
	if c.Scoring.Alpha < 0 || c.Scoring.Beta < 0 {
		return fmt.Errorf("scoring weights must be non-negative (alpha=%v beta=%v)", c.Scoring.Alpha, c.Scoring.Beta)
	}
	if c.Scoring.Alpha+c.Scoring.Beta > 1 {
		return fmt.Errorf("alpha+beta must not exceed 1 (alpha=%v beta=%v)", c.Scoring.Alpha, c.Scoring.Beta)
	}
	if c.Image.ReuseThreshold < 0 || c.Image.ReuseThreshold > 100 {
		return fmt.Errorf("image reuse threshold must be a percentage (got %v)", c.Image.ReuseThreshold)
	}
	if c.Gateway.Retries < 0 {
		return fmt.Errorf("gateway retries must be non-negative (got %d)", c.Gateway.Retries)
	}
	return nil
}
