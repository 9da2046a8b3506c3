package scorer

import (
	"fmt"

	"github.com/veritaslab/newstrust/internal/model"
	"github.com/veritaslab/newstrust/internal/resilient"
)

// NewProvider builds the configured provider. The resilient client is
// owned by the caller so its circuit status stays observable.
func NewProvider(cfg model.ScorerConfig, client *resilient.Client) (Provider, error) {
	switch cfg.Provider {
	case "", "remote":
		return NewRemoteProvider(client, cfg.URL)
	case "openai":
		return NewOpenAIProvider(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown scorer provider: %q", cfg.Provider)
	}
}
