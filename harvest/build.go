package harvest

import (
	"context"
	"fmt"

	"github.com/aluiziolira/go-scrape-lists/config"
	"github.com/aluiziolira/go-scrape-lists/publish"
	"github.com/aluiziolira/go-scrape-lists/scraper"
)

// NewFromConfig wires the HTTP client, page fetcher, estimator, extractor
// and, when enabled, the GitHub publisher. The client is returned so callers
// can reach its metrics and counters.
func NewFromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Harvester, *scraper.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	client, err := scraper.NewClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create client: %w", err)
	}
	withMetrics := scraper.WithMetrics(client.Metrics)

	extractor, err := scraper.NewExtractor(client, cfg, withMetrics)
	if err != nil {
		return nil, nil, err
	}

	base := []Option{WithMetrics(client.Metrics)}
	if cfg.Publish {
		publisher, err := publish.New(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("create publisher: %w", err)
		}
		base = append(base, WithPublisher(publisher))
	}

	h := New(cfg,
		scraper.NewPageFetcher(client, withMetrics),
		scraper.NewEstimator(client, withMetrics),
		extractor,
		append(base, opts...)...,
	)
	return h, client, nil
}
