package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-lists/config"
	"github.com/aluiziolira/go-scrape-lists/models"
	"github.com/aluiziolira/go-scrape-lists/parser"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Extractor turns item detail pages into records.
type Extractor struct {
	client         Fetcher
	parse          ParseFunc
	layout         Layout
	metrics        *Metrics
	attempts       int
	pause          time.Duration
	withPopularity bool
	cache          *lru.Cache[string, models.Record]
}

// NewExtractor builds an extractor. Detail pages are fetched at most
// cfg.ItemAttempts times, pausing cfg.ItemRetryPause between attempts, and
// successful extractions are cached by URL.
func NewExtractor(client Fetcher, cfg *config.Config, opts ...Option) (*Extractor, error) {
	o := applyOptions(opts)
	e := &Extractor{
		client:         client,
		parse:          o.parse,
		layout:         o.layout,
		metrics:        o.metrics,
		attempts:       cfg.ItemAttempts,
		pause:          cfg.ItemRetryPause,
		withPopularity: cfg.Filtered(),
	}
	if e.attempts <= 0 {
		e.attempts = 1
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, models.Record](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create record cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

// Extract fetches and extracts the record behind ref. Only transient
// failures are retried; client errors and extraction misses end at once.
func (e *Extractor) Extract(ctx context.Context, ref models.ItemReference) (*models.Record, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(ref.URL); ok {
			return cached.WithRank(ref.Rank), nil
		}
	}

	var lastErr error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		resp, err := e.client.Fetch(ctx, ref.URL)
		if err == nil {
			rec, err := e.extract(ref.URL, resp.Body)
			if err != nil {
				e.metrics.IncError(errorTypeLabel(err))
				return nil, err
			}
			if e.cache != nil {
				e.cache.Add(ref.URL, *rec)
			}
			return rec.WithRank(ref.Rank), nil
		}
		lastErr = err

		slog.Warn("error processing item",
			slog.String("url", ref.URL),
			slog.Int("attempt", attempt),
			slog.Int("attempts", e.attempts),
			slog.String("category", errorTypeLabel(err)),
			slog.Any("error", err),
		)

		if !IsTransient(err) || attempt == e.attempts {
			break
		}
		if err := Sleep(ctx, e.pause); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (e *Extractor) extract(url string, body []byte) (*models.Record, error) {
	doc, err := e.parse(body)
	if err != nil {
		return nil, ExtractionMiss{URL: url, Field: "document", Err: err}
	}

	titleText, ok := parser.AttrOf(doc, e.layout.TitleMeta, "content")
	if !ok || strings.TrimSpace(titleText) == "" {
		return nil, ExtractionMiss{URL: url, Field: "title"}
	}
	title, year := parser.SplitTitle(titleText)

	id, ok := parser.AttrOf(doc, e.layout.Poster, e.layout.IDAttr)
	if !ok || strings.TrimSpace(id) == "" {
		id = models.UnknownID
	}

	rec := &models.Record{Title: title, Year: year, ID: strings.TrimSpace(id)}

	if e.withPopularity {
		script, ok := doc.Find(e.layout.LinkedData)
		if !ok {
			return nil, ExtractionMiss{URL: url, Field: "linked_data"}
		}
		count, err := parser.ParsePopularity(script.Text())
		if err != nil {
			return nil, ExtractionMiss{URL: url, Field: "linked_data", Err: err}
		}
		rec.Popularity = count
	}
	return rec, nil
}
