// Package harvest drives a list harvest: size estimate, sequential pages,
// bounded per-page extraction, ordering, artifacts and publishing.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-lists/config"
	"github.com/aluiziolira/go-scrape-lists/models"
	"github.com/aluiziolira/go-scrape-lists/parser"
	"github.com/aluiziolira/go-scrape-lists/pipeline"
	"github.com/aluiziolira/go-scrape-lists/scraper"
	"github.com/google/uuid"
)

// State is a phase of one harvest.
type State string

const (
	StateInit         State = "init"
	StateFetchingSize State = "fetching_size"
	StatePagingLoop   State = "paging_loop"
	StateDone         State = "done"
)

// PageSource reads list pages.
type PageSource interface {
	FetchPage(ctx context.Context, pageURL string) (*models.Page, error)
}

// SizeEstimator inspects a list before paging through it.
type SizeEstimator interface {
	Inspect(ctx context.Context, listURL string) scraper.ListSize
}

// RecordExtractor turns an item reference into a record.
type RecordExtractor interface {
	Extract(ctx context.Context, ref models.ItemReference) (*models.Record, error)
}

// Publisher uploads a finished artifact.
type Publisher interface {
	Publish(ctx context.Context, filename string, content []byte) error
}

// WriterFactory opens the output writer for a list and names its files.
type WriterFactory func(listName string) (pipeline.OutputWriter, []string, error)

// ProgressFunc receives progress after every accepted record and page.
// It may be called concurrently.
type ProgressFunc func(models.ProgressSnapshot)

// Harvester runs harvests. A Harvester shares one progress tracker across
// every run it performs.
type Harvester struct {
	cfg        *config.Config
	pages      PageSource
	estimator  SizeEstimator
	extractor  RecordExtractor
	publisher  Publisher
	newWriter  WriterFactory
	progress   *pipeline.Progress
	onProgress ProgressFunc
	metrics    *scraper.Metrics
}

// Option configures a Harvester.
type Option func(*Harvester)

// WithPublisher publishes every artifact after it is written.
func WithPublisher(p Publisher) Option {
	return func(h *Harvester) {
		h.publisher = p
	}
}

// WithWriterFactory overrides how artifacts are written.
func WithWriterFactory(f WriterFactory) Option {
	return func(h *Harvester) {
		h.newWriter = f
	}
}

// WithProgressFunc reports progress to fn.
func WithProgressFunc(fn ProgressFunc) Option {
	return func(h *Harvester) {
		h.onProgress = fn
	}
}

// WithMetrics counts record outcomes on m.
func WithMetrics(m *scraper.Metrics) Option {
	return func(h *Harvester) {
		h.metrics = m
	}
}

// New builds a harvester from its collaborators.
func New(cfg *config.Config, pages PageSource, estimator SizeEstimator, extractor RecordExtractor, opts ...Option) *Harvester {
	h := &Harvester{
		cfg:       cfg,
		pages:     pages,
		estimator: estimator,
		extractor: extractor,
		progress:  pipeline.NewProgress(0),
	}
	h.newWriter = func(listName string) (pipeline.OutputWriter, []string, error) {
		return pipeline.NewOutputWriter(cfg.OutputFormat, cfg.OutputDir, listName)
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Progress returns the shared progress tracker.
func (h *Harvester) Progress() *pipeline.Progress {
	return h.progress
}

// Run harvests the list at listURL. Publish failures are recorded on the
// result and never returned. A cancelled run writes nothing, so artifacts of
// an earlier completed run survive; the partial result is returned together
// with the context error.
func (h *Harvester) Run(ctx context.Context, listURL string) (*models.HarvestResult, error) {
	return h.run(ctx, listURL, nil)
}

// RunBatch estimates every list up front so progress covers the whole
// batch, then harvests the lists one after another. A failed list does not
// stop the batch; its error is joined into the returned error.
func (h *Harvester) RunBatch(ctx context.Context, listURLs []string) ([]*models.HarvestResult, error) {
	sizes := make([]scraper.ListSize, len(listURLs))
	total := 0
	for i, listURL := range listURLs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sizes[i] = h.estimator.Inspect(ctx, listURL)
		total += sizes[i].Items
	}
	h.progress.AddTotal(total)
	slog.Info("batch sized", slog.Int("lists", len(listURLs)), slog.Int("estimated_items", total))

	var (
		results []*models.HarvestResult
		errs    []error
	)
	for i, listURL := range listURLs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		slog.Info("processing list", slog.Int("index", i+1), slog.Int("lists", len(listURLs)), slog.String("url", listURL))

		result, err := h.run(ctx, listURL, &sizes[i])
		if result != nil {
			results = append(results, result)
		}
		if err != nil {
			slog.Error("list failed", slog.String("url", listURL), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", listURL, err))
		}
	}
	return results, errors.Join(errs...)
}

func (h *Harvester) run(ctx context.Context, listURL string, size *scraper.ListSize) (*models.HarvestResult, error) {
	result := &models.HarvestResult{
		RunID:     uuid.New().String(),
		SourceURL: listURL,
		StartTime: time.Now(),
		Skipped:   make(map[string]int),
	}
	log := slog.With(slog.String("run_id", result.RunID))
	transition := func(s State) {
		log.Debug("harvest state", slog.String("state", string(s)))
	}

	transition(StateInit)
	source, err := models.NewListSource(listURL)
	if err != nil {
		return nil, err
	}
	result.ListName = source.Name()
	log = log.With(slog.String("list", result.ListName))

	transition(StateFetchingSize)
	if size == nil {
		inspected := h.estimator.Inspect(ctx, source.BaseURL)
		size = &inspected
		h.progress.AddTotal(size.Items)
	}
	source.Estimated = size.Items
	result.Estimated = size.Items
	log.Info("list sized", slog.Int("estimated_items", size.Items), slog.Int("pages", size.Pages))

	transition(StatePagingLoop)
	collector := pipeline.NewCollector(h.cfg, h.progress)
	if h.metrics != nil {
		collector.Observe(func(o pipeline.Outcome) { h.metrics.IncRecord(string(o)) })
	}
	failures := newFailureCounts()
	pool := pipeline.NewPool(h.cfg.Parallelism)

	cancelled := false
	for source.HasMore && !collector.Full() {
		pageURL := source.CurrentURL()
		page, err := h.fetchPage(ctx, log, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				cancelled = true
				break
			}
			log.Error("giving up on list page", slog.String("url", pageURL), slog.Any("error", err))
			failures.add(scraper.ErrorLabel(err))
			result.Truncated = true
			break
		}
		result.PageCount++
		if page.Missed > 0 {
			failures.addN("missing_link", page.Missed)
		}
		log.Info("page fetched",
			slog.Int("page", source.Page),
			slog.Int("pages", size.Pages),
			slog.Int("items", len(page.Items)),
		)

		pool.Run(ctx, len(page.Items), collector.Full, func(ctx context.Context, i int) {
			h.harvestItem(ctx, log, page.Items[i], collector, failures)
		})

		snap := h.progress.Snapshot()
		log.Info("page complete",
			slog.Int("page", source.Page),
			slog.Int("completed", snap.Completed),
			slog.Int("total", snap.Total),
			slog.Float64("items_per_sec", snap.Throughput),
			slog.Duration("eta", snap.ETA.Round(time.Second)),
		)
		h.report(snap)

		source.HasMore = page.HasNext
		if !source.HasMore || collector.Full() {
			break
		}
		if err := scraper.Sleep(ctx, h.cfg.Cooldown); err != nil {
			cancelled = true
			break
		}
		source.Page++
	}
	if ctx.Err() != nil {
		cancelled = true
	}
	if cancelled {
		result.Truncated = true
	}

	transition(StateDone)
	result.Records = parser.OrderRecords(collector.Records())
	for k, v := range collector.Skipped() {
		result.Skipped[k] += v
	}
	for k, v := range failures.snapshot() {
		result.Skipped[k] += v
	}

	if cancelled {
		result.EndTime = time.Now()
		log.Warn("harvest cancelled, artifacts left untouched",
			slog.Int("records", result.TotalCount()),
			slog.Int("pages", result.PageCount),
		)
		return result, ctx.Err()
	}

	if err := h.writeArtifacts(result); err != nil {
		result.EndTime = time.Now()
		return result, err
	}
	h.publish(ctx, log, result)
	result.EndTime = time.Now()

	log.Info("harvest finished",
		slog.Int("records", result.TotalCount()),
		slog.Int("pages", result.PageCount),
		slog.Bool("truncated", result.Truncated),
		slog.Duration("duration", result.EndTime.Sub(result.StartTime).Round(time.Millisecond)),
	)
	return result, nil
}

// fetchPage retries a failed page PageRetries times after the cooldown.
func (h *Harvester) fetchPage(ctx context.Context, log *slog.Logger, pageURL string) (*models.Page, error) {
	for attempt := 0; ; attempt++ {
		page, err := h.pages.FetchPage(ctx, pageURL)
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil || attempt >= h.cfg.PageRetries {
			return nil, err
		}
		log.Warn("retrying list page",
			slog.String("url", pageURL),
			slog.Int("attempt", attempt+1),
			slog.String("category", scraper.ErrorLabel(err)),
			slog.Any("error", err),
		)
		if err := scraper.Sleep(ctx, h.cfg.Cooldown); err != nil {
			return nil, err
		}
	}
}

func (h *Harvester) harvestItem(ctx context.Context, log *slog.Logger, ref models.ItemReference, collector *pipeline.Collector, failures *failureCounts) {
	rec, err := h.extractor.Extract(ctx, ref)
	if err != nil {
		failures.add(scraper.ErrorLabel(err))
		log.Warn("item failed", slog.String("url", ref.URL), slog.Any("error", err))
		return
	}

	switch outcome := collector.Offer(rec); outcome {
	case pipeline.Accepted:
		snap := h.progress.Snapshot()
		log.Info("item added",
			slog.String("title", rec.Title),
			slog.String("year", rec.Year),
			slog.Int("completed", snap.Completed),
			slog.Int("total", snap.Total),
		)
		h.report(snap)
	default:
		log.Debug("item skipped", slog.String("url", ref.URL), slog.String("reason", string(outcome)))
	}
}

func (h *Harvester) report(snap models.ProgressSnapshot) {
	if h.onProgress != nil {
		h.onProgress(snap)
	}
}

func (h *Harvester) writeArtifacts(result *models.HarvestResult) error {
	writer, files, err := h.newWriter(result.ListName)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	if err := writer.Write(result.Records); err != nil {
		writer.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := writer.Validate(); err != nil {
		return fmt.Errorf("validate output: %w", err)
	}
	result.OutputFiles = files
	return nil
}

func (h *Harvester) publish(ctx context.Context, log *slog.Logger, result *models.HarvestResult) {
	if h.publisher == nil {
		return
	}
	var errs []error
	for _, file := range result.OutputFiles {
		content, err := os.ReadFile(file)
		if err == nil {
			err = h.publisher.Publish(ctx, file, content)
		}
		if err != nil {
			log.Error("publish failed", slog.String("file", file), slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	result.PublishError = errors.Join(errs...)
}

type failureCounts struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFailureCounts() *failureCounts {
	return &failureCounts{counts: make(map[string]int)}
}

func (f *failureCounts) add(label string) {
	f.addN(label, 1)
}

func (f *failureCounts) addN(label string, n int) {
	f.mu.Lock()
	f.counts[label] += n
	f.mu.Unlock()
}

func (f *failureCounts) snapshot() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.counts))
	for k, v := range f.counts {
		out[k] = v
	}
	return out
}
