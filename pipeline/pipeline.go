// Package pipeline collects harvested records: bounded per-page workers,
// filtering and de-duplication, progress tracking and output writers.
package pipeline

import (
	"sync"

	"github.com/aluiziolira/go-scrape-lists/config"
	"github.com/aluiziolira/go-scrape-lists/models"
	"github.com/aluiziolira/go-scrape-lists/parser"
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(records []*models.Record) error
	Close() error
	Validate() error
}

// Outcome is the fate of a record offered to a Collector.
type Outcome string

const (
	Accepted       Outcome = "accepted"
	InvalidRecord  Outcome = "invalid_record"
	BelowThreshold Outcome = "below_threshold"
	DuplicateKey   Outcome = "duplicate_key"
	CapReached     Outcome = "cap_reached"
)

// Collector is the aggregate of one harvest. It is safe for concurrent use.
type Collector struct {
	minPopularity int
	max           int
	dedupe        *Deduplicator
	progress      *Progress
	observe       func(Outcome)

	mu      sync.Mutex
	records []*models.Record
	counts  outcomeCounts
}

// NewCollector builds a collector honouring cfg's cap, popularity threshold
// and dedupe switch. Accepted records advance progress when it is non-nil.
func NewCollector(cfg *config.Config, progress *Progress) *Collector {
	c := &Collector{
		minPopularity: cfg.MinPopularity,
		max:           cfg.MaxItems,
		progress:      progress,
		counts:        newOutcomeCounts(),
	}
	if cfg.Dedupe {
		c.dedupe = NewDeduplicator()
	}
	return c
}

// Observe registers fn to be called with every outcome.
func (c *Collector) Observe(fn func(Outcome)) {
	c.observe = fn
}

// Offer validates, filters and de-duplicates rec, then appends it unless the
// cap has been reached.
func (c *Collector) Offer(rec *models.Record) Outcome {
	outcome := c.offer(rec)
	c.counts.add(outcome)
	if c.observe != nil {
		c.observe(outcome)
	}
	return outcome
}

func (c *Collector) offer(rec *models.Record) Outcome {
	if err := parser.ValidateRecord(rec); err != nil {
		return InvalidRecord
	}
	if c.minPopularity > 0 && rec.Popularity < c.minPopularity {
		return BelowThreshold
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.max > 0 && len(c.records) >= c.max {
		return CapReached
	}
	if c.dedupe != nil && !c.dedupe.Admit(rec.DedupKey()) {
		return DuplicateKey
	}
	c.records = append(c.records, rec)
	if c.progress != nil {
		c.progress.Increment()
	}
	return Accepted
}

// Full reports whether the cap has been reached.
func (c *Collector) Full() bool {
	if c.max <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records) >= c.max
}

// Len returns the number of accepted records.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Records returns the accepted records in acceptance order.
func (c *Collector) Records() []*models.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.Record, len(c.records))
	copy(out, c.records)
	return out
}

// Skipped returns the count of every rejected outcome.
func (c *Collector) Skipped() map[string]int {
	snapshot := c.counts.snapshot()
	delete(snapshot, string(Accepted))
	return snapshot
}

type outcomeCounts struct {
	mu     sync.Mutex
	counts map[string]int
}

func newOutcomeCounts() outcomeCounts {
	return outcomeCounts{counts: make(map[string]int)}
}

func (o *outcomeCounts) add(outcome Outcome) {
	o.mu.Lock()
	o.counts[string(outcome)]++
	o.mu.Unlock()
}

func (o *outcomeCounts) snapshot() map[string]int {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make(map[string]int, len(o.counts))
	for k, v := range o.counts {
		out[k] = v
	}
	return out
}
