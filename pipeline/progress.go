package pipeline

import (
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-lists/models"
)

// Progress tracks completed items against an estimated total.
type Progress struct {
	mu        sync.Mutex
	start     time.Time
	completed int
	total     int
	now       func() time.Time
}

// NewProgress starts a tracker with the given estimated total.
func NewProgress(total int) *Progress {
	return newProgressAt(total, time.Now)
}

func newProgressAt(total int, now func() time.Time) *Progress {
	if total < 0 {
		total = 0
	}
	return &Progress{start: now(), total: total, now: now}
}

// AddTotal grows the estimated total, e.g. once per list in a batch.
func (p *Progress) AddTotal(n int) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	p.total += n
	p.mu.Unlock()
}

// Increment records one completed item and returns the new count.
func (p *Progress) Increment() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed++
	return p.completed
}

// Completed returns the current count.
func (p *Progress) Completed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed
}

// Elapsed returns the time since the tracker started.
func (p *Progress) Elapsed() time.Duration {
	return p.now().Sub(p.start)
}

// Snapshot returns count, total, throughput and ETA read under one lock.
func (p *Progress) Snapshot() models.ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := models.ProgressSnapshot{
		Completed: p.completed,
		Total:     p.total,
		Elapsed:   p.now().Sub(p.start),
	}
	if snap.Elapsed <= 0 {
		return snap
	}
	snap.Throughput = float64(snap.Completed) / snap.Elapsed.Seconds()
	if snap.Throughput <= 0 {
		return snap
	}
	remaining := snap.Total - snap.Completed
	if remaining < 0 {
		remaining = 0
	}
	snap.ETA = time.Duration(float64(remaining) / snap.Throughput * float64(time.Second))
	return snap
}
