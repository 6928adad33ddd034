package pipeline

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Deduplicator admits each key at most once. Keys are bucketed by their
// xxhash digest and compared in full, so distinct keys are never merged.
type Deduplicator struct {
	mu   sync.Mutex
	seen map[uint64][]string
	size int
}

// NewDeduplicator returns an empty deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[uint64][]string)}
}

// Admit records key and reports whether it was new. Check and insert happen
// under one lock.
func (d *Deduplicator) Admit(key string) bool {
	sum := xxhash.Sum64String(key)

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.seen[sum] {
		if existing == key {
			return false
		}
	}
	d.seen[sum] = append(d.seen[sum], key)
	d.size++
	return true
}

// Len returns the number of admitted keys.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}
