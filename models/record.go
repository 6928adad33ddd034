// Package models defines data structures for the harvester.
package models

import (
	"time"
)

// UnknownID is stored when a detail page carries no identifier.
const UnknownID = "Unknown"

// ItemReference points at one item detail page discovered on a list page.
type ItemReference struct {
	URL  string
	Rank *int
}

// Record represents one harvested list item.
type Record struct {
	Rank       *int   `json:"ListNumber,omitempty"`
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	ID         string `json:"ID"`
	Popularity int    `json:"-"`
}

// Ranked reports whether the record carries a list rank.
func (r *Record) Ranked() bool {
	return r != nil && r.Rank != nil
}

// DedupKey returns the composite identity used to reject repeats. A year
// never contains the separator, so distinct title and year pairs never share
// a key.
func (r *Record) DedupKey() string {
	return r.Title + "_" + r.Year
}

// WithRank returns a copy of r carrying rank.
func (r Record) WithRank(rank *int) *Record {
	if rank != nil {
		v := *rank
		r.Rank = &v
	} else {
		r.Rank = nil
	}
	return &r
}

// Page is the outcome of fetching one list page.
type Page struct {
	URL     string
	HasNext bool
	Items   []ItemReference
	Missed  int
}

// HarvestResult holds the overall result of one harvest.
type HarvestResult struct {
	RunID        string
	ListName     string
	SourceURL    string
	Records      []*Record
	StartTime    time.Time
	EndTime      time.Time
	Estimated    int
	PageCount    int
	Truncated    bool
	Skipped      map[string]int
	OutputFiles  []string
	PublishError error
}

// TotalCount returns the number of records in the result.
func (r *HarvestResult) TotalCount() int {
	if r == nil {
		return 0
	}
	return len(r.Records)
}

// ProgressSnapshot is a consistent view of harvest progress.
type ProgressSnapshot struct {
	Completed  int
	Total      int
	Elapsed    time.Duration
	Throughput float64 // items per second
	ETA        time.Duration
}
