package parser

import (
	"slices"

	"github.com/aluiziolira/go-scrape-lists/models"
)

// OrderRecords returns the final ordering of a harvest. When any record
// carries a rank the result is stably sorted by rank with unranked records
// last; otherwise the input order is kept.
func OrderRecords(records []*models.Record) []*models.Record {
	out := make([]*models.Record, 0, len(records))
	for _, r := range records {
		if r != nil {
			out = append(out, r)
		}
	}

	ranked := slices.ContainsFunc(out, func(r *models.Record) bool { return r.Ranked() })
	if !ranked {
		return out
	}

	slices.SortStableFunc(out, func(a, b *models.Record) int {
		switch {
		case a.Ranked() && b.Ranked():
			return *a.Rank - *b.Rank
		case a.Ranked():
			return -1
		case b.Ranked():
			return 1
		default:
			return 0
		}
	})
	return out
}
