package scraper

import (
	"context"
	"log/slog"

	"github.com/aluiziolira/go-scrape-lists/parser"
)

// ListSize is what a list's first page reveals about its length.
type ListSize struct {
	Items int // 0 when unknown
	Pages int // at least 1
}

// Estimator cheaply estimates how many items a list holds.
type Estimator struct {
	client Fetcher
	parse  ParseFunc
	layout Layout
}

// NewEstimator builds an estimator on top of client.
func NewEstimator(client Fetcher, opts ...Option) *Estimator {
	o := applyOptions(opts)
	return &Estimator{
		client: client,
		parse:  o.parse,
		layout: o.layout,
	}
}

// Estimate returns the estimated item count of the list at listURL, or 0
// when it cannot be determined. Callers must read 0 as unknown.
func (e *Estimator) Estimate(ctx context.Context, listURL string) int {
	return e.Inspect(ctx, listURL).Items
}

// Inspect fetches the list's first page and reads its declared item count,
// falling back to entries per page times the page count.
func (e *Estimator) Inspect(ctx context.Context, listURL string) ListSize {
	size := ListSize{Pages: 1}

	resp, err := e.client.Fetch(ctx, listURL)
	if err != nil {
		slog.Warn("list size estimate failed", slog.String("url", listURL), slog.Any("error", err))
		return size
	}
	doc, err := e.parse(resp.Body)
	if err != nil {
		slog.Warn("list size estimate failed", slog.String("url", listURL), slog.Any("error", err))
		return size
	}

	size.Pages = e.pageCount(doc)
	if desc, ok := parser.AttrOf(doc, e.layout.Description, "content"); ok {
		if n, ok := parser.ParseListCount(desc); ok {
			size.Items = n
			return size
		}
	}

	perPage := 0
	if container, ok := e.layout.container(doc); ok {
		entries, _ := e.layout.entries(container)
		perPage = len(entries)
	}
	size.Items = perPage * size.Pages
	return size
}

func (e *Estimator) pageCount(doc parser.Document) int {
	pages := doc.FindAll(e.layout.Pagination)
	if len(pages) == 0 {
		return 1
	}
	n, err := parser.ParseRank(pages[len(pages)-1].Text())
	if err != nil || n < 1 {
		return 1
	}
	return n
}
