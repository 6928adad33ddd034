package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/aluiziolira/go-scrape-lists/models"
	"github.com/aluiziolira/go-scrape-lists/parser"
)

// PageFetcher reads list pages into item references.
type PageFetcher struct {
	client  Fetcher
	parse   ParseFunc
	layout  Layout
	metrics *Metrics
}

// NewPageFetcher builds a page fetcher on top of client.
func NewPageFetcher(client Fetcher, opts ...Option) *PageFetcher {
	o := applyOptions(opts)
	return &PageFetcher{
		client:  client,
		parse:   o.parse,
		layout:  o.layout,
		metrics: o.metrics,
	}
}

// FetchPage fetches one list page. A page without an item container returns
// PageStructureMiss; fetch failures are returned wrapped.
func (p *PageFetcher) FetchPage(ctx context.Context, pageURL string) (*models.Page, error) {
	resp, err := p.client.Fetch(ctx, pageURL)
	if err != nil {
		p.metrics.IncPage("fetch_failed")
		return nil, fmt.Errorf("fetch page %s: %w", pageURL, err)
	}

	doc, err := p.parse(resp.Body)
	if err != nil {
		p.metrics.IncPage("structure_miss")
		return nil, PageStructureMiss{URL: pageURL, Missing: "document"}
	}

	page, err := p.readPage(pageURL, doc)
	if err != nil {
		p.metrics.IncPage("structure_miss")
		p.metrics.IncError(errorTypeLabel(err))
		return nil, err
	}
	p.metrics.IncPage("ok")
	return page, nil
}

func (p *PageFetcher) readPage(pageURL string, doc parser.Document) (*models.Page, error) {
	container, ok := p.layout.container(doc)
	if !ok {
		return nil, PageStructureMiss{URL: pageURL, Missing: "item container"}
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	page := &models.Page{URL: pageURL}
	entries, posters := p.layout.entries(container)
	for i, entry := range entries {
		link := p.layout.detailLink(posters[i])
		if link == "" {
			page.Missed++
			p.metrics.IncError("extraction_miss")
			slog.Warn("entry without detail link, skipping",
				slog.String("page", pageURL),
				slog.Int("position", i+1),
			)
			continue
		}

		abs, err := resolve(base, link)
		if err != nil {
			page.Missed++
			slog.Warn("unparsable detail link, skipping",
				slog.String("page", pageURL),
				slog.String("link", link),
				slog.Any("error", err),
			)
			continue
		}

		ref := models.ItemReference{URL: abs}
		if label, ok := entry.Find(p.layout.RankLabel); ok {
			if rank, err := parser.ParseRank(label.Text()); err == nil {
				ref.Rank = &rank
			} else {
				slog.Debug("ignoring rank label", slog.String("label", label.Text()), slog.Any("error", err))
			}
		}
		page.Items = append(page.Items, ref)
	}

	_, page.HasNext = doc.Find(p.layout.NextPage)
	return page, nil
}
