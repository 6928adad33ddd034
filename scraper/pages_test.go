package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

const listURL = "http://example.test/user/list/top/"

func buildListPage(ranks []int, hasNext bool) string {
	var b strings.Builder
	b.WriteString(`<html><body><ul class="js-list-entries poster-list -p125 -grid film-list">`)
	for i, rank := range ranks {
		b.WriteString(`<li class="poster-container">`)
		fmt.Fprintf(&b, `<div class="film-poster" data-target-link="/film/f%d/"></div>`, i)
		if rank > 0 {
			fmt.Fprintf(&b, `<p class="list-number">%d</p>`, rank)
		}
		b.WriteString(`</li>`)
	}
	b.WriteString(`</ul>`)
	if hasNext {
		b.WriteString(`<a class="next" href="page/2/">Older</a>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func TestFetchPageRanked(t *testing.T) {
	stub := newStubFetcher()
	stub.bodies[listURL] = buildListPage([]int{5, 4, 3}, true)

	page, err := NewPageFetcher(stub).FetchPage(context.Background(), listURL)
	if err != nil {
		t.Fatalf("fetch page: %v", err)
	}
	if !page.HasNext {
		t.Fatalf("expected next page")
	}
	if len(page.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(page.Items))
	}
	want := []int{5, 4, 3}
	for i, item := range page.Items {
		if item.Rank == nil || *item.Rank != want[i] {
			t.Fatalf("item %d rank = %v, want %d", i, item.Rank, want[i])
		}
		if expected := fmt.Sprintf("http://example.test/film/f%d/", i); item.URL != expected {
			t.Fatalf("item %d url = %q, want %q", i, item.URL, expected)
		}
	}
}

func TestFetchPageUnrankedLastPage(t *testing.T) {
	stub := newStubFetcher()
	stub.bodies[listURL] = buildListPage([]int{0, 0}, false)

	page, err := NewPageFetcher(stub).FetchPage(context.Background(), listURL)
	if err != nil {
		t.Fatalf("fetch page: %v", err)
	}
	if page.HasNext {
		t.Fatalf("expected last page")
	}
	for _, item := range page.Items {
		if item.Rank != nil {
			t.Fatalf("expected unranked item, got rank %d", *item.Rank)
		}
	}
}

func TestFetchPageSkipsEntriesWithoutLink(t *testing.T) {
	stub := newStubFetcher()
	stub.bodies[listURL] = `<html><body><ul class="poster-list">
<li class="poster-container"><div class="film-poster" data-target-link="/film/a/"></div></li>
<li class="poster-container"><div class="film-poster"></div></li>
<li class="poster-container"><div class="film-poster" data-film-slug="b"></div></li>
</ul></body></html>`

	page, err := NewPageFetcher(stub).FetchPage(context.Background(), listURL)
	if err != nil {
		t.Fatalf("fetch page: %v", err)
	}
	if page.Missed != 1 {
		t.Fatalf("missed = %d, want 1", page.Missed)
	}
	if len(page.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(page.Items))
	}
	if page.Items[1].URL != "http://example.test/film/b/" {
		t.Fatalf("slug fallback url = %q", page.Items[1].URL)
	}
}

func TestFetchPageMissingContainer(t *testing.T) {
	stub := newStubFetcher()
	stub.bodies[listURL] = `<html><body><p>maintenance</p></body></html>`

	_, err := NewPageFetcher(stub).FetchPage(context.Background(), listURL)
	var miss PageStructureMiss
	if !errors.As(err, &miss) {
		t.Fatalf("expected PageStructureMiss, got %v", err)
	}
	if ErrorLabel(err) != "page_structure_miss" {
		t.Fatalf("label = %q", ErrorLabel(err))
	}
}

func TestFetchPageWrapsFetchErrors(t *testing.T) {
	stub := newStubFetcher()
	stub.fail(listURL, TransientFetchFailure{URL: listURL, Attempts: 4, Err: ErrServer{StatusCode: 503}})

	_, err := NewPageFetcher(stub).FetchPage(context.Background(), listURL)
	if !IsTransient(err) {
		t.Fatalf("expected wrapped transient failure, got %v", err)
	}
}

func TestEstimatorReadsDescription(t *testing.T) {
	stub := newStubFetcher()
	stub.bodies[listURL] = `<html><head>
<meta name="description" content="A list of 1,250 films compiled on the site.">
</head><body><ul class="poster-list"><li class="poster-container"><div class="film-poster" data-target-link="/film/a/"></div></li></ul>
<ul><li class="paginate-page"><a>1</a></li><li class="paginate-page"><a>13</a></li></ul></body></html>`

	size := NewEstimator(stub).Inspect(context.Background(), listURL)
	if size.Items != 1250 {
		t.Fatalf("items = %d, want 1250", size.Items)
	}
	if size.Pages != 13 {
		t.Fatalf("pages = %d, want 13", size.Pages)
	}
}

func TestEstimatorFallsBackToPagination(t *testing.T) {
	stub := newStubFetcher()
	stub.bodies[listURL] = `<html><head><meta name="description" content="Curated favourites."></head><body>
<ul class="poster-list">
<li class="poster-container"><div class="film-poster" data-target-link="/film/a/"></div></li>
<li class="poster-container"><div class="film-poster" data-target-link="/film/b/"></div></li>
</ul>
<ul><li class="paginate-page"><a>1</a></li><li class="paginate-page"><a>3</a></li></ul></body></html>`

	if got := NewEstimator(stub).Estimate(context.Background(), listURL); got != 6 {
		t.Fatalf("estimate = %d, want 6", got)
	}
}

func TestEstimatorUnknownOnFailure(t *testing.T) {
	stub := newStubFetcher()

	size := NewEstimator(stub).Inspect(context.Background(), listURL)
	if size.Items != 0 || size.Pages != 1 {
		t.Fatalf("size = %+v, want 0 items on 1 page", size)
	}
}
