package scraper

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aluiziolira/go-scrape-lists/config"
	"github.com/aluiziolira/go-scrape-lists/models"
)

const detailURL = "http://example.test/film/heat/"

const detailPage = `<html><head>
<meta property="og:title" content="Heat (1995)">
<script type="application/ld+json">
/* <![CDATA[ */
{"name":"Heat","aggregateRating":{"ratingCount":41234}}
/* ]]> */
</script>
</head><body><div class="film-poster" data-film-id="51994"></div></body></html>`

func extractorConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.ItemRetryPause = 0
	return cfg
}

func newTestExtractor(t *testing.T, stub *stubFetcher, cfg *config.Config) *Extractor {
	t.Helper()
	e, err := NewExtractor(stub, cfg)
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	return e
}

func intPtr(n int) *int { return &n }

func TestExtractRecord(t *testing.T) {
	stub := newStubFetcher()
	stub.bodies[detailURL] = detailPage

	rec, err := newTestExtractor(t, stub, extractorConfig()).Extract(context.Background(), models.ItemReference{URL: detailURL, Rank: intPtr(7)})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if rec.Title != "Heat" || rec.Year != "1995" || rec.ID != "51994" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.Rank == nil || *rec.Rank != 7 {
		t.Fatalf("rank = %v, want 7", rec.Rank)
	}
	if rec.Popularity != 0 {
		t.Fatalf("popularity read without filtering: %d", rec.Popularity)
	}
}

func TestExtractUnknownIDAndNoYear(t *testing.T) {
	stub := newStubFetcher()
	stub.bodies[detailURL] = `<html><head><meta property="og:title" content="Untitled Project"></head><body></body></html>`

	rec, err := newTestExtractor(t, stub, extractorConfig()).Extract(context.Background(), models.ItemReference{URL: detailURL})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if rec.ID != models.UnknownID {
		t.Fatalf("id = %q, want %q", rec.ID, models.UnknownID)
	}
	if rec.Title != "Untitled Project" || rec.Year != "" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.Ranked() {
		t.Fatalf("expected unranked record")
	}
}

func TestExtractPopularityWhenFiltering(t *testing.T) {
	stub := newStubFetcher()
	stub.bodies[detailURL] = detailPage

	cfg := extractorConfig()
	cfg.MinPopularity = 100

	rec, err := newTestExtractor(t, stub, cfg).Extract(context.Background(), models.ItemReference{URL: detailURL})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if rec.Popularity != 41234 {
		t.Fatalf("popularity = %d, want 41234", rec.Popularity)
	}
}

func TestExtractMissingTitleIsNotRetried(t *testing.T) {
	stub := newStubFetcher()
	stub.bodies[detailURL] = `<html><head></head><body></body></html>`

	_, err := newTestExtractor(t, stub, extractorConfig()).Extract(context.Background(), models.ItemReference{URL: detailURL})
	var miss ExtractionMiss
	if !errors.As(err, &miss) || miss.Field != "title" {
		t.Fatalf("expected title miss, got %v", err)
	}
	if got := stub.Calls(detailURL); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestExtractRetriesTransientFailures(t *testing.T) {
	stub := newStubFetcher()
	stub.bodies[detailURL] = detailPage
	transient := TransientFetchFailure{URL: detailURL, Attempts: 4, Err: ErrServer{StatusCode: http.StatusServiceUnavailable}}
	stub.fail(detailURL, transient, transient)

	rec, err := newTestExtractor(t, stub, extractorConfig()).Extract(context.Background(), models.ItemReference{URL: detailURL})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if rec.Title != "Heat" {
		t.Fatalf("title = %q", rec.Title)
	}
	if got := stub.Calls(detailURL); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestExtractGivesUpAfterAttempts(t *testing.T) {
	stub := newStubFetcher()
	transient := TransientFetchFailure{URL: detailURL, Attempts: 4, Err: ErrTimeout{Err: context.DeadlineExceeded}}
	stub.fail(detailURL, transient, transient, transient, transient)

	cfg := extractorConfig()
	cfg.ItemAttempts = 3

	_, err := newTestExtractor(t, stub, cfg).Extract(context.Background(), models.ItemReference{URL: detailURL})
	if !IsTransient(err) {
		t.Fatalf("expected transient failure, got %v", err)
	}
	if got := stub.Calls(detailURL); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestExtractClientErrorIsNotRetried(t *testing.T) {
	stub := newStubFetcher()

	_, err := newTestExtractor(t, stub, extractorConfig()).Extract(context.Background(), models.ItemReference{URL: detailURL})
	var clientErr ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("expected ClientError, got %v", err)
	}
	if got := stub.Calls(detailURL); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestExtractCachesByURL(t *testing.T) {
	stub := newStubFetcher()
	stub.bodies[detailURL] = detailPage

	e := newTestExtractor(t, stub, extractorConfig())
	first, err := e.Extract(context.Background(), models.ItemReference{URL: detailURL, Rank: intPtr(1)})
	if err != nil {
		t.Fatalf("first extract: %v", err)
	}
	second, err := e.Extract(context.Background(), models.ItemReference{URL: detailURL, Rank: intPtr(2)})
	if err != nil {
		t.Fatalf("second extract: %v", err)
	}

	if got := stub.Calls(detailURL); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
	if *first.Rank != 1 || *second.Rank != 2 {
		t.Fatalf("ranks = %d/%d, want 1/2", *first.Rank, *second.Rank)
	}
	if first == second {
		t.Fatalf("cached records must not be shared")
	}
}
