package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/aluiziolira/go-scrape-lists/goquery"
	"github.com/aluiziolira/go-scrape-lists/parser"
)

// ParseFunc turns fetched markup into a queryable document.
type ParseFunc func(body []byte) (parser.Document, error)

// Layout holds the selectors describing the list and detail page template.
type Layout struct {
	// Containers are tried in order; the first present one holds the entries.
	Containers  []string
	Entry       string
	Poster      string
	LinkAttr    string
	SlugAttr    string
	SlugPath    string // format with the slug, e.g. "/film/%s/"
	RankLabel   string
	NextPage    string
	Description string
	Pagination  string
	TitleMeta   string
	IDAttr      string
	LinkedData  string
}

// DefaultLayout returns the selectors of the list source's page template.
func DefaultLayout() Layout {
	return Layout{
		Containers: []string{
			"ul.js-list-entries.poster-list.-p125.-grid.film-list",
			"ul.poster-list.-p125.-grid.film-list",
			"ul.poster-list",
		},
		Entry:       "li.poster-container",
		Poster:      "div.film-poster",
		LinkAttr:    "data-target-link",
		SlugAttr:    "data-film-slug",
		SlugPath:    "/film/%s/",
		RankLabel:   "p.list-number",
		NextPage:    "a.next",
		Description: `meta[name="description"]`,
		Pagination:  "li.paginate-page",
		TitleMeta:   `meta[property="og:title"]`,
		IDAttr:      "data-film-id",
		LinkedData:  `script[type="application/ld+json"]`,
	}
}

func defaultParse(body []byte) (parser.Document, error) {
	return goquery.ParseDocument(body)
}

// container finds the first known item container in doc.
func (l Layout) container(doc parser.Document) (parser.Node, bool) {
	for _, sel := range l.Containers {
		if node, ok := doc.Find(sel); ok {
			return node, true
		}
	}
	return nil, false
}

// entries returns each entry with its poster element. Layouts without
// entry wrappers yield the posters themselves.
func (l Layout) entries(container parser.Node) (entries, posters []parser.Node) {
	wrapped := container.FindAll(l.Entry)
	if len(wrapped) == 0 {
		bare := container.FindAll(l.Poster)
		return bare, bare
	}
	posters = make([]parser.Node, len(wrapped))
	for i, entry := range wrapped {
		if poster, ok := entry.Find(l.Poster); ok {
			posters[i] = poster
		}
	}
	return wrapped, posters
}

// detailLink reads the item link from a poster, falling back to its slug.
func (l Layout) detailLink(poster parser.Node) string {
	if poster == nil {
		return ""
	}
	if link, ok := poster.Attr(l.LinkAttr); ok && strings.TrimSpace(link) != "" {
		return strings.TrimSpace(link)
	}
	if slug, ok := poster.Attr(l.SlugAttr); ok && strings.Trim(slug, "/ ") != "" {
		return fmt.Sprintf(l.SlugPath, strings.Trim(slug, "/ "))
	}
	return ""
}

func resolve(base *url.URL, ref string) (string, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(parsed).String(), nil
}
