package models

import (
	"fmt"
	"net/url"
	"strings"
)

// ListSource tracks pagination state for one list.
type ListSource struct {
	BaseURL   string
	Page      int
	Estimated int
	HasMore   bool
}

// NewListSource normalizes rawURL and positions the source on page one.
func NewListSource(rawURL string) (*ListSource, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse list url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("list url %q must be absolute", rawURL)
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	return &ListSource{
		BaseURL: parsed.String(),
		Page:    1,
		HasMore: true,
	}, nil
}

// PageURL returns the address of page n, which is the base URL for page one.
func (s *ListSource) PageURL(n int) string {
	if n <= 1 {
		return s.BaseURL
	}
	return fmt.Sprintf("%spage/%d/", s.BaseURL, n)
}

// CurrentURL returns the address of the current page.
func (s *ListSource) CurrentURL() string {
	return s.PageURL(s.Page)
}

// Name returns the last path segment, used to name output artifacts.
func (s *ListSource) Name() string {
	return ListName(s.BaseURL)
}

// ListName returns the last path segment of a list URL.
func ListName(rawURL string) string {
	trimmed := strings.TrimRight(rawURL, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if trimmed == "" {
		return "list"
	}
	return trimmed
}
