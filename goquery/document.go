// Package goquery implements parser.Document on top of goquery selections.
package goquery

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-lists/parser"
)

var (
	_ parser.Document = (*Document)(nil)
	_ parser.Node     = node{}
)

// Document wraps a parsed HTML document.
type Document struct {
	doc *goquery.Document
}

// Parse builds a Document from raw markup.
func Parse(body []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: doc}, nil
}

// ParseDocument is Parse typed for callers that only need the query interface.
func ParseDocument(body []byte) (parser.Document, error) {
	return Parse(body)
}

// Find returns the first element matching selector.
func (d *Document) Find(selector string) (parser.Node, bool) {
	return first(d.doc.Find(selector))
}

// FindAll returns all elements matching selector.
func (d *Document) FindAll(selector string) []parser.Node {
	return all(d.doc.Find(selector))
}

type node struct {
	sel *goquery.Selection
}

func (n node) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n node) Text() string {
	return strings.TrimSpace(n.sel.Text())
}

func (n node) Find(selector string) (parser.Node, bool) {
	return first(n.sel.Find(selector))
}

func (n node) FindAll(selector string) []parser.Node {
	return all(n.sel.Find(selector))
}

func first(sel *goquery.Selection) (parser.Node, bool) {
	if sel.Length() == 0 {
		return nil, false
	}
	return node{sel: sel.First()}, true
}

func all(sel *goquery.Selection) []parser.Node {
	nodes := make([]parser.Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, node{sel: s})
	})
	return nodes
}
