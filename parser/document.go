package parser

// Node is one element matched by a document query.
type Node interface {
	// Attr reads an attribute; ok is false when the attribute is absent.
	Attr(name string) (value string, ok bool)
	// Text returns the combined text of the node and its descendants.
	Text() string
	// Find returns the first descendant matching selector.
	Find(selector string) (Node, bool)
	// FindAll returns every descendant matching selector in document order.
	FindAll(selector string) []Node
}

// Document answers structural queries over fetched markup.
// Implementations live outside this package so extraction logic never
// depends on a specific parsing library.
type Document interface {
	Find(selector string) (Node, bool)
	FindAll(selector string) []Node
}

// AttrOf reads name from the first node matching selector.
func AttrOf(doc Document, selector, name string) (string, bool) {
	node, ok := doc.Find(selector)
	if !ok {
		return "", false
	}
	return node.Attr(name)
}
