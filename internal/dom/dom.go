// Package dom provides a read-only element tree parsed from HTML with CSS
// selector queries.
//
// Documents are parsed with golang.org/x/net/html and queried with
// github.com/andybalholm/cascadia. Compiled selectors are kept in a small
// LRU cache shared by every node of a document.
package dom

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dshills/scrollspy/internal/visibility"
)

// DefaultSelectorCacheSize is the number of compiled selectors kept per document.
const DefaultSelectorCacheSize = 64

var (
	// ErrInvalidSelector is returned for selectors that do not compile.
	ErrInvalidSelector = errors.New("dom: invalid selector")

	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("dom: element not found")
)

// Document is a parsed HTML document.
type Document struct {
	root      *html.Node
	selectors *lru.Cache[string, cascadia.SelectorGroup]
}

// Parse reads an HTML document from r.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	cache, err := lru.New[string, cascadia.SelectorGroup](DefaultSelectorCacheSize)
	if err != nil {
		return nil, err
	}
	return &Document{root: root, selectors: cache}, nil
}

// ParseString parses an HTML document held in a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document node.
func (d *Document) Root() *Node {
	return d.wrap(d.root)
}

// Body returns the body element, or the document node if there is none.
func (d *Document) Body() *Node {
	var find func(n *html.Node) *html.Node
	find = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := find(c); found != nil {
				return found
			}
		}
		return nil
	}
	if body := find(d.root); body != nil {
		return d.wrap(body)
	}
	return d.Root()
}

// Query returns the first element matching selector.
func (d *Document) Query(selector string) (*Node, error) {
	return d.Root().Query(selector)
}

// ByID returns the element whose id attribute equals id.
func (d *Document) ByID(id string) (*Node, error) {
	var find func(n *html.Node) *html.Node
	find = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && attr(n, "id") == id {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := find(c); found != nil {
				return found
			}
		}
		return nil
	}
	if n := find(d.root); n != nil {
		return d.wrap(n), nil
	}
	return nil, fmt.Errorf("%w: #%s", ErrNotFound, id)
}

// CachedSelectors returns the number of compiled selectors in the cache.
func (d *Document) CachedSelectors() int {
	return d.selectors.Len()
}

func (d *Document) compile(selector string) (cascadia.SelectorGroup, error) {
	if sel, ok := d.selectors.Get(selector); ok {
		return sel, nil
	}
	sel, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSelector, selector, err)
	}
	d.selectors.Add(selector, sel)
	return sel, nil
}

func (d *Document) wrap(n *html.Node) *Node {
	return &Node{doc: d, n: n}
}

// Node is an element (or the document node) of a Document.
type Node struct {
	doc *Document
	n   *html.Node
}

// ID returns the id attribute.
func (n *Node) ID() string {
	return attr(n.n, "id")
}

// Tag returns the element name, or "" for non-element nodes.
func (n *Node) Tag() string {
	if n.n.Type != html.ElementNode {
		return ""
	}
	return n.n.Data
}

// Attr returns the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// IntAttr returns the named attribute as an int, or def.
func (n *Node) IntAttr(name string, def int) int {
	v, ok := n.Attr(name)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return i
}

// Text returns the concatenated text content with whitespace collapsed.
func (n *Node) Text() string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(h *html.Node) {
		if h.Type == html.TextNode {
			b.WriteString(h.Data)
			b.WriteByte(' ')
		}
		for c := h.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n.n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// QueryNodes returns the descendants matching selector in document order.
func (n *Node) QueryNodes(selector string) ([]*Node, error) {
	sel, err := n.doc.compile(selector)
	if err != nil {
		return nil, err
	}
	matches := cascadia.QueryAll(n.n, sel)
	if len(matches) == 0 {
		return nil, nil
	}
	out := make([]*Node, len(matches))
	for i, m := range matches {
		out[i] = n.doc.wrap(m)
	}
	return out, nil
}

// Query returns the first descendant matching selector.
func (n *Node) Query(selector string) (*Node, error) {
	sel, err := n.doc.compile(selector)
	if err != nil {
		return nil, err
	}
	m := cascadia.Query(n.n, sel)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return n.doc.wrap(m), nil
}

// QueryAll implements visibility.Root.
func (n *Node) QueryAll(selector string) ([]visibility.Element, error) {
	nodes, err := n.QueryNodes(selector)
	if err != nil {
		return nil, err
	}
	out := make([]visibility.Element, len(nodes))
	for i, node := range nodes {
		out[i] = node
	}
	return out, nil
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
