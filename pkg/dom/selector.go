package dom

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// ErrInvalidSelector is returned for selectors that do not parse.
var ErrInvalidSelector = errors.New("dom: invalid selector")

// Selector is a compiled CSS selector group.
type Selector struct {
	sel cascadia.Selector
}

// Compile parses a CSS selector group.
func Compile(sel string) (*Selector, error) {
	if strings.TrimSpace(sel) == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSelector)
	}
	s, err := cascadia.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSelector, sel, err)
	}
	return &Selector{sel: s}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(sel string) *Selector {
	s, err := Compile(sel)
	if err != nil {
		panic(err)
	}
	return s
}

// Match reports whether n matches the selector.
func (s *Selector) Match(n *html.Node) bool {
	return s.sel.Match(n)
}

// MatchAll returns every node under root, in document order, matching s.
func (s *Selector) MatchAll(root *html.Node) []*html.Node {
	return s.sel.MatchAll(root)
}

// MatchFirst returns the first node under root matching s, or nil.
func (s *Selector) MatchFirst(root *html.Node) *html.Node {
	return s.sel.MatchFirst(root)
}

// QueryAll returns all elements in the document matching sel.
func (d *Document) QueryAll(sel string) ([]*html.Node, error) {
	s, err := Compile(sel)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return s.MatchAll(d.root), nil
}

// Query returns the first element matching sel, or nil.
func (d *Document) Query(sel string) (*html.Node, error) {
	s, err := Compile(sel)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return s.MatchFirst(d.root), nil
}
