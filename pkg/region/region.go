// Package region locates and replaces named regions of a document.
//
// A region is the span between a start comment <!--tx:NAME--> and an end
// comment <!--tx:NAME_e-->. The reserved name "tx_" denotes the whole
// document.
package region

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vango-dev/tx/pkg/dom"
	"golang.org/x/net/html"
)

// Root is the region name that replaces the whole document.
const Root = "tx_"

const (
	markerPrefix = "tx:"
	endSuffix    = "_e"
)

// ErrMissingMarkers is returned when a region's marker pair is not found in
// document order.
var ErrMissingMarkers = errors.New("region: marker pair not found")

// StartMarker returns the comment text opening region name.
func StartMarker(name string) string {
	return markerPrefix + name
}

// EndMarker returns the comment text closing region name.
func EndMarker(name string) string {
	return markerPrefix + name + endSuffix
}

// Pair is a located marker pair.
type Pair struct {
	Name  string
	Start *html.Node
	End   *html.Node
}

// Find scans root in document order for the first start marker of name and
// the first end marker after it.
func Find(root *html.Node, name string) (Pair, error) {
	start, end := StartMarker(name), EndMarker(name)
	p := Pair{Name: name}
	dom.Walk(root, func(n *html.Node) bool {
		if p.End != nil {
			return false
		}
		if n.Type != html.CommentNode {
			return true
		}
		switch {
		case p.Start == nil && n.Data == start:
			p.Start = n
		case p.Start != nil && n.Data == end:
			p.End = n
		}
		return true
	})
	if p.Start == nil || p.End == nil {
		return Pair{}, fmt.Errorf("%w: %q", ErrMissingMarkers, name)
	}
	return p, nil
}

// Names lists the regions under root that have a start marker, in document
// order and without duplicates.
func Names(root *html.Node) []string {
	var names []string
	seen := make(map[string]bool)
	dom.Walk(root, func(n *html.Node) bool {
		if n.Type != html.CommentNode || !strings.HasPrefix(n.Data, markerPrefix) {
			return true
		}
		name := strings.TrimPrefix(n.Data, markerPrefix)
		if base, ok := strings.CutSuffix(name, endSuffix); ok && seen[base] {
			return true
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		return true
	})
	return names
}

// Replace deletes everything from before p.Start to after p.End and inserts
// deep copies of nodes at the collapsed point, in order. When the markers
// have different parents, ancestors that only partly overlap the span are
// kept and emptied on the overlapping side.
func Replace(m *dom.Mutator, p Pair, nodes []*html.Node) {
	ca := commonAncestor(p.Start.Parent, p.End.Parent)
	startTop := childOf(ca, p.Start)
	endTop := childOf(ca, p.End)

	ref := endTop
	if endTop == p.End {
		ref = p.End.NextSibling
	}

	// Start side: the marker, its following siblings, then the following
	// siblings of each partially covered ancestor.
	for n := p.Start; n != startTop; {
		parent := n.Parent
		removeFrom(m, n.NextSibling)
		if n == p.Start {
			m.Remove(n)
		}
		n = parent
	}
	// End side, mirrored.
	for n := p.End; n != endTop; {
		parent := n.Parent
		removeUntil(m, parent.FirstChild, n)
		if n == p.End {
			m.Remove(n)
		}
		n = parent
	}
	// Fully covered children of the common ancestor.
	for n := startTop.NextSibling; n != nil && n != endTop; {
		next := n.NextSibling
		m.Remove(n)
		n = next
	}
	if startTop == p.Start {
		m.Remove(startTop)
	}
	if endTop == p.End {
		m.Remove(endTop)
	}

	for _, n := range nodes {
		m.InsertBefore(ca, dom.Clone(n), ref)
	}
}

// ReplaceRoot swaps the document's children for those of doc.
func ReplaceRoot(m *dom.Mutator, doc *html.Node) {
	m.ReplaceChildren(m.Root(), doc)
}

func removeFrom(m *dom.Mutator, n *html.Node) {
	for n != nil {
		next := n.NextSibling
		m.Remove(n)
		n = next
	}
}

func removeUntil(m *dom.Mutator, n, stop *html.Node) {
	for n != nil && n != stop {
		next := n.NextSibling
		m.Remove(n)
		n = next
	}
}

// childOf returns the inclusive ancestor of n whose parent is ca.
func childOf(ca, n *html.Node) *html.Node {
	for n.Parent != ca {
		n = n.Parent
	}
	return n
}

func commonAncestor(a, b *html.Node) *html.Node {
	depth := func(n *html.Node) int {
		d := 0
		for ; n != nil; n = n.Parent {
			d++
		}
		return d
	}
	da, db := depth(a), depth(b)
	for ; da > db; da-- {
		a = a.Parent
	}
	for ; db > da; db-- {
		b = b.Parent
	}
	for a != b {
		a, b = a.Parent, b.Parent
	}
	return a
}
