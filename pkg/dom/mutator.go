package dom

import "golang.org/x/net/html"

// Mutator performs structural changes inside Document.Update and records
// them for observers. It is only valid for the duration of the Update call.
type Mutator struct {
	d       *Document
	records []MutationRecord
}

// Root returns the document node.
func (m *Mutator) Root() *html.Node {
	return m.d.root
}

// InsertBefore inserts child into parent before ref; a nil ref appends.
// An attached child is moved, which records a removal first.
func (m *Mutator) InsertBefore(parent, child, ref *html.Node) {
	if child.Parent != nil {
		m.Remove(child)
	}
	parent.InsertBefore(child, ref)
	m.records = append(m.records, MutationRecord{
		Target:     parent,
		AddedNodes: []*html.Node{child},
	})
}

// AppendChild appends child to parent.
func (m *Mutator) AppendChild(parent, child *html.Node) {
	m.InsertBefore(parent, child, nil)
}

// Remove detaches child from its parent.
func (m *Mutator) Remove(child *html.Node) {
	parent := child.Parent
	if parent == nil {
		return
	}
	parent.RemoveChild(child)
	m.records = append(m.records, MutationRecord{
		Target:       parent,
		RemovedNodes: []*html.Node{child},
	})
}

// ReplaceChildren removes every child of parent and moves the children of
// src into it, in order. src is left empty.
func (m *Mutator) ReplaceChildren(parent, src *html.Node) {
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		m.Remove(c)
		c = next
	}
	for c := src.FirstChild; c != nil; {
		next := c.NextSibling
		src.RemoveChild(c)
		m.AppendChild(parent, c)
		c = next
	}
}

// Records returns the mutations recorded so far.
func (m *Mutator) Records() []MutationRecord {
	return m.records
}
