package dom

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Event is a user event dispatched against an element.
type Event struct {
	// Type is the event name, e.g. "click" or "input".
	Type string

	// Target is the element the event was fired on.
	Target *html.Node

	// CurrentTarget is the element whose listener is running.
	// It differs from Target while the event bubbles.
	CurrentTarget *html.Node

	// Value carries the new value for input-like events.
	Value string
}

// Listener handles a dispatched event.
type Listener func(ev *Event)

type listener struct {
	key string
	fn  Listener
}

// MutationRecord describes one child-list change.
type MutationRecord struct {
	// Target is the node whose children changed.
	Target *html.Node

	AddedNodes   []*html.Node
	RemovedNodes []*html.Node
}

// ObserverFunc receives the records of one Update batch.
type ObserverFunc func(records []MutationRecord)

type observer struct {
	id int
	fn ObserverFunc
}

// Document is a live HTML document. See the package documentation.
type Document struct {
	mu        sync.RWMutex
	root      *html.Node
	listeners map[*html.Node]map[string][]listener

	obsMu     sync.Mutex
	observers []observer
	nextObs   int
}

// New wraps an already parsed document node.
func New(root *html.Node) *Document {
	if root == nil {
		root = &html.Node{Type: html.DocumentNode}
	}
	return &Document{
		root:      root,
		listeners: make(map[*html.Node]map[string][]listener),
	}
}

// Parse parses a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return New(root), nil
}

// ParseString parses a full HTML document from a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document node. Callers must not mutate the tree directly;
// use Update instead.
func (d *Document) Root() *html.Node {
	return d.root
}

// DocumentElement returns the root element (normally <html>).
func (d *Document) DocumentElement() *html.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return documentElement(d.root)
}

func documentElement(root *html.Node) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// Render writes the serialized document to w.
func (d *Document) Render(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return html.Render(w, d.root)
}

// String returns the serialized document.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// RenderNode serializes a single node of the document.
func (d *Document) RenderNode(n *html.Node) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// Read runs fn with the read lock held. fn must not call back into d.
func (d *Document) Read(fn func(root *html.Node)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(d.root)
}

// Attr returns an attribute of an element.
func (d *Document) Attr(n *html.Node, name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return AttrOf(n, name)
}

// SetAttr sets an attribute. Attribute changes are not reported to observers.
func (d *Document) SetAttr(n *html.Node, name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	setAttr(n, name, value)
}

// RemoveAttr deletes an attribute. It is not reported to observers.
func (d *Document) RemoveAttr(n *html.Node, name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return removeAttr(n, name)
}

// Text returns the text content of n.
func (d *Document) Text(n *html.Node) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return TextContent(n)
}

// GetElementByID returns the first element with the given id, or nil.
func (d *Document) GetElementByID(id string) *html.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return FindByID(d.root, id)
}

// Contains reports whether n is attached to the document.
func (d *Document) Contains(n *html.Node) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return isAncestor(d.root, n)
}

// Update applies a batch of structural changes under the write lock. Records
// produced by the Mutator are delivered to observers after the lock is
// released, even when fn returns an error after partially mutating.
func (d *Document) Update(fn func(m *Mutator) error) error {
	d.mu.Lock()
	m := &Mutator{d: d}
	err := fn(m)
	d.pruneDetached(m.records)
	d.mu.Unlock()

	if len(m.records) > 0 {
		d.notify(m.records)
	}
	return err
}

// AppendChild appends child to parent.
func (d *Document) AppendChild(parent, child *html.Node) {
	_ = d.Update(func(m *Mutator) error {
		m.AppendChild(parent, child)
		return nil
	})
}

// InsertBefore inserts child into parent before ref. A nil ref appends.
func (d *Document) InsertBefore(parent, child, ref *html.Node) {
	_ = d.Update(func(m *Mutator) error {
		m.InsertBefore(parent, child, ref)
		return nil
	})
}

// RemoveChild detaches child from the document.
func (d *Document) RemoveChild(child *html.Node) {
	_ = d.Update(func(m *Mutator) error {
		m.Remove(child)
		return nil
	})
}

// Observe registers fn for child-list mutations anywhere in the document.
// The returned function unregisters it.
func (d *Document) Observe(fn ObserverFunc) func() {
	d.obsMu.Lock()
	defer d.obsMu.Unlock()
	d.nextObs++
	id := d.nextObs
	d.observers = append(d.observers, observer{id: id, fn: fn})
	return func() {
		d.obsMu.Lock()
		defer d.obsMu.Unlock()
		for i, o := range d.observers {
			if o.id == id {
				d.observers = append(d.observers[:i], d.observers[i+1:]...)
				return
			}
		}
	}
}

func (d *Document) notify(records []MutationRecord) {
	d.obsMu.Lock()
	obs := make([]observer, len(d.observers))
	copy(obs, d.observers)
	d.obsMu.Unlock()

	for _, o := range obs {
		o.fn(records)
	}
}

// pruneDetached drops listeners of nodes that left the document.
// Caller holds d.mu.
func (d *Document) pruneDetached(records []MutationRecord) {
	if len(d.listeners) == 0 {
		return
	}
	for _, r := range records {
		for _, n := range r.RemovedNodes {
			if isAncestor(d.root, n) {
				continue
			}
			Walk(n, func(c *html.Node) bool {
				delete(d.listeners, c)
				return true
			})
		}
	}
}
