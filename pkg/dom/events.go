package dom

import "golang.org/x/net/html"

// AddEventListener registers fn for events of type typ on element n.
//
// A non-empty key identifies the listener: registering the same key twice for
// the same element and type is a no-op, which is how callers that scan the
// same subtree more than once avoid double registration. Listeners cannot be
// added to nodes that are not attached to the document.
//
// It reports whether the listener was added.
func (d *Document) AddEventListener(n *html.Node, typ, key string, fn Listener) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !isAncestor(d.root, n) {
		return false
	}

	byType := d.listeners[n]
	if byType == nil {
		byType = make(map[string][]listener)
		d.listeners[n] = byType
	}
	if key != "" {
		for _, l := range byType[typ] {
			if l.key == key {
				return false
			}
		}
	}
	byType[typ] = append(byType[typ], listener{key: key, fn: fn})
	return true
}

// ListenerCount returns the number of listeners for typ on n.
func (d *Document) ListenerCount(n *html.Node, typ string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[n][typ])
}

// HasListeners reports whether any listener is registered on n.
func (d *Document) HasListeners(n *html.Node) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[n]) > 0
}

// Dispatch fires ev at ev.Target and bubbles it up through its ancestors.
// Listeners run synchronously on the calling goroutine with no lock held.
// It returns the number of listeners invoked.
func (d *Document) Dispatch(ev *Event) int {
	type call struct {
		node *html.Node
		fns  []listener
	}

	d.mu.RLock()
	var path []call
	for n := ev.Target; n != nil; n = n.Parent {
		ls := d.listeners[n][ev.Type]
		if len(ls) == 0 {
			continue
		}
		fns := make([]listener, len(ls))
		copy(fns, ls)
		path = append(path, call{node: n, fns: fns})
	}
	d.mu.RUnlock()

	count := 0
	for _, c := range path {
		ev.CurrentTarget = c.node
		for _, l := range c.fns {
			l.fn(ev)
			count++
		}
	}
	ev.CurrentTarget = nil
	return count
}
