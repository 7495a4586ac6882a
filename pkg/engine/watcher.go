package engine

import "github.com/vango-dev/tx/pkg/dom"

// watch binds every node added to the document from now on. It returns the
// function that stops watching.
func (e *Engine) watch() func() {
	return e.doc.Observe(func(records []dom.MutationRecord) {
		for _, r := range records {
			for _, n := range r.AddedNodes {
				e.bind(n)
			}
		}
	})
}
