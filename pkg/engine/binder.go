package engine

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/vango-dev/tx/pkg/dom"
	"github.com/vango-dev/tx/pkg/exchange"
)

const (
	attrSwap      = "tx-swap"
	attrValue     = "tx-value"
	triggerPrefix = "tx-on"
)

// binding is one listener the binder will register.
type binding struct {
	node  *html.Node
	event string
	kind  string
}

// bind registers listeners on root and every descendant carrying tx-value or
// a tx-on* attribute. Rebinding an element is a no-op.
func (e *Engine) bind(root *html.Node) {
	if !dom.IsElement(root) {
		return
	}

	var pending []binding
	e.doc.Read(func(*html.Node) {
		dom.Walk(root, func(n *html.Node) bool {
			if n.Type == html.ElementNode {
				pending = append(pending, bindingsOf(n)...)
			}
			return true
		})
	})

	for _, b := range pending {
		var fn dom.Listener
		key := triggerPrefix
		if b.kind == "value" {
			fn, key = e.onValue, attrValue
		} else {
			fn = e.onTrigger(b.event)
		}
		if e.doc.AddEventListener(b.node, b.event, key, fn) {
			e.metrics.recordBinding(b.kind)
		}
	}
}

func bindingsOf(n *html.Node) []binding {
	var out []binding
	for _, a := range n.Attr {
		if a.Namespace != "" {
			continue
		}
		switch {
		case a.Key == attrValue:
			if isInputCapable(n) {
				out = append(out, binding{node: n, event: "input", kind: "value"})
			}
		case strings.HasPrefix(a.Key, triggerPrefix) && len(a.Key) > len(triggerPrefix):
			out = append(out, binding{node: n, event: a.Key[len(triggerPrefix):], kind: "trigger"})
		}
	}
	return out
}

func isInputCapable(n *html.Node) bool {
	switch n.Data {
	case "input", "textarea", "select":
		return true
	}
	return false
}

// onValue writes the event value into state[tx-swap][tx-value]. Both
// attributes are read when the event fires.
func (e *Engine) onValue(ev *dom.Event) {
	el := ev.CurrentTarget
	swap, ok := e.doc.Attr(el, attrSwap)
	if !ok {
		return
	}
	field, ok := e.doc.Attr(el, attrValue)
	if !ok || field == "" {
		return
	}
	e.store.SetField(swap, field, ev.Value)
}

// onTrigger returns the listener for a tx-on<typ> attribute. It enqueues
// one exchange per firing and requests draining.
func (e *Engine) onTrigger(typ string) dom.Listener {
	return func(ev *dom.Event) {
		el := ev.CurrentTarget
		value, ok := e.doc.Attr(el, triggerPrefix+typ)
		if !ok {
			return
		}
		swap, _ := e.doc.Attr(el, attrSwap)
		handler, params := exchange.ParseTrigger(value)

		call := &exchange.Call{
			ID:      uuid.NewString(),
			Event:   typ,
			Handler: handler,
			Params:  params,
			Swap:    swap,
		}
		if err := e.queue.Enqueue(e.task(call)); err != nil {
			e.logger.Debug("exchange dropped", "handler", handler, "error", err)
			return
		}
		e.metrics.setQueueDepth(e.queue.Len())
		e.queue.Drain()
	}
}
