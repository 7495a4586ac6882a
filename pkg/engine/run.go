package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/vango-dev/tx/pkg/dom"
	"github.com/vango-dev/tx/pkg/exchange"
	"github.com/vango-dev/tx/pkg/queue"
	"github.com/vango-dev/tx/pkg/region"
)

func (e *Engine) task(call *exchange.Call) queue.Task {
	return func(ctx context.Context) error {
		return e.run(ctx, call)
	}
}

// run performs one exchange: send the region's state, merge the returned
// state and patch the document.
func (e *Engine) run(ctx context.Context, call *exchange.Call) (err error) {
	start := time.Now()
	ctx, span := e.startSpan(ctx, call)
	defer func() {
		e.metrics.recordExchange(call.Handler, time.Since(start), err)
		endSpan(span, err)
		if err != nil {
			err = fmt.Errorf("exchange %s %q: %w", call.ID, call.Handler, err)
		}
	}()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	logger := e.logger.With(
		"exchange_id", call.ID,
		"handler", call.Handler,
		"swap", call.Swap,
	)

	form, err := exchange.BuildForm(call, e.store)
	if err != nil {
		return err
	}
	body, err := e.transport.RoundTrip(ctx, call, form)
	if err != nil {
		return err
	}

	if call.Swap == region.Root {
		err = e.replaceRoot(body)
	} else {
		err = e.patchRegion(call.Swap, body)
	}
	if err != nil {
		return err
	}
	logger.Debug("exchange applied", "duration", time.Since(start))
	return nil
}

// patchRegion replaces region name with the response fragment. Markers are
// located before state is merged so a failed lookup changes nothing.
func (e *Engine) patchRegion(name, body string) error {
	frag, err := exchange.ParseFragment(body)
	if err != nil {
		return err
	}
	err = e.doc.Update(func(m *dom.Mutator) error {
		pair, err := region.Find(m.Root(), name)
		if err != nil {
			return err
		}
		e.store.MergeAll(frag.State)
		region.Replace(m, pair, frag.Nodes)
		return nil
	})
	if err != nil {
		return err
	}
	e.metrics.recordPatch("region")
	return nil
}

// replaceRoot swaps in a whole new document and re-seeds state from it.
func (e *Engine) replaceRoot(body string) error {
	root, seed, err := exchange.ParseDocument(body)
	if err != nil {
		return err
	}
	e.store.Reset(seed)
	_ = e.doc.Update(func(m *dom.Mutator) error {
		region.ReplaceRoot(m, root)
		return nil
	})
	e.metrics.recordPatch("root")
	return nil
}
