package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"

	"github.com/vango-dev/tx/pkg/dom"
	"github.com/vango-dev/tx/pkg/exchange"
	"github.com/vango-dev/tx/pkg/queue"
	"github.com/vango-dev/tx/pkg/snapshot"
	"github.com/vango-dev/tx/pkg/state"
)

// ErrNoElement is returned when a selector matches nothing.
var ErrNoElement = errors.New("engine: no element matches selector")

// Engine drives one document. It is safe for concurrent use.
type Engine struct {
	doc       *dom.Document
	store     *state.Store
	queue     *queue.Queue
	transport exchange.Transport
	baseURL   *url.URL

	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	timeout time.Duration

	unobserve func()

	failMu   sync.Mutex
	failures []error
}

// New creates an engine over doc. The initial state is read from the
// document's tx-state element, if any, and the document is bound.
func New(doc *dom.Document, opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return newEngine(doc, o)
}

func newEngine(doc *dom.Document, o *options) (*Engine, error) {
	var seed map[string]any
	var err error
	doc.Read(func(root *html.Node) {
		seed, err = exchange.EmbeddedState(root)
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		doc:       doc,
		store:     state.New(seed),
		transport: o.transport,
		baseURL:   o.baseURL,
		logger:    o.logger,
		metrics:   o.metrics,
		tracer:    o.tracer,
		timeout:   o.timeout,
	}
	if e.transport == nil {
		e.transport = &exchange.HTTPTransport{
			Client: o.client,
			Base:   o.baseURL,
			Prefix: o.prefix,
			Logger: o.logger,
		}
	}
	e.queue = queue.New(
		queue.WithLogger(o.logger),
		queue.WithResultHook(func(r queue.Result) {
			e.metrics.setQueueDepth(r.Pending)
			if r.Err != nil {
				e.failMu.Lock()
				e.failures = append(e.failures, r.Err)
				e.failMu.Unlock()
			}
		}),
	)

	e.unobserve = e.watch()
	e.bind(doc.DocumentElement())
	return e, nil
}

// Load fetches rawURL and creates an engine over the returned page.
// Handler routes resolve against the page URL unless WithBaseURL is given.
func Load(ctx context.Context, rawURL string, opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("engine: parse url: %w", err)
	}
	if o.baseURL == nil {
		o.baseURL = u
	}

	client := o.client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("engine: load %s: %w", rawURL, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine: load %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("engine: load %s: status %d: %s", rawURL, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	doc, err := dom.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("engine: load %s: %w", rawURL, err)
	}
	o.logger.Debug("page loaded", "url", rawURL)
	return newEngine(doc, o)
}

// Restore recreates an engine from a snapshot. The snapshot's state
// replaces whatever state the stored HTML embeds.
func Restore(snap *snapshot.Snapshot, opts ...Option) (*Engine, error) {
	o := defaultOptions()
	if snap.URL != "" {
		if u, err := url.Parse(snap.URL); err == nil {
			o.baseURL = u
		}
	}
	for _, opt := range opts {
		opt(o)
	}

	doc, err := dom.ParseString(snap.HTML)
	if err != nil {
		return nil, fmt.Errorf("engine: restore: %w", err)
	}
	e, err := newEngine(doc, o)
	if err != nil {
		return nil, err
	}
	if len(snap.State) > 0 {
		seed, err := state.Decode(snap.State)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("engine: restore state: %w", err)
		}
		e.store.Reset(seed)
	}
	return e, nil
}

// Document returns the live document.
func (e *Engine) Document() *dom.Document {
	return e.doc
}

// State returns the state store.
func (e *Engine) State() *state.Store {
	return e.store
}

// Pending returns the number of queued exchanges.
func (e *Engine) Pending() int {
	return e.queue.Len()
}

// Fire dispatches an event of type typ at n and returns the number of
// listeners that ran.
func (e *Engine) Fire(n *html.Node, typ string) int {
	return e.doc.Dispatch(&dom.Event{Type: typ, Target: n})
}

// Click dispatches a click at the first element matching sel.
func (e *Engine) Click(sel string) error {
	n, err := e.find(sel)
	if err != nil {
		return err
	}
	e.Fire(n, "click")
	return nil
}

// Input sets the value of the first element matching sel and dispatches an
// input event carrying it.
func (e *Engine) Input(sel, value string) error {
	n, err := e.find(sel)
	if err != nil {
		return err
	}
	e.doc.SetAttr(n, "value", value)
	e.doc.Dispatch(&dom.Event{Type: "input", Target: n, Value: value})
	return nil
}

// Trigger dispatches an event of type typ at the first element matching sel.
func (e *Engine) Trigger(sel, typ string) error {
	n, err := e.find(sel)
	if err != nil {
		return err
	}
	e.Fire(n, typ)
	return nil
}

func (e *Engine) find(sel string) (*html.Node, error) {
	n, err := e.doc.Query(sel)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoElement, sel)
	}
	return n, nil
}

// Wait blocks until every queued exchange has run or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	return e.queue.Wait(ctx)
}

// Failures returns the errors of exchanges that failed since the previous
// call, in the order they ran, and forgets them. Once Wait returns nil every
// exchange it waited for is accounted for.
func (e *Engine) Failures() []error {
	e.failMu.Lock()
	defer e.failMu.Unlock()
	out := e.failures
	e.failures = nil
	return out
}

// Snapshot captures the current document and state.
func (e *Engine) Snapshot() (*snapshot.Snapshot, error) {
	st, err := json.Marshal(e.store)
	if err != nil {
		return nil, fmt.Errorf("engine: snapshot state: %w", err)
	}
	snap := &snapshot.Snapshot{
		TakenAt: time.Now().UTC(),
		HTML:    e.doc.String(),
		State:   st,
	}
	if e.baseURL != nil {
		snap.URL = e.baseURL.String()
	}
	return snap, nil
}

// Close stops observing the document and discards queued exchanges. A
// running exchange has its context cancelled.
func (e *Engine) Close() error {
	e.unobserve()
	err := e.queue.Close()
	if c, ok := e.transport.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
