package txtest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/tx/pkg/engine"
	"github.com/vango-dev/tx/pkg/exchange"
)

// Exchange is one handler request received by a Server.
type Exchange struct {
	Handler string
	Form    url.Values
}

// Server is a test server for tx pages.
type Server struct {
	*httptest.Server

	// Router serves every request. Routes may be added directly.
	Router chi.Router

	mu        sync.Mutex
	exchanges []Exchange
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{Router: chi.NewRouter()}
	s.Server = httptest.NewServer(s.Router)
	t.Cleanup(s.Close)
	return s
}

// Page serves a document at path. Bodies without an <html> element are
// wrapped in a minimal page.
func (s *Server) Page(path, body string) {
	if !strings.Contains(body, "<html") {
		body = "<!DOCTYPE html><html><head></head><body>" + body + "</body></html>"
	}
	s.Router.Get(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, body)
	})
}

// Handle registers fn for handler id under the default prefix. Every call
// is recorded before fn runs.
func (s *Server) Handle(handler string, fn http.HandlerFunc) {
	s.Router.Post(exchange.DefaultPrefix+handler, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		s.mu.Lock()
		s.exchanges = append(s.exchanges, Exchange{Handler: handler, Form: r.PostForm})
		s.mu.Unlock()
		fn(w, r)
	})
}

// Respond registers a handler that always answers with body.
func (s *Server) Respond(handler, body string) {
	s.Handle(handler, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, body)
	})
}

// Exchanges returns the handler requests received so far, in order.
func (s *Server) Exchanges() []Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Exchange, len(s.exchanges))
	copy(out, s.exchanges)
	return out
}

// Load creates an engine for path. The engine is closed when the test ends
// and logs are discarded unless a logger option is given.
func (s *Server) Load(t testing.TB, path string, opts ...engine.Option) *engine.Engine {
	t.Helper()
	base := []engine.Option{
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithHTTPClient(s.Client()),
	}
	e, err := engine.Load(context.Background(), s.URL+path, append(base, opts...)...)
	if err != nil {
		t.Fatalf("load %s: %v", path, err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

// Settle waits for every queued exchange to finish.
func Settle(t testing.TB, e *engine.Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Wait(ctx); err != nil {
		t.Fatalf("exchanges did not settle: %v", err)
	}
}
