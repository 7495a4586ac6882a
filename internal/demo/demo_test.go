package demo_test

import (
	"io"
	"log/slog"
	"net/url"
	"testing"

	"github.com/vango-dev/tx/internal/demo"
	"github.com/vango-dev/tx/pkg/engine"
	"github.com/vango-dev/tx/pkg/exchange"
	"github.com/vango-dev/tx/pkg/txtest"
)

func newServer(t *testing.T) *txtest.Server {
	t.Helper()
	s := txtest.NewServer(t)
	s.Router.Mount("/", demo.New(slog.New(slog.NewTextHandler(io.Discard, nil)), "").Routes())
	return s
}

func add(t *testing.T, e *engine.Engine, item string) {
	t.Helper()
	if err := e.Input("#item", item); err != nil {
		t.Fatal(err)
	}
	if err := e.Click("#add"); err != nil {
		t.Fatal(err)
	}
	txtest.Settle(t, e)
}

func TestAddAndRemove(t *testing.T) {
	s := newServer(t)
	e := s.Load(t, "/")

	txtest.ExpectField(t, e, demo.Region, "list", []any{})

	add(t, e, "milk")
	add(t, e, "eggs")
	add(t, e, "")

	txtest.ExpectCount(t, e, "ul#list li", 2)
	txtest.ExpectField(t, e, demo.Region, "list", []any{"milk", "eggs"})
	txtest.ExpectField(t, e, demo.Region, "item", "")

	if err := e.Click(`[tx-onclick="todo_remove?i=0"]`); err != nil {
		t.Fatal(err)
	}
	txtest.Settle(t, e)
	txtest.ExpectCount(t, e, "ul#list li", 1)
	txtest.ExpectNotContains(t, e, "<li>milk")
	txtest.ExpectContains(t, e, "<li>eggs")
}

func TestRemoveOutOfRangeKeepsList(t *testing.T) {
	s := newServer(t)
	e := s.Load(t, "/")
	add(t, e, "milk")

	// Rewrite the trigger to point past the end of the list.
	n, err := e.Document().Query("button.remove")
	if err != nil || n == nil {
		t.Fatalf("remove button not found: %v", err)
	}
	e.Document().SetAttr(n, "tx-onclick", "todo_remove?i=7")
	e.Fire(n, "click")
	txtest.Settle(t, e)

	txtest.ExpectField(t, e, demo.Region, "list", []any{"milk"})
}

func TestResetReplacesDocument(t *testing.T) {
	s := newServer(t)
	e := s.Load(t, "/")
	add(t, e, "milk")

	if err := e.Click("#reset"); err != nil {
		t.Fatal(err)
	}
	txtest.Settle(t, e)

	txtest.ExpectNotContains(t, e, "<li>milk")
	txtest.ExpectField(t, e, demo.Region, "list", []any{})

	// The new document is bound like the first one.
	add(t, e, "bread")
	txtest.ExpectField(t, e, demo.Region, "list", []any{"bread"})
}

func TestOverWebSocket(t *testing.T) {
	s := newServer(t)
	page, _ := url.Parse(s.URL + "/")
	ws := exchange.NewWSTransport(exchange.WSEndpoint(page, exchange.DefaultPrefix+"ws"))
	e := s.Load(t, "/", engine.WithTransport(ws))

	add(t, e, "milk")
	if err := e.Click("#reset"); err != nil {
		t.Fatal(err)
	}
	txtest.Settle(t, e)
	add(t, e, "tea")

	txtest.ExpectField(t, e, demo.Region, "list", []any{"tea"})
	txtest.ExpectContains(t, e, "<li>tea")
}

func TestCustomPrefix(t *testing.T) {
	s := txtest.NewServer(t)
	s.Router.Mount("/", demo.New(slog.New(slog.NewTextHandler(io.Discard, nil)), "/api/").Routes())
	e := s.Load(t, "/", engine.WithHandlerPrefix("/api/"))

	add(t, e, "milk")
	txtest.ExpectField(t, e, demo.Region, "list", []any{"milk"})
}
