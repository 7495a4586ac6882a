package engine_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vango-dev/tx/pkg/dom"
	"github.com/vango-dev/tx/pkg/engine"
	"github.com/vango-dev/tx/pkg/exchange"
	txregion "github.com/vango-dev/tx/pkg/region"
	"github.com/vango-dev/tx/pkg/txtest"
)

func region(name, body string) string {
	return "<!--tx:" + name + "-->" + body + "<!--tx:" + name + "_e-->"
}

func stateScript(js string) string {
	return `<script id="tx-state" type="application/json">` + js + `</script>`
}

func TestInitialStateFromPage(t *testing.T) {
	srv := txtest.NewServer(t)
	srv.Page("/", region("tx_a", "x")+stateScript(`{"tx_a":{"n":1}}`))

	e := srv.Load(t, "/")
	txtest.ExpectField(t, e, "tx_a", "n", 1)
}

func TestExchangesRunInTriggerOrder(t *testing.T) {
	srv := txtest.NewServer(t)
	var buttons strings.Builder
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&buttons, `<button id="b%d" tx-swap="tx_a" tx-onclick="h?n=%d">%d</button>`, i, i, i)
	}
	srv.Page("/", buttons.String()+region("tx_a", "start")+stateScript(`{}`))

	var active, peak atomic.Int32
	srv.Handle("h", func(w http.ResponseWriter, r *http.Request) {
		if n := active.Add(1); n > peak.Load() {
			peak.Store(n)
		}
		defer active.Add(-1)
		time.Sleep(5 * time.Millisecond)
		io.WriteString(w, region("tx_a", "n="+r.PostForm.Get("n"))+stateScript(`{}`))
	})

	e := srv.Load(t, "/")
	for i := 0; i < 5; i++ {
		if err := e.Click(fmt.Sprintf("#b%d", i)); err != nil {
			t.Fatal(err)
		}
	}
	txtest.Settle(t, e)

	got := srv.Exchanges()
	if len(got) != 5 {
		t.Fatalf("exchanges = %d, want 5", len(got))
	}
	for i, ex := range got {
		if ex.Form.Get("n") != fmt.Sprint(i) {
			t.Errorf("exchange[%d] n = %q, want %d", i, ex.Form.Get("n"), i)
		}
	}
	if peak.Load() != 1 {
		t.Errorf("peak concurrent exchanges = %d, want 1", peak.Load())
	}
	txtest.ExpectContains(t, e, "n=4")
}

func TestStateSentByRegionPrefix(t *testing.T) {
	srv := txtest.NewServer(t)
	srv.Page("/", `<button id="go" tx-swap="form" tx-onclick="h">go</button>`+
		region("form", "")+
		stateScript(`{"form":{"a":1},"form.child":{"b":2},"other":{"c":3}}`))
	srv.Respond("h", region("form", "ok")+stateScript(`{}`))

	e := srv.Load(t, "/")
	e.Click("#go")
	txtest.Settle(t, e)

	ex := srv.Exchanges()
	if len(ex) != 1 {
		t.Fatalf("exchanges = %d, want 1", len(ex))
	}
	form := ex[0].Form
	if got := form.Get("form"); got != `{"a":1}` {
		t.Errorf("form = %q, want {\"a\":1}", got)
	}
	if got := form.Get("form.child"); got != `{"b":2}` {
		t.Errorf("form.child = %q, want {\"b\":2}", got)
	}
	if form.Has("other") {
		t.Errorf("other should not be sent, form = %v", form)
	}
	if got := form.Get(exchange.SwapParam); got != "form" {
		t.Errorf("tx-swap = %q, want form", got)
	}
}

func TestInputWritesState(t *testing.T) {
	srv := txtest.NewServer(t)
	srv.Page("/", `<input id="item" tx-swap="tx_todo" tx-value="item">`+
		`<textarea id="note" tx-swap="tx_todo" tx-value="note"></textarea>`+
		`<div id="plain" tx-swap="tx_todo" tx-value="nope"></div>`+
		`<input id="loose" tx-value="x">`+
		`<input id="blank" tx-swap="tx_blank" tx-value="">`+
		stateScript(`{}`))

	e := srv.Load(t, "/")
	e.Input("#item", "milk")
	e.Input("#note", "2%")
	e.Input("#loose", "ignored")
	e.Input("#blank", "z")

	txtest.ExpectField(t, e, "tx_todo", "item", "milk")
	txtest.ExpectField(t, e, "tx_todo", "note", "2%")
	if _, ok := e.State().Field("tx_todo", "nope"); ok {
		t.Error("tx-value on a non-input element should not bind")
	}
	if keys := e.State().Keys(); len(keys) != 1 {
		t.Errorf("state keys = %v, want only tx_todo", keys)
	}
	if _, ok := e.State().Field("tx_blank", ""); ok {
		t.Error("an empty tx-value should not write state")
	}
}

func TestRegionReplaceIsRepeatable(t *testing.T) {
	srv := txtest.NewServer(t)
	srv.Page("/", `<button id="go" tx-swap="tx_a" tx-onclick="h">go</button>`+region("tx_a", "0")+stateScript(`{}`))

	var n atomic.Int32
	srv.Handle("h", func(w http.ResponseWriter, r *http.Request) {
		v := n.Add(1)
		io.WriteString(w, region("tx_a", fmt.Sprintf("<p>v%d</p>", v))+stateScript(fmt.Sprintf(`{"tx_a":{"v":%d}}`, v)))
	})

	e := srv.Load(t, "/")
	for i := 1; i <= 3; i++ {
		e.Click("#go")
		txtest.Settle(t, e)

		html := e.Document().String()
		if c := strings.Count(html, "<!--tx:tx_a-->"); c != 1 {
			t.Errorf("after %d: start markers = %d, want 1", i, c)
		}
		if c := strings.Count(html, "<!--tx:tx_a_e-->"); c != 1 {
			t.Errorf("after %d: end markers = %d, want 1", i, c)
		}
		txtest.ExpectContains(t, e, fmt.Sprintf("<p>v%d</p>", i))
		txtest.ExpectField(t, e, "tx_a", "v", i)
	}
	// Only the page's own state element remains; fragment ones are consumed.
	if c := strings.Count(e.Document().String(), `id="tx-state"`); c != 1 {
		t.Errorf("state elements = %d, want 1", c)
	}
}

func TestInsertedContentIsBound(t *testing.T) {
	srv := txtest.NewServer(t)
	srv.Page("/", `<button id="load" tx-swap="tx_a" tx-onclick="load">load</button>`+region("tx_a", "")+stateScript(`{}`))
	srv.Respond("load", region("tx_a", `<div><span><button id="inner" tx-swap="tx_a" tx-onclick="inner">in</button></span></div>`)+stateScript(`{}`))
	srv.Respond("inner", region("tx_a", "clicked")+stateScript(`{}`))

	e := srv.Load(t, "/")
	e.Click("#load")
	txtest.Settle(t, e)

	if err := e.Click("#inner"); err != nil {
		t.Fatal(err)
	}
	txtest.Settle(t, e)

	txtest.ExpectContains(t, e, "clicked")
	ex := srv.Exchanges()
	if len(ex) != 2 || ex[1].Handler != "inner" {
		t.Errorf("exchanges = %+v, want load then inner", ex)
	}
}

func TestOneTriggerOneExchange(t *testing.T) {
	srv := txtest.NewServer(t)
	srv.Page("/", `<button id="go" tx-swap="tx_a" tx-onclick="h">go</button>`+region("tx_a", "")+stateScript(`{}`))
	srv.Respond("h", region("tx_a", `<ul><li><button id="nested" tx-swap="tx_b" tx-onclick="n">n</button></li></ul>`)+stateScript(`{}`))

	e := srv.Load(t, "/")
	e.Click("#go")
	txtest.Settle(t, e)

	for _, sel := range []string{"#go", "#nested"} {
		n, _ := e.Document().Query(sel)
		if c := e.Document().ListenerCount(n, "click"); c != 1 {
			t.Errorf("%s click listeners = %d, want 1", sel, c)
		}
	}

	// A re-scan of the whole document must not add listeners.
	e2, err := engine.New(e.Document(), engine.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	defer e2.Close()
	n, _ := e.Document().Query("#go")
	if c := e.Document().ListenerCount(n, "click"); c != 1 {
		t.Errorf("after rescan: click listeners = %d, want 1", c)
	}
}

func TestRootReplace(t *testing.T) {
	srv := txtest.NewServer(t)
	srv.Page("/", `<p id="old">old</p><button id="swap" tx-swap="tx_" tx-onclick="root">swap</button>`+stateScript(`{"tx_old":{"a":1}}`))
	srv.Respond("root", `<!DOCTYPE html><html><head></head><body>`+
		`<p id="fresh">fresh</p><button id="next" tx-swap="tx_n" tx-onclick="next">next</button>`+
		region("tx_n", "")+stateScript(`{"tx_n":{"b":2}}`)+`</body></html>`)
	srv.Respond("next", region("tx_n", "after")+stateScript(`{}`))

	e := srv.Load(t, "/")
	oldBtn, _ := e.Document().Query("#swap")

	e.Click("#swap")
	txtest.Settle(t, e)

	txtest.ExpectNotContains(t, e, `id="old"`)
	txtest.ExpectContains(t, e, `id="fresh"`)
	if _, ok := e.State().Get("tx_old"); ok {
		t.Error("state should be re-seeded from the new document")
	}
	txtest.ExpectField(t, e, "tx_n", "b", 2)

	if e.Document().HasListeners(oldBtn) {
		t.Error("listeners on discarded elements should be dropped")
	}
	if got := e.Fire(oldBtn, "click"); got != 0 {
		t.Errorf("Fire(old) ran %d listeners, want 0", got)
	}

	e.Click("#next")
	txtest.Settle(t, e)
	txtest.ExpectContains(t, e, "after")
}

func TestFailedExchangeIsIsolated(t *testing.T) {
	srv := txtest.NewServer(t)
	srv.Page("/", `<button id="bad" tx-swap="tx_a" tx-onclick="bad">bad</button>`+
		`<button id="nomark" tx-swap="tx_b" tx-onclick="nomark">nomark</button>`+
		`<button id="noswap" tx-onclick="good">noswap</button>`+
		`<button id="good" tx-swap="tx_a" tx-onclick="good">good</button>`+
		region("tx_a", "0")+stateScript(`{"tx_a":{"v":0}}`))
	srv.Respond("bad", `<p>no state here</p>`)
	srv.Respond("nomark", `<p>x</p>`+stateScript(`{"tx_a":{"v":99}}`))
	srv.Respond("good", region("tx_a", "good")+stateScript(`{"tx_a":{"v":1}}`))

	e := srv.Load(t, "/")
	for _, id := range []string{"#bad", "#nomark", "#noswap", "#good"} {
		e.Click(id)
	}
	txtest.Settle(t, e)

	if len(srv.Exchanges()) != 4 {
		t.Errorf("exchanges = %d, want 4", len(srv.Exchanges()))
	}
	txtest.ExpectContains(t, e, "good")
	txtest.ExpectNotContains(t, e, "no state here")
	txtest.ExpectField(t, e, "tx_a", "v", 1)

	failures := e.Failures()
	if len(failures) != 3 {
		t.Fatalf("Failures() = %v, want 3 errors", failures)
	}
	wants := []error{exchange.ErrMissingState, txregion.ErrMissingMarkers, txregion.ErrMissingMarkers}
	for i, want := range wants {
		if !errors.Is(failures[i], want) {
			t.Errorf("failures[%d] = %v, want %v", i, failures[i], want)
		}
	}
	if again := e.Failures(); len(again) != 0 {
		t.Errorf("second Failures() = %v, want none", again)
	}
}

func TestMissingMarkersLeaveStateUntouched(t *testing.T) {
	srv := txtest.NewServer(t)
	srv.Page("/", `<button id="go" tx-swap="tx_gone" tx-onclick="h">go</button>`+stateScript(`{"tx_gone":{"v":0}}`))
	srv.Respond("h", stateScript(`{"tx_gone":{"v":1}}`))

	e := srv.Load(t, "/")
	e.Click("#go")
	txtest.Settle(t, e)
	txtest.ExpectField(t, e, "tx_gone", "v", 0)
}

func TestTriggerParsedAtFireTime(t *testing.T) {
	srv := txtest.NewServer(t)
	srv.Page("/", `<button id="go" tx-swap="tx_a" tx-onclick="first">go</button>`+region("tx_a", "")+stateScript(`{}`))
	srv.Respond("first", region("tx_a", "")+stateScript(`{}`))
	srv.Respond("second", region("tx_a", "")+stateScript(`{}`))

	e := srv.Load(t, "/")
	n, _ := e.Document().Query("#go")
	e.Document().SetAttr(n, "tx-onclick", "second?k=v")
	e.Click("#go")
	txtest.Settle(t, e)

	ex := srv.Exchanges()
	if len(ex) != 1 || ex[0].Handler != "second" || ex[0].Form.Get("k") != "v" {
		t.Errorf("exchanges = %+v, want second?k=v", ex)
	}
}

func TestClickUnknownSelector(t *testing.T) {
	srv := txtest.NewServer(t)
	srv.Page("/", `<p>x</p>`)
	e := srv.Load(t, "/")
	if err := e.Click("#missing"); err == nil {
		t.Error("Click(#missing) should fail")
	}
}

func TestExchangeTimeout(t *testing.T) {
	srv := txtest.NewServer(t)
	srv.Page("/", `<button id="go" tx-swap="tx_a" tx-onclick="slow">go</button>`+region("tx_a", "0")+stateScript(`{}`))
	release := make(chan struct{})
	var once sync.Once
	t.Cleanup(func() { once.Do(func() { close(release) }) })
	srv.Handle("slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	e := srv.Load(t, "/", engine.WithExchangeTimeout(20*time.Millisecond))
	e.Click("#go")
	txtest.Settle(t, e)
	txtest.ExpectContains(t, e, region("tx_a", "0"))
}

func TestSnapshotRestore(t *testing.T) {
	srv := txtest.NewServer(t)
	srv.Page("/", `<input id="item" tx-swap="tx_a" tx-value="item">`+
		`<button id="go" tx-swap="tx_a" tx-onclick="h">go</button>`+region("tx_a", "")+stateScript(`{}`))
	srv.Respond("h", region("tx_a", "done")+stateScript(`{}`))

	e := srv.Load(t, "/")
	e.Input("#item", "milk")

	snap, err := e.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.URL != srv.URL+"/" {
		t.Errorf("URL = %q, want %q", snap.URL, srv.URL+"/")
	}

	r, err := engine.Restore(snap, engine.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	defer r.Close()
	txtest.ExpectField(t, r, "tx_a", "item", "milk")

	r.Click("#go")
	txtest.Settle(t, r)
	txtest.ExpectContains(t, r, "done")
	if got := srv.Exchanges()[0].Form.Get("tx_a"); got != `{"item":"milk"}` {
		t.Errorf("restored state sent = %q", got)
	}
}

func TestNewWithoutServer(t *testing.T) {
	doc, err := dom.ParseString(`<html><body><button id="b" tx-swap="tx_a" tx-onclick="h">b</button>` +
		region("tx_a", "") + `</body></html>`)
	if err != nil {
		t.Fatal(err)
	}

	tr := &fakeTransport{body: region("tx_a", "ok") + stateScript(`{"tx_a":{"k":"v"}}`)}
	e, err := engine.New(doc, engine.WithTransport(tr))
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	e.Click("#b")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	txtest.ExpectContains(t, e, region("tx_a", "ok"))
	txtest.ExpectField(t, e, "tx_a", "k", "v")
	if tr.calls.Load() != 1 {
		t.Errorf("transport calls = %d, want 1", tr.calls.Load())
	}
}

type fakeTransport struct {
	body  string
	calls atomic.Int32
}

func (f *fakeTransport) RoundTrip(ctx context.Context, call *exchange.Call, form url.Values) (string, error) {
	f.calls.Add(1)
	return f.body, nil
}
