// Package txtest provides helpers for testing tx pages and handlers.
//
// A Server is an httptest server with a chi router that records every
// exchange it receives. Pages and handlers are registered with plain
// strings or functions, and engines are loaded against it with cleanup
// registered on the test:
//
//	func TestAdd(t *testing.T) {
//	    srv := txtest.NewServer(t)
//	    srv.Page("/", `<!--tx:tx_a--><button id="b" tx-swap="tx_a" tx-onclick="h">b</button><!--tx:tx_a_e-->`)
//	    srv.Respond("h", `<!--tx:tx_a-->done<!--tx:tx_a_e--><script id="tx-state">{}</script>`)
//
//	    e := srv.Load(t, "/")
//	    e.Click("#b")
//	    txtest.Settle(t, e)
//	    txtest.ExpectContains(t, e, "done")
//	}
package txtest
