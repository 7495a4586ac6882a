// Package engine runs tx pages headlessly.
//
// An Engine owns a live document, the client state store and the exchange
// queue. It binds elements carrying tx-value and tx-on* attributes, turns
// their events into exchanges with the server, and patches the returned
// HTML back into the document.
//
// # Binding
//
// Elements are bound once at startup and again whenever the document gains
// new nodes, so content inserted by an exchange becomes interactive without
// further work:
//
//	<input tx-swap="tx_todo" tx-value="item">
//	<button tx-swap="tx_todo" tx-onclick="tx_h_todo_add">add</button>
//
// Typing into the input writes state["tx_todo"]["item"]; clicking the button
// sends every state key starting with "tx_todo" to /tx/tx_h_todo_add and
// replaces the region between <!--tx:tx_todo--> and <!--tx:tx_todo_e-->.
//
// # Ordering
//
// Exchanges run one at a time in the order their triggers fired. Each one
// completes fully, request, state merge, patch and binding of inserted
// nodes, before the next starts. A failed exchange is logged and skipped.
//
// # Usage
//
//	e, err := engine.Load(ctx, "http://localhost:8080/")
//	if err != nil {
//	    return err
//	}
//	defer e.Close()
//
//	e.Input("#item", "milk")
//	e.Click("#add")
//	e.Wait(ctx)
//	fmt.Println(e.Document().String())
package engine
