// Package dom provides the live document the tx engine runs against.
//
// A Document wraps a golang.org/x/net/html node tree and adds the pieces of a
// browser host environment the engine depends on:
//
//   - event listeners registered per element and event type
//   - synchronous event dispatch with bubbling
//   - child-list mutation observers
//   - a Mutator used to batch structural changes under one lock
//
// # Concurrency
//
// A Document is safe for concurrent use. Readers take a read lock, structural
// changes go through Update which holds the write lock for the whole batch.
// Observers and listeners are always invoked with no lock held, so they may
// call back into the Document.
//
// # Listener lifetime
//
// Listeners live as long as their element is attached to the document. When an
// Update detaches a subtree, listeners registered on any node of that subtree
// are dropped; re-inserting the node requires binding it again.
package dom
