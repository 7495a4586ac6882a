package exchange

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vango-dev/tx/pkg/dom"
	"github.com/vango-dev/tx/pkg/state"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	// ErrMissingState is returned when a response lacks the embedded state
	// element.
	ErrMissingState = errors.New("exchange: response has no tx-state element")

	// ErrInvalidState is returned when the embedded state is not a JSON object.
	ErrInvalidState = errors.New("exchange: invalid tx-state payload")
)

// Fragment is a parsed region response.
type Fragment struct {
	// Nodes are the top-level nodes of the fragment, detached and in order,
	// with the state element already removed.
	Nodes []*html.Node

	// State is the update to merge into the state store.
	State map[string]any
}

// ParseFragment parses a region response in a <body> context, extracts the
// tx-state element and decodes its JSON object.
func ParseFragment(raw string) (*Fragment, error) {
	body := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(strings.NewReader(raw), body)
	if err != nil {
		return nil, fmt.Errorf("exchange: parse fragment: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	el := dom.FindByID(body, StateID)
	if el == nil {
		return nil, ErrMissingState
	}
	update, err := state.Decode([]byte(dom.TextContent(el)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	dom.Detach(el)

	frag := &Fragment{State: update}
	for c := body.FirstChild; c != nil; {
		next := c.NextSibling
		body.RemoveChild(c)
		frag.Nodes = append(frag.Nodes, c)
		c = next
	}
	return frag, nil
}

// ParseDocument parses a whole-document response. The embedded state element
// is optional and stays in the document; when absent the returned state is
// empty.
func ParseDocument(raw string) (*html.Node, map[string]any, error) {
	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("exchange: parse document: %w", err)
	}
	seed, err := EmbeddedState(root)
	if err != nil {
		return nil, nil, err
	}
	return root, seed, nil
}

// EmbeddedState decodes the tx-state element under root. A missing element
// yields an empty state.
func EmbeddedState(root *html.Node) (map[string]any, error) {
	el := dom.FindByID(root, StateID)
	if el == nil {
		return map[string]any{}, nil
	}
	seed, err := state.Decode([]byte(dom.TextContent(el)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return seed, nil
}
