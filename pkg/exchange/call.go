// Package exchange performs one request/response cycle: it builds the form
// payload for a triggered handler, sends it through a Transport and parses
// the returned HTML into a fragment plus an embedded state update.
package exchange

import (
	"net/url"
	"sort"
	"strings"
)

const (
	// DefaultPrefix is the route prefix handler identifiers are appended to.
	DefaultPrefix = "/tx/"

	// SwapParam is the form key carrying the target region name.
	SwapParam = "tx-swap"

	// StateID is the id of the element holding embedded state.
	StateID = "tx-state"
)

// Call is everything an exchange task captured when its trigger fired.
type Call struct {
	// ID identifies the exchange in logs and traces.
	ID string

	// Event is the DOM event that fired the trigger.
	Event string

	// Handler is the server handler identifier.
	Handler string

	// Params are the handler-declared query parameters.
	Params url.Values

	// Swap is the target region.
	Swap string
}

// ParseTrigger splits a tx-on attribute value of the form
// "handler?query" into its handler and parameters. Malformed query pairs are
// skipped rather than failing the trigger.
func ParseTrigger(value string) (handler string, params url.Values) {
	handler, query, _ := strings.Cut(value, "?")
	params, _ = url.ParseQuery(query)
	if params == nil {
		params = url.Values{}
	}
	return handler, params
}

// StateSource supplies the JSON encoding of every sub-state under a prefix.
type StateSource interface {
	Slice(prefix string) (map[string]string, error)
}

// BuildForm assembles the request body: the call's parameters, the tx-swap
// parameter and one JSON entry per state key prefixed by the target region.
func BuildForm(call *Call, src StateSource) (url.Values, error) {
	form := url.Values{}
	for k, vs := range call.Params {
		for _, v := range vs {
			form.Add(k, v)
		}
	}
	form.Add(SwapParam, call.Swap)

	if src == nil {
		return form, nil
	}
	slice, err := src.Slice(call.Swap)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(slice))
	for k := range slice {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		form.Add(k, slice[k])
	}
	return form, nil
}
