// Package wire is the server half of the tx exchange contract.
//
// Handlers receive a form carrying the target region in tx-swap plus one
// JSON-encoded entry per state key under that region. They answer with the
// region's new HTML wrapped in its marker pair, followed by a tx-state
// script holding the state update:
//
//	func add(w http.ResponseWriter, r *http.Request) {
//	    req, err := wire.ParseRequest(r)
//	    if err != nil {
//	        http.Error(w, err.Error(), http.StatusBadRequest)
//	        return
//	    }
//	    var todo Todo
//	    req.Bind("tx_todo", &todo)
//	    todo.List = append(todo.List, todo.Item)
//	    wire.WriteRegion(w, r, "tx_todo", todoView(todo), map[string]any{"tx_todo": todo})
//	}
package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"github.com/vango-dev/tx/pkg/exchange"
	"github.com/vango-dev/tx/pkg/region"
)

// Request is a decoded exchange request.
type Request struct {
	// Swap is the target region.
	Swap string

	// State holds the raw JSON of every state key sent with the request.
	State map[string]json.RawMessage

	// Params are the remaining form values, typically the handler's query
	// parameters.
	Params url.Values
}

// ParseRequest decodes an exchange request from the form body or query.
// Form keys carrying the swap prefix are treated as state when their value
// is valid JSON.
func ParseRequest(r *http.Request) (*Request, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("wire: parse form: %w", err)
	}
	req := &Request{
		Swap:   r.Form.Get(exchange.SwapParam),
		State:  make(map[string]json.RawMessage),
		Params: url.Values{},
	}
	for k, vs := range r.Form {
		if k == exchange.SwapParam || len(vs) == 0 {
			continue
		}
		if req.Swap != "" && strings.HasPrefix(k, req.Swap) && json.Valid([]byte(vs[0])) {
			req.State[k] = json.RawMessage(vs[0])
			continue
		}
		req.Params[k] = vs
	}
	return req, nil
}

// Bind decodes the state entry key into v. It reports whether the entry was
// present.
func (r *Request) Bind(key string, v any) (bool, error) {
	raw, ok := r.State[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("wire: decode %q: %w", key, err)
	}
	return true, nil
}

// Region wraps body in the marker pair of region name.
func Region(name string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<!--"+region.StartMarker(name)+"-->"); err != nil {
			return err
		}
		if body != nil {
			if err := body.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "<!--"+region.EndMarker(name)+"-->")
		return err
	})
}

// StateScript renders the tx-state element carrying update.
func StateScript(update map[string]any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if update == nil {
			update = map[string]any{}
		}
		// json.Marshal escapes '<' so the payload cannot close the script.
		data, err := json.Marshal(update)
		if err != nil {
			return fmt.Errorf("wire: encode state: %w", err)
		}
		if _, err := io.WriteString(w, `<script id="`+exchange.StateID+`" type="application/json">`); err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		_, err = io.WriteString(w, `</script>`)
		return err
	})
}

// Document renders a complete page: body followed by the initial state.
func Document(title string, body templ.Component, state map[string]any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		head := `<!DOCTYPE html><html><head><meta charset="utf-8"><title>` +
			templ.EscapeString(title) + `</title></head><body>`
		if _, err := io.WriteString(w, head); err != nil {
			return err
		}
		if body != nil {
			if err := body.Render(ctx, w); err != nil {
				return err
			}
		}
		if err := StateScript(state).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// Render writes a component as an HTML response.
func Render(w http.ResponseWriter, r *http.Request, c templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return c.Render(r.Context(), w)
}

// WriteRegion answers an exchange with region name and a state update.
func WriteRegion(w http.ResponseWriter, r *http.Request, name string, body templ.Component, update map[string]any) error {
	if err := Render(w, r, Region(name, body)); err != nil {
		return err
	}
	return StateScript(update).Render(r.Context(), w)
}

// WritePage answers with a complete document. It is the response for
// exchanges targeting the root region and for initial page loads.
func WritePage(w http.ResponseWriter, r *http.Request, title string, body templ.Component, state map[string]any) error {
	return Render(w, r, Document(title, body, state))
}
