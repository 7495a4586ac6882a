package exchange

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Transport sends one exchange and returns the raw response HTML.
// Implementations are called by a single queue worker at a time.
type Transport interface {
	RoundTrip(ctx context.Context, call *Call, form url.Values) (string, error)
}

// TransportError reports that the request itself failed: the server was not
// reached or the connection broke. HTTP error statuses are not transport
// errors; their bodies are returned to the caller unchanged.
type TransportError struct {
	Handler string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("exchange %q: transport: %v", e.Handler, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPTransport posts form-encoded exchanges to <base><prefix><handler>.
type HTTPTransport struct {
	// Client is the HTTP client. Defaults to http.DefaultClient.
	Client *http.Client

	// Base is the page URL handler routes are resolved against.
	Base *url.URL

	// Prefix is the handler route prefix. Defaults to DefaultPrefix.
	Prefix string

	// Header is added to every request.
	Header http.Header

	Logger *slog.Logger
}

// NewHTTPTransport creates a transport rooted at base.
func NewHTTPTransport(base *url.URL, client *http.Client) *HTTPTransport {
	return &HTTPTransport{Client: client, Base: base}
}

// Endpoint returns the absolute URL for a handler.
func (t *HTTPTransport) Endpoint(handler string) string {
	prefix := t.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	ref := &url.URL{Path: prefix + handler}
	if t.Base == nil {
		return ref.String()
	}
	return t.Base.ResolveReference(ref).String()
}

// RoundTrip implements Transport.
func (t *HTTPTransport) RoundTrip(ctx context.Context, call *Call, form url.Values) (string, error) {
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint(call.Handler), strings.NewReader(form.Encode()))
	if err != nil {
		return "", &TransportError{Handler: call.Handler, Err: err}
	}
	for k, vs := range t.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return "", &TransportError{Handler: call.Handler, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Handler: call.Handler, Err: err}
	}
	if resp.StatusCode >= 300 && t.Logger != nil {
		t.Logger.Warn("non-success exchange response",
			"handler", call.Handler,
			"status", resp.StatusCode)
	}
	return string(body), nil
}
