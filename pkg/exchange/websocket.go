package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSRequest is the frame a WSTransport sends for one exchange.
type WSRequest struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	Form string `json:"form"`
}

// WSReply is the frame the server answers a WSRequest with.
type WSReply struct {
	ID     string `json:"id"`
	Status int    `json:"status"`
	Body   string `json:"body"`
	Error  string `json:"error,omitempty"`
}

// WSTransport sends exchanges over one persistent WebSocket connection.
// The connection is dialed lazily and redialed after any failure.
type WSTransport struct {
	// URL is the ws:// or wss:// endpoint.
	URL string

	// Prefix is the handler route prefix. Defaults to DefaultPrefix.
	Prefix string

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// Header is sent with the upgrade request.
	Header http.Header

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSTransport creates a transport for the given endpoint.
func NewWSTransport(endpoint string) *WSTransport {
	return &WSTransport{URL: endpoint}
}

// WSEndpoint derives the websocket URL for path from an http(s) page URL.
func WSEndpoint(page *url.URL, path string) string {
	u := *page
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = path
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// RoundTrip implements Transport.
func (t *WSTransport) RoundTrip(ctx context.Context, call *Call, form url.Values) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	conn, err := t.dial(ctx)
	if err != nil {
		return "", &TransportError{Handler: call.Handler, Err: err}
	}

	prefix := t.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
		conn.SetReadDeadline(deadline)
	} else {
		conn.SetWriteDeadline(time.Time{})
		conn.SetReadDeadline(time.Time{})
	}

	// Unblock reads when ctx is cancelled without a deadline.
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	req := WSRequest{ID: call.ID, Path: prefix + call.Handler, Form: form.Encode()}
	if err := conn.WriteJSON(req); err != nil {
		t.reset()
		return "", &TransportError{Handler: call.Handler, Err: err}
	}

	for {
		var reply WSReply
		if err := conn.ReadJSON(&reply); err != nil {
			t.reset()
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			return "", &TransportError{Handler: call.Handler, Err: err}
		}
		if reply.ID != req.ID {
			continue
		}
		if reply.Error != "" {
			return "", &TransportError{Handler: call.Handler, Err: errors.New(reply.Error)}
		}
		return reply.Body, nil
	}
}

func (t *WSTransport) dial(ctx context.Context) (*websocket.Conn, error) {
	if t.conn != nil {
		return t.conn, nil
	}
	d := t.Dialer
	if d == nil {
		d = websocket.DefaultDialer
	}
	conn, resp, err := d.DialContext(ctx, t.URL, t.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", t.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", t.URL, err)
	}
	t.conn = conn
	return conn, nil
}

func (t *WSTransport) reset() {
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
}

// Close closes the underlying connection.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.conn.Close()
	t.conn = nil
	return err
}
