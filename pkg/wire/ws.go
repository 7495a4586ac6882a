package wire

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/tx/pkg/exchange"
)

// ServeWS returns a handler that upgrades to a WebSocket and answers each
// exchange frame by running h as if the frame were a form POST.
func ServeWS(h http.Handler, upgrader *websocket.Upgrader, logger *slog.Logger) http.Handler {
	if upgrader == nil {
		upgrader = &websocket.Upgrader{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		// Frames are routed from scratch: the upgrade request's context
		// carries the router state of the websocket route itself.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		for {
			var req exchange.WSRequest
			if err := conn.ReadJSON(&req); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Debug("websocket read failed", "error", err)
				}
				return
			}

			reply := exchange.WSReply{ID: req.ID}
			hr, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Path, strings.NewReader(req.Form))
			if err != nil {
				reply.Error = err.Error()
			} else {
				hr.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				hr.RemoteAddr = r.RemoteAddr
				rw := newResponseBuffer()
				h.ServeHTTP(rw, hr)
				if rw.status == 0 {
					rw.status = http.StatusOK
				}
				reply.Status = rw.status
				reply.Body = rw.body.String()
			}

			if err := conn.WriteJSON(reply); err != nil {
				logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	})
}

// responseBuffer captures a handler's response for one frame.
type responseBuffer struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{header: make(http.Header)}
}

func (b *responseBuffer) Header() http.Header {
	return b.header
}

func (b *responseBuffer) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *responseBuffer) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}
