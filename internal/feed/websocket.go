package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// FeedPath is the server endpoint that pushes queue counters.
const FeedPath = "/api/ws"

// WebSocketTransport adapts a websocket connection to Transport. Each read
// fills as much of the caller's buffer as the current websocket message
// allows; the fragment is final once that message is exhausted.
type WebSocketTransport struct {
	conn *websocket.Conn
	cur  io.Reader
}

// NewWebSocketTransport wraps an established connection.
func NewWebSocketTransport(conn *websocket.Conn) *WebSocketTransport {
	return &WebSocketTransport{conn: conn}
}

// Dial opens the counter feed of the server at serverURL.
func Dial(ctx context.Context, serverURL string, header http.Header) (*WebSocketTransport, error) {
	wsURL, err := FeedURL(serverURL)
	if err != nil {
		return nil, err
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", wsURL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	return NewWebSocketTransport(conn), nil
}

// FeedURL derives the websocket URL of the counter feed from the server's
// base URL, mapping http to ws and https to wss.
func FeedURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + FeedPath
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// ReadFragment implements Transport.
func (w *WebSocketTransport) ReadFragment(ctx context.Context, p []byte) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	// Unblock the pending read when ctx ends.
	stop := context.AfterFunc(ctx, func() {
		_ = w.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if w.cur == nil {
		_, r, err := w.conn.NextReader()
		if err != nil {
			return 0, false, w.readErr(ctx, err)
		}
		w.cur = r
	}

	n, err := io.ReadFull(w.cur, p)
	switch {
	case err == nil:
		return n, false, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		w.cur = nil
		return n, true, nil
	default:
		w.cur = nil
		return 0, false, w.readErr(ctx, err)
	}
}

func (w *WebSocketTransport) readErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("read feed: %w", err)
}

// Close sends a close frame and closes the connection.
func (w *WebSocketTransport) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return w.conn.Close()
}
