package wsrpc

import (
	"context"
	"strings"

	"github.com/gorilla/websocket"

	"blockbookclient/internal/core/domain"
)

// socketPath is the fixed suffix of every Blockbook WebSocket endpoint.
const socketPath = "/websocket"

// Conn is the slice of *websocket.Conn the session depends on. Tests feed
// synthetic frames through a fake implementation.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a socket to the given URL. The call returns once the
// connection is open or has failed; there is no half-open state visible to
// the session.
type Dialer func(ctx context.Context, socketURL string) (Conn, error)

// DefaultDialer dials with gorilla's default websocket dialer.
func DefaultDialer(ctx context.Context, socketURL string) (Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, socketURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// deriveSocketURL rewrites a pooled node endpoint into its WebSocket form:
// https becomes wss, http becomes ws, a bare host defaults to the secure
// scheme, and the websocket path suffix is appended when absent.
func deriveSocketURL(node domain.Node) string {
	endpoint := node.String()
	switch {
	case strings.HasPrefix(endpoint, "https"):
		endpoint = "wss" + strings.TrimPrefix(endpoint, "https")
	case strings.HasPrefix(endpoint, "http"):
		endpoint = "ws" + strings.TrimPrefix(endpoint, "http")
	case strings.HasPrefix(endpoint, "ws"):
		// Already a socket scheme.
	default:
		endpoint = "wss://" + endpoint
	}

	if !strings.HasSuffix(endpoint, socketPath) {
		endpoint += socketPath
	}
	return endpoint
}
