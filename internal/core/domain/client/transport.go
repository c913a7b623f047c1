// Package client defines interfaces for the network transports the query
// facade dispatches to.
package client

import (
	"context"
	"encoding/json"
	"net/url"

	"blockbookclient/internal/core/domain"
)

// HTTPRequester issues one-shot REST calls against a chosen node with a
// bounded timeout. Implementations return the raw response body as JSON and
// a domain.TransportError on non-2xx status or timeout.
type HTTPRequester interface {
	// Request performs a single HTTP call. method is GET or POST; path is
	// appended to the node endpoint; query is optional; body, when non-nil,
	// is sent verbatim (Blockbook's send-transaction endpoint expects a raw
	// hex body rather than JSON).
	Request(ctx context.Context, method string, node domain.Node, path string, query url.Values, body []byte) (json.RawMessage, error)
}

// MessageHandler consumes the data payload of subscription pushes.
type MessageHandler func(data json.RawMessage)

// SocketSession is the persistent WebSocket side of the client: request
// correlation plus the subscription registry. The facade prefers it for
// every query while it is connected.
type SocketSession interface {
	// Connect opens the session; no-op when already connected. All
	// subscription state is reset, never restored.
	Connect(ctx context.Context) error

	// Disconnect closes the session; no-op when not connected.
	Disconnect(ctx context.Context) error

	// IsConnected reports whether the session holds a live socket.
	IsConnected() bool

	// Request sends {id, method, params} and waits for the correlated
	// reply. An empty id is minted from the shared counter. Fails with a
	// domain.PreconditionError when not connected.
	Request(ctx context.Context, id, method string, params any) (json.RawMessage, error)

	// SubscribeNewBlock registers fn for newBlock pushes.
	SubscribeNewBlock(ctx context.Context, fn MessageHandler) error

	// UnsubscribeNewBlock cancels the newBlock subscription.
	UnsubscribeNewBlock(ctx context.Context) error

	// SubscribeNewTransaction registers fn for newTransaction pushes.
	SubscribeNewTransaction(ctx context.Context, fn MessageHandler) error

	// UnsubscribeNewTransaction cancels the newTransaction subscription.
	UnsubscribeNewTransaction(ctx context.Context) error

	// SubscribeAddresses registers fn for pushes about the given
	// addresses, replacing any previously watched set.
	SubscribeAddresses(ctx context.Context, addresses []string, fn MessageHandler) error

	// UnsubscribeAddresses cancels the address subscription.
	UnsubscribeAddresses(ctx context.Context) error
}
