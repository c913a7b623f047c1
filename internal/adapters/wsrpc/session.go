// Package wsrpc implements the persistent WebSocket session to a Blockbook
// node: connection lifecycle, request/response correlation over one
// multiplexed socket, the subscription registry, and a periodic liveness
// probe.
package wsrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"blockbookclient/internal/core/domain"
	"blockbookclient/internal/core/domain/client"
	"blockbookclient/internal/logger"
)

// Defaults for the session timers.
const (
	DefaultRequestTimeout = 5 * time.Second
	DefaultPingInterval   = 25 * time.Second
)

// Options tunes a Session. Zero values fall back to the defaults.
type Options struct {
	RequestTimeout time.Duration
	PingInterval   time.Duration
	Dialer         Dialer
	Logger         logger.AppLogger
}

// wireRequest is the client-to-server frame shape.
type wireRequest struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// wireReply is the server-to-client frame shape.
type wireReply struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// wireError is the error envelope a reply's data may carry.
type wireError struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// outcome is the resolution of one pending request.
type outcome struct {
	data json.RawMessage
	err  error
}

// subscription is one registered callback plus the method that created it.
type subscription struct {
	method string
	fn     client.MessageHandler
}

// Session owns exactly one live socket to one pooled node. The pending
// request table, the subscription table, and the socket handle are owned
// exclusively by the session; the readLoop goroutine is the single
// dispatcher of inbound frames.
type Session struct {
	pool           *domain.NodePool
	ids            *domain.Counter
	dial           Dialer
	logger         logger.AppLogger
	requestTimeout time.Duration
	pingInterval   time.Duration

	mu        sync.Mutex
	conn      Conn
	connected bool
	closed    chan struct{}
	pending   map[string]chan outcome
	subs      map[string]subscription

	// Remembered identifiers of the well-known subscriptions, reused on
	// resubscribe and cleared on every Connect.
	blockSubID string
	txSubID    string
	addrSubID  string
}

// Compile-time check to ensure Session implements client.SocketSession
var _ client.SocketSession = (*Session)(nil)

// NewSession creates a disconnected session over the given node pool. The
// pool's counter also mints request and subscription identifiers.
func NewSession(pool *domain.NodePool, opts Options) *Session {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = DefaultPingInterval
	}
	if opts.Dialer == nil {
		opts.Dialer = DefaultDialer
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	return &Session{
		pool:           pool,
		ids:            pool.Counter(),
		dial:           opts.Dialer,
		logger:         opts.Logger,
		requestTimeout: opts.RequestTimeout,
		pingInterval:   opts.PingInterval,
		pending:        make(map[string]chan outcome),
		subs:           make(map[string]subscription),
	}
}

// IsConnected reports whether the session holds a live socket.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Connect opens a socket to the next pooled node. It is a no-op when
// already connected. Both correlation tables and the remembered
// subscription identifiers are reset; subscriptions never survive a
// reconnect and callers must resubscribe after every successful Connect.
//
// Connect must not be called concurrently with itself: only the
// already-connected fast path guards reentry, so a racing second Connect
// before the first resolves would open a second socket.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return nil
	}
	s.pending = make(map[string]chan outcome)
	s.subs = make(map[string]subscription)
	s.blockSubID, s.txSubID, s.addrSubID = "", "", ""
	s.mu.Unlock()

	node := s.pool.Next()
	socketURL := deriveSocketURL(node)

	conn, err := s.dial(ctx, socketURL)
	if err != nil {
		return &domain.TransportError{Operation: "connect " + socketURL, Err: err}
	}

	closed := make(chan struct{})
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.closed = closed
	s.mu.Unlock()

	s.logger.Info("Websocket session connected", "node", node.String())
	go s.readLoop(conn, closed)
	go s.pingLoop(closed)
	return nil
}

// Disconnect closes the socket and waits until the readLoop has observed
// the closure. It is a no-op when not connected. Outstanding pending
// requests are not rejected here; each rejects on its own timeout.
func (s *Session) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil
	}
	conn := s.conn
	closed := s.closed
	s.connected = false
	s.mu.Unlock()

	closeErr := conn.Close()

	select {
	case <-closed:
	case <-ctx.Done():
		return ctx.Err()
	}

	if closeErr != nil {
		return &domain.TransportError{Operation: "disconnect", Err: closeErr}
	}
	return nil
}

// Request sends {id, method, params} through the socket and waits for the
// correlated reply. An empty id is minted from the shared counter. Exactly
// one of reply, remote error, or timeout resolves the call; whichever fires
// first removes the pending entry, so the losing paths become no-ops and a
// late reply is dropped as unrecognized.
//
// Reusing an explicit id while a request with the same id is in flight is
// undefined behavior: the last registration wins and the earlier waiter
// stays orphaned until its own timeout fires.
func (s *Session) Request(ctx context.Context, id, method string, params any) (json.RawMessage, error) {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil, &domain.PreconditionError{Operation: method}
	}
	conn := s.conn
	if id == "" {
		id = s.ids.NextID()
	}
	ch := make(chan outcome, 1)
	s.pending[id] = ch
	s.mu.Unlock()

	frame, err := json.Marshal(wireRequest{ID: id, Method: method, Params: params})
	if err != nil {
		s.forget(id)
		return nil, fmt.Errorf("failed to marshal request %q: %w", method, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		s.forget(id)
		return nil, &domain.TransportError{Operation: method, Err: err}
	}

	timer := time.NewTimer(s.requestTimeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		if out.err != nil {
			return nil, out.err
		}
		return out.data, nil
	case <-timer.C:
		s.forget(id)
		return nil, &domain.TimeoutError{Method: method, Timeout: s.requestTimeout}
	case <-ctx.Done():
		s.forget(id)
		return nil, ctx.Err()
	}
}

// forget removes a pending entry after the waiting side gave up.
func (s *Session) forget(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// readLoop is the single consumer of inbound frames for one socket. It
// finishes the teardown on read error and signals the per-connection done
// channel, which also stops the ping loop.
func (s *Session) readLoop(conn Conn, closed chan struct{}) {
	defer close(closed)
	for {
		messageType, frame, err := conn.ReadMessage()
		if err != nil {
			s.teardown(conn, err)
			return
		}
		if messageType != websocket.TextMessage {
			s.logger.Warn("Dropping non-text frame", "type", messageType)
			continue
		}
		s.dispatch(frame)
	}
}

// dispatch routes one inbound frame. Malformed frames are logged and
// dropped; they never resolve a pending call. A pending entry always wins
// over a subscription sharing the same identifier.
func (s *Session) dispatch(frame []byte) {
	var reply wireReply
	if err := json.Unmarshal(frame, &reply); err != nil {
		s.logger.Warn("Dropping unparseable frame", "error", err)
		return
	}
	if reply.ID == "" {
		s.logger.Warn("Dropping frame without correlation id")
		return
	}

	var remoteErr error
	var envelope wireError
	if len(reply.Data) > 0 && json.Unmarshal(reply.Data, &envelope) == nil && envelope.Error != nil {
		message := envelope.Error.Message
		if message == "" {
			message = string(frame)
		}
		remoteErr = &domain.RemoteError{Message: message}
	}

	s.mu.Lock()
	if ch, ok := s.pending[reply.ID]; ok {
		delete(s.pending, reply.ID)
		s.mu.Unlock()
		ch <- outcome{data: reply.Data, err: remoteErr}
		return
	}
	sub, ok := s.subs[reply.ID]
	s.mu.Unlock()

	if ok {
		if remoteErr != nil {
			// Subscriptions have no caller to reject.
			s.logger.Warn("Server error on subscription",
				"id", reply.ID, "method", sub.method, "error", remoteErr)
		}
		sub.fn(reply.Data)
		return
	}

	s.logger.Debug("Dropping frame with unrecognized id", "id", reply.ID)
}

// teardown flips the session to disconnected after a read failure or a
// remote close. Pending requests stay registered until their own timers
// expire.
func (s *Session) teardown(conn Conn, cause error) {
	s.mu.Lock()
	if s.conn == conn {
		s.connected = false
		s.conn = nil
	}
	s.mu.Unlock()

	_ = conn.Close()

	if cause != nil && !websocket.IsCloseError(cause, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		s.logger.Warn("Websocket session closed", "cause", cause)
	} else {
		s.logger.Info("Websocket session closed")
	}
}

// pingLoop probes liveness through the normal correlation path. A failed
// probe is the only automatic disconnect trigger: the socket is forced
// closed and the readLoop finishes the teardown.
func (s *Session) pingLoop(closed chan struct{}) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			if _, err := s.Request(context.Background(), "", "ping", nil); err != nil {
				s.logger.Warn("Liveness probe failed, terminating socket", "error", err)
				s.forceClose()
				return
			}
		}
	}
}

// forceClose terminates the socket out from under the readLoop.
func (s *Session) forceClose() {
	s.mu.Lock()
	conn := s.conn
	s.connected = false
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// subscribe registers fn under id (minted when empty), then issues the
// subscribe request with that same identifier and awaits the
// acknowledgement. The ack travels through the pending table, which wins
// the dispatch tie-break, so it never reaches the callback.
func (s *Session) subscribe(ctx context.Context, id, method string, params any, fn client.MessageHandler) (string, error) {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return "", &domain.PreconditionError{Operation: method}
	}
	if id == "" {
		id = s.ids.NextID()
	}
	s.subs[id] = subscription{method: method, fn: fn}
	s.mu.Unlock()

	if _, err := s.Request(ctx, id, method, params); err != nil {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		return "", err
	}
	return id, nil
}

// unsubscribe removes the local entry first (removal does not depend on the
// server), then issues the unsubscribe request and awaits its ack.
func (s *Session) unsubscribe(ctx context.Context, id, method string, params any) error {
	if id == "" {
		return nil
	}
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()

	_, err := s.Request(ctx, id, method, params)
	return err
}

// SubscribeNewBlock registers fn for newBlock pushes.
func (s *Session) SubscribeNewBlock(ctx context.Context, fn client.MessageHandler) error {
	s.mu.Lock()
	id := s.blockSubID
	s.mu.Unlock()

	newID, err := s.subscribe(ctx, id, "subscribeNewBlock", nil, fn)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.blockSubID = newID
	s.mu.Unlock()
	return nil
}

// UnsubscribeNewBlock cancels the newBlock subscription.
func (s *Session) UnsubscribeNewBlock(ctx context.Context) error {
	s.mu.Lock()
	id := s.blockSubID
	s.blockSubID = ""
	s.mu.Unlock()

	return s.unsubscribe(ctx, id, "unsubscribeNewBlock", nil)
}

// SubscribeNewTransaction registers fn for newTransaction pushes.
func (s *Session) SubscribeNewTransaction(ctx context.Context, fn client.MessageHandler) error {
	s.mu.Lock()
	id := s.txSubID
	s.mu.Unlock()

	newID, err := s.subscribe(ctx, id, "subscribeNewTransaction", nil, fn)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.txSubID = newID
	s.mu.Unlock()
	return nil
}

// UnsubscribeNewTransaction cancels the newTransaction subscription.
func (s *Session) UnsubscribeNewTransaction(ctx context.Context) error {
	s.mu.Lock()
	id := s.txSubID
	s.txSubID = ""
	s.mu.Unlock()

	return s.unsubscribe(ctx, id, "unsubscribeNewTransaction", nil)
}

// SubscribeAddresses registers fn for pushes about the given addresses,
// replacing any previously watched set under the remembered identifier.
func (s *Session) SubscribeAddresses(ctx context.Context, addresses []string, fn client.MessageHandler) error {
	s.mu.Lock()
	id := s.addrSubID
	s.mu.Unlock()

	newID, err := s.subscribe(ctx, id, "subscribeAddresses", map[string]any{"addresses": addresses}, fn)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.addrSubID = newID
	s.mu.Unlock()
	return nil
}

// UnsubscribeAddresses cancels the address subscription.
func (s *Session) UnsubscribeAddresses(ctx context.Context) error {
	s.mu.Lock()
	id := s.addrSubID
	s.addrSubID = ""
	s.mu.Unlock()

	return s.unsubscribe(ctx, id, "unsubscribeAddresses", nil)
}
