package wsrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"blockbookclient/internal/core/domain"
)

// fakeConn feeds scripted frames into the session without a network. An
// optional respond hook answers outbound requests like a server would.
type fakeConn struct {
	inbound chan fakeFrame
	done    chan struct{}
	once    sync.Once

	mu      sync.Mutex
	writes  []wireRequest
	respond func(req wireRequest) []byte

	closeCount atomic.Int32
}

type fakeFrame struct {
	messageType int
	data        []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan fakeFrame, 16),
		done:    make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.inbound:
		return f.messageType, f.data, nil
	case <-c.done:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	select {
	case <-c.done:
		return errors.New("write on closed connection")
	default:
	}

	var req wireRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}

	c.mu.Lock()
	c.writes = append(c.writes, req)
	respond := c.respond
	c.mu.Unlock()

	if respond != nil {
		if reply := respond(req); reply != nil {
			c.push(reply)
		}
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.closeCount.Add(1)
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) setRespond(fn func(req wireRequest) []byte) {
	c.mu.Lock()
	c.respond = fn
	c.mu.Unlock()
}

func (c *fakeConn) push(data []byte) {
	c.inbound <- fakeFrame{messageType: websocket.TextMessage, data: data}
}

func (c *fakeConn) pushRaw(messageType int, data []byte) {
	c.inbound <- fakeFrame{messageType: messageType, data: data}
}

func (c *fakeConn) sentMethods() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	methods := make([]string, 0, len(c.writes))
	for _, w := range c.writes {
		methods = append(methods, w.Method)
	}
	return methods
}

// ackAll acknowledges every outbound request with an empty object.
func ackAll(req wireRequest) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"data":{"subscribed":true}}`, req.ID))
}

func newTestSession(t *testing.T, conn *fakeConn, opts Options) *Session {
	t.Helper()
	pool, err := domain.NewNodePool([]string{"https://node1.example.com"}, &domain.Counter{})
	if err != nil {
		t.Fatalf("NewNodePool() unexpected error: %v", err)
	}
	opts.Dialer = func(_ context.Context, _ string) (Conn, error) {
		return conn, nil
	}
	return NewSession(pool, opts)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal(msg)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSession_RequestNotConnected(t *testing.T) {
	session := newTestSession(t, newFakeConn(), Options{})

	_, err := session.Request(context.Background(), "", "getInfo", nil)
	var preErr *domain.PreconditionError
	if !errors.As(err, &preErr) {
		t.Fatalf("Request() error = %v, want *domain.PreconditionError", err)
	}

	// Failing the precondition must not have sent any frame.
	session.mu.Lock()
	pendingLen := len(session.pending)
	session.mu.Unlock()
	if pendingLen != 0 {
		t.Errorf("pending table size = %d, want 0", pendingLen)
	}
}

func TestSession_ConnectIsIdempotent(t *testing.T) {
	conn := newFakeConn()
	session := newTestSession(t, conn, Options{})

	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() unexpected error: %v", err)
	}
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect() unexpected error: %v", err)
	}
	if !session.IsConnected() {
		t.Fatal("IsConnected() = false after Connect")
	}
}

func TestSession_RequestResolvedByReply(t *testing.T) {
	conn := newFakeConn()
	conn.respond = func(req wireRequest) []byte {
		if req.Method == "getBlockHash" {
			return []byte(fmt.Sprintf(`{"id":%q,"data":{"hash":"00ab"}}`, req.ID))
		}
		return nil
	}
	session := newTestSession(t, conn, Options{})
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() unexpected error: %v", err)
	}

	data, err := session.Request(context.Background(), "", "getBlockHash", map[string]any{"height": 100})
	if err != nil {
		t.Fatalf("Request() unexpected error: %v", err)
	}
	if string(data) != `{"hash":"00ab"}` {
		t.Errorf("Request() data = %s", data)
	}
}

func TestSession_RequestTimeout(t *testing.T) {
	conn := newFakeConn()
	session := newTestSession(t, conn, Options{RequestTimeout: 30 * time.Millisecond})
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() unexpected error: %v", err)
	}

	_, err := session.Request(context.Background(), "7", "getTransaction", nil)
	var timeoutErr *domain.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("Request() error = %v, want *domain.TimeoutError", err)
	}

	session.mu.Lock()
	_, stillPending := session.pending["7"]
	session.mu.Unlock()
	if stillPending {
		t.Error("pending entry survived its timeout")
	}

	// A late reply is unrecognized by now and must be dropped, not resolved.
	conn.push([]byte(`{"id":"7","data":{"late":true}}`))
	time.Sleep(20 * time.Millisecond)
	if !session.IsConnected() {
		t.Error("late reply tore down the session")
	}
}

func TestSession_RemoteErrorRejectsPendingCall(t *testing.T) {
	conn := newFakeConn()
	conn.respond = func(req wireRequest) []byte {
		return []byte(fmt.Sprintf(`{"id":%q,"data":{"error":{"message":"tx not found"}}}`, req.ID))
	}
	session := newTestSession(t, conn, Options{})
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() unexpected error: %v", err)
	}

	_, err := session.Request(context.Background(), "", "getTransaction", nil)
	var remoteErr *domain.RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("Request() error = %v, want *domain.RemoteError", err)
	}
	if remoteErr.Message != "tx not found" {
		t.Errorf("RemoteError.Message = %q", remoteErr.Message)
	}
}

func TestSession_PendingBeatsSubscriptionOnSharedID(t *testing.T) {
	conn := newFakeConn()
	conn.respond = ackAll
	session := newTestSession(t, conn, Options{})
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() unexpected error: %v", err)
	}

	var callbackCount atomic.Int32
	if _, err := session.subscribe(context.Background(), "5", "subscribeAddresses",
		map[string]any{"addresses": []string{"abc"}},
		func(json.RawMessage) { callbackCount.Add(1) },
	); err != nil {
		t.Fatalf("subscribe() unexpected error: %v", err)
	}

	// Pushes carrying the subscription id reach the callback.
	conn.push([]byte(`{"id":"5","data":{"address":"abc","tx":{"txid":"t1"}}}`))
	conn.push([]byte(`{"id":"5","data":{"address":"abc","tx":{"txid":"t2"}}}`))
	waitFor(t, func() bool { return callbackCount.Load() == 2 }, "subscription callback not invoked twice")

	// A pending request under the same identifier wins the dispatch
	// tie-break: its reply resolves the call and never reaches the callback.
	conn.setRespond(nil)
	replyErr := make(chan error, 1)
	go func() {
		_, err := session.Request(context.Background(), "5", "getInfo", nil)
		replyErr <- err
	}()
	waitFor(t, func() bool {
		session.mu.Lock()
		defer session.mu.Unlock()
		_, ok := session.pending["5"]
		return ok
	}, "pending entry for shared id never registered")

	conn.push([]byte(`{"id":"5","data":{"name":"Bitcoin"}}`))
	if err := <-replyErr; err != nil {
		t.Fatalf("Request() unexpected error: %v", err)
	}
	if got := callbackCount.Load(); got != 2 {
		t.Errorf("callback count after shared-id reply = %d, want 2", got)
	}
}

func TestSession_MalformedFramesDropped(t *testing.T) {
	conn := newFakeConn()
	conn.respond = ackAll
	session := newTestSession(t, conn, Options{})
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() unexpected error: %v", err)
	}

	conn.pushRaw(websocket.BinaryMessage, []byte{0x01, 0x02})
	conn.push([]byte(`{not json`))
	conn.push([]byte(`{"data":{"no":"id"}}`))
	conn.push([]byte(`{"id":"999","data":{"unknown":"id"}}`))

	// The session survives all of it and still serves requests.
	if _, err := session.Request(context.Background(), "", "ping", nil); err != nil {
		t.Fatalf("Request() after malformed frames: %v", err)
	}
	if !session.IsConnected() {
		t.Error("malformed frames tore down the session")
	}
}

func TestSession_ConnectClearsSubscriptions(t *testing.T) {
	conn := newFakeConn()
	conn.respond = ackAll
	session := newTestSession(t, conn, Options{})
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() unexpected error: %v", err)
	}

	var callbackCount atomic.Int32
	if err := session.SubscribeNewBlock(context.Background(), func(json.RawMessage) {
		callbackCount.Add(1)
	}); err != nil {
		t.Fatalf("SubscribeNewBlock() unexpected error: %v", err)
	}

	session.mu.Lock()
	oldID := session.blockSubID
	session.mu.Unlock()
	if oldID == "" {
		t.Fatal("blockSubID not remembered after subscribe")
	}

	if err := session.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect() unexpected error: %v", err)
	}

	// Reconnect lands on a fresh socket with empty tables.
	conn2 := newFakeConn()
	conn2.respond = ackAll
	session.dial = func(_ context.Context, _ string) (Conn, error) { return conn2, nil }
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect unexpected error: %v", err)
	}

	session.mu.Lock()
	subsLen := len(session.subs)
	newBlockID := session.blockSubID
	session.mu.Unlock()
	if subsLen != 0 {
		t.Errorf("subscription table size after reconnect = %d, want 0", subsLen)
	}
	if newBlockID != "" {
		t.Errorf("blockSubID after reconnect = %q, want empty", newBlockID)
	}

	// A stale frame under the old id must not fire the old callback.
	conn2.push([]byte(fmt.Sprintf(`{"id":%q,"data":{"height":1}}`, oldID)))
	time.Sleep(20 * time.Millisecond)
	if got := callbackCount.Load(); got != 0 {
		t.Errorf("stale callback fired %d times after reconnect", got)
	}
}

func TestSession_DisconnectNoopWhenNotConnected(t *testing.T) {
	session := newTestSession(t, newFakeConn(), Options{})
	if err := session.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect() on disconnected session: %v", err)
	}
}

func TestSession_UnsubscribeRemovesCallback(t *testing.T) {
	conn := newFakeConn()
	conn.respond = ackAll
	session := newTestSession(t, conn, Options{})
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() unexpected error: %v", err)
	}

	var callbackCount atomic.Int32
	if err := session.SubscribeNewBlock(context.Background(), func(json.RawMessage) {
		callbackCount.Add(1)
	}); err != nil {
		t.Fatalf("SubscribeNewBlock() unexpected error: %v", err)
	}
	session.mu.Lock()
	id := session.blockSubID
	session.mu.Unlock()

	if err := session.UnsubscribeNewBlock(context.Background()); err != nil {
		t.Fatalf("UnsubscribeNewBlock() unexpected error: %v", err)
	}

	conn.push([]byte(fmt.Sprintf(`{"id":%q,"data":{"height":2}}`, id)))
	time.Sleep(20 * time.Millisecond)
	if got := callbackCount.Load(); got != 0 {
		t.Errorf("callback fired %d times after unsubscribe", got)
	}

	methods := conn.sentMethods()
	if methods[len(methods)-1] != "unsubscribeNewBlock" {
		t.Errorf("last sent method = %q, want unsubscribeNewBlock", methods[len(methods)-1])
	}
}

func TestSession_FailedPingTerminatesSocket(t *testing.T) {
	conn := newFakeConn()
	session := newTestSession(t, conn, Options{
		RequestTimeout: 20 * time.Millisecond,
		PingInterval:   20 * time.Millisecond,
	})
	if err := session.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() unexpected error: %v", err)
	}

	// Nothing answers the ping, so its timeout escalates to a forced close.
	waitFor(t, func() bool { return !session.IsConnected() }, "failed ping did not close the session")
	waitFor(t, func() bool { return conn.closeCount.Load() > 0 }, "socket never force-closed")

	methods := conn.sentMethods()
	found := false
	for _, m := range methods {
		if m == "ping" {
			found = true
		}
	}
	if !found {
		t.Error("no ping was ever sent")
	}
}
