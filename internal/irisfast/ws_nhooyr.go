package irisfast

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

var errWSNotConnected = errors.New("ws not connected")

type MessageCallback func(message *Message)

type StateCallback func(state WebSocketState)

// WebSocket keeps a reconnecting Iris event stream and doubles as a reply channel.
type WebSocket struct {
	wsURL string

	conn   *websocket.Conn
	state  WebSocketState
	stateM sync.RWMutex
	writeM sync.Mutex // wsjson.Write is not safe for concurrent use

	msgCbs   []MessageCallback
	stateCbs []StateCallback
	cbM      sync.RWMutex

	maxReconnectAttempts int
	reconnectDelay       time.Duration
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc

	headerProvider HeaderProvider
	logger         *zap.Logger
}

func NewWebSocket(wsURL string, maxReconnectAttempts int, reconnectDelay time.Duration) *WebSocket {
	return &WebSocket{
		wsURL:                wsURL,
		state:                WSStateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		reconnectDelay:       reconnectDelay,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
		logger:               zap.NewNop(),
	}
}

func (ws *WebSocket) SetLogger(l *zap.Logger) {
	if l != nil {
		ws.logger = l
	}
}

// SetHeaderProvider allows injecting headers into the WS handshake.
func (ws *WebSocket) SetHeaderProvider(h HeaderProvider) {
	ws.headerProvider = h
}

func (ws *WebSocket) State() WebSocketState {
	ws.stateM.RLock()
	defer ws.stateM.RUnlock()
	return ws.state
}

func (ws *WebSocket) currentConn() *websocket.Conn {
	ws.stateM.RLock()
	defer ws.stateM.RUnlock()
	return ws.conn
}

func (ws *WebSocket) Connect(ctx context.Context) error {
	ws.stateM.Lock()
	if ws.state == WSStateConnected || ws.state == WSStateConnecting {
		ws.stateM.Unlock()
		return nil
	}
	ws.rootCtx, ws.rootCancel = context.WithCancel(context.Background())
	ws.stateM.Unlock()
	ws.setState(WSStateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := ws.dial(dialCtx)
	if err != nil {
		ws.setState(WSStateFailed)
		ws.scheduleReconnect()
		return err
	}
	ws.attach(conn)
	return nil
}

func (ws *WebSocket) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, ws.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      ws.buildHeaders(),
	})
	if err != nil {
		return nil, err
	}
	// board images are large base64 frames
	conn.SetReadLimit(8 << 20)
	return conn, nil
}

func (ws *WebSocket) attach(conn *websocket.Conn) {
	ws.stateM.Lock()
	ws.conn = conn
	ws.stateM.Unlock()
	ws.setState(WSStateConnected)
	ws.logger.Info("iris_ws_connected", zap.String("url", ws.wsURL))

	ws.wg.Add(2)
	go ws.listen(conn)
	go ws.pingLoop(conn)
}

func (ws *WebSocket) listen(conn *websocket.Conn) {
	defer ws.wg.Done()
	for {
		var msg Message
		if err := wsjson.Read(ws.rootCtx, conn, &msg); err != nil {
			if ws.isStopping() {
				return
			}
			ws.logger.Warn("iris_ws_read_error", zap.Error(err))
			ws.dropConn(conn, "reconnect")
			return
		}

		ws.cbM.RLock()
		callbacks := append([]MessageCallback(nil), ws.msgCbs...)
		ws.cbM.RUnlock()
		for _, cb := range callbacks {
			cb(&msg)
		}
	}
}

func (ws *WebSocket) pingLoop(conn *websocket.Conn) {
	defer ws.wg.Done()
	t := time.NewTicker(ws.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ws.stopCh:
			return
		case <-ws.rootCtx.Done():
			return
		case <-t.C:
			if ws.currentConn() != conn {
				return
			}
			ctx, cancel := context.WithTimeout(ws.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				if !ws.isStopping() {
					ws.dropConn(conn, "ping failure")
				}
				return
			}
		}
	}
}

// dropConn closes conn if it is still current and starts reconnecting.
func (ws *WebSocket) dropConn(conn *websocket.Conn, reason string) {
	ws.stateM.Lock()
	if ws.conn != conn {
		ws.stateM.Unlock()
		return
	}
	ws.conn = nil
	ws.stateM.Unlock()
	_ = conn.Close(websocket.StatusGoingAway, reason)
	ws.setState(WSStateDisconnected)
	ws.scheduleReconnect()
}

func (ws *WebSocket) scheduleReconnect() {
	if ws.maxReconnectAttempts <= 0 {
		return
	}
	ws.setState(WSStateReconnecting)

	go func() {
		for attempt := 1; attempt <= ws.maxReconnectAttempts; attempt++ {
			select {
			case <-ws.stopCh:
				return
			case <-time.After(ws.reconnectDelay + backoffDuration(attempt)):
			}
			dialCtx, cancel := context.WithTimeout(ws.rootCtx, 10*time.Second)
			conn, err := ws.dial(dialCtx)
			cancel()
			if err != nil {
				ws.logger.Warn("iris_ws_reconnect_error", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			ws.attach(conn)
			return
		}
		ws.setState(WSStateFailed)
	}()
}

// WriteJSON sends one frame on the live connection.
func (ws *WebSocket) WriteJSON(ctx context.Context, v any) error {
	conn := ws.currentConn()
	if conn == nil || ws.State() != WSStateConnected {
		return errWSNotConnected
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	ws.writeM.Lock()
	defer ws.writeM.Unlock()
	return wsjson.Write(ctx, conn, v)
}

// OnMessage registers cb for every decoded event, in registration order.
// Callbacks run on the read loop and must not block.
func (ws *WebSocket) OnMessage(cb MessageCallback) {
	if cb == nil {
		return
	}
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	ws.msgCbs = append(ws.msgCbs, cb)
}

func (ws *WebSocket) OnStateChange(cb StateCallback) {
	if cb == nil {
		return
	}
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	ws.stateCbs = append(ws.stateCbs, cb)
}

func (ws *WebSocket) setState(state WebSocketState) {
	ws.stateM.Lock()
	ws.state = state
	ws.stateM.Unlock()

	ws.cbM.RLock()
	callbacks := append([]StateCallback(nil), ws.stateCbs...)
	ws.cbM.RUnlock()
	for _, cb := range callbacks {
		cb(state)
	}
}

func (ws *WebSocket) Close(ctx context.Context) error {
	ws.stopOnce.Do(func() { close(ws.stopCh) })

	ws.stateM.Lock()
	conn := ws.conn
	ws.conn = nil
	cancelRoot := ws.rootCancel
	ws.stateM.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
	if cancelRoot != nil {
		cancelRoot()
	}

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		ws.setState(WSStateDisconnected)
		return nil
	}
}

func (ws *WebSocket) isStopping() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}

func (ws *WebSocket) buildHeaders() http.Header {
	hdr := http.Header{}
	if ws.headerProvider == nil {
		return hdr
	}
	for k, v := range ws.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
