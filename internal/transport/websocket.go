// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"looper/internal/control"
	applog "looper/internal/log"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	clientQueueSize = 64
	maxMessageSize  = 4096
	writeTimeout    = time.Second
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport closed")

// WebSocketTransport serves /ws. Every payload passed to Send is encoded once
// and queued to each connected client; slow clients drop messages instead of
// stalling the broadcaster. Text messages from clients are decoded as
// control.Change and published to the Store.
type WebSocketTransport struct {
	addr     string
	store    *control.Store
	upgrader websocket.Upgrader

	mu       sync.Mutex
	clients  map[string]*wsClient
	closed   bool
	server   *http.Server
	listener net.Listener
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// NewWebSocketTransport creates a transport listening on addr once Start is
// called. store may be nil, in which case control messages are rejected.
func NewWebSocketTransport(addr string, store *control.Store) *WebSocketTransport {
	return &WebSocketTransport{
		addr:  addr,
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Control surfaces are served from anywhere on the LAN.
			},
		},
		clients: make(map[string]*wsClient),
	}
}

// Handler returns the HTTP handler serving the /ws endpoint.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	return mux
}

// Start binds the listen address and serves in the background.
func (wst *WebSocketTransport) Start() error {
	ln, err := net.Listen("tcp", wst.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", wst.addr, err)
	}

	wst.mu.Lock()
	wst.listener = ln
	wst.server = &http.Server{
		Handler:           wst.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	server := wst.server
	wst.mu.Unlock()

	go func() {
		applog.Infof("WebSocketTransport: Listening on ws://%s/ws", ln.Addr())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (wst *WebSocketTransport) Addr() string {
	wst.mu.Lock()
	defer wst.mu.Unlock()
	if wst.listener != nil {
		return wst.listener.Addr().String()
	}
	return wst.addr
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.mu.Lock()
	defer wst.mu.Unlock()
	return len(wst.clients)
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id, err := gonanoid.New()
	if err != nil {
		http.Error(w, "session id unavailable", http.StatusInternalServerError)
		return
	}

	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error from %s: %v", r.RemoteAddr, err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	c := &wsClient{id: id, conn: conn, send: make(chan []byte, clientQueueSize)}
	if !wst.register(c) {
		conn.Close()
		return
	}
	applog.Infof("WebSocketTransport: Client %s connected from %s, total: %d", id, r.RemoteAddr, wst.Clients())

	go wst.writeLoop(c)

	var params control.Params
	if wst.store != nil {
		params = wst.store.Load()
	}
	wst.reply(c, Hello{Type: MessageHello, Session: id, Params: params})

	wst.readLoop(c)
}

func (wst *WebSocketTransport) register(c *wsClient) bool {
	wst.mu.Lock()
	defer wst.mu.Unlock()
	if wst.closed {
		return false
	}
	wst.clients[c.id] = c
	return true
}

// unregister removes c and closes its queue. Safe to call more than once.
func (wst *WebSocketTransport) unregister(c *wsClient) {
	wst.mu.Lock()
	_, ok := wst.clients[c.id]
	if ok {
		delete(wst.clients, c.id)
		close(c.send)
	}
	remaining := len(wst.clients)
	wst.mu.Unlock()

	if ok {
		c.conn.Close()
		applog.Infof("WebSocketTransport: Client %s disconnected, total: %d", c.id, remaining)
	}
}

func (wst *WebSocketTransport) readLoop(c *wsClient) {
	defer wst.unregister(c)
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				applog.Debugf("WebSocketTransport: Read from %s ended: %v", c.id, err)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		wst.handleControl(c, data)
	}
}

func (wst *WebSocketTransport) handleControl(c *wsClient, data []byte) {
	if wst.store == nil {
		wst.reply(c, ErrorMessage{Type: MessageError, Error: "control is not available"})
		return
	}

	var change control.Change
	if err := json.Unmarshal(data, &change); err != nil {
		wst.reply(c, ErrorMessage{Type: MessageError, Error: fmt.Sprintf("invalid control message: %v", err)})
		return
	}

	p := wst.store.Apply(change)
	applog.Debugf("WebSocketTransport: Client %s applied %+v", c.id, p)
	wst.reply(c, ParamsMessage{Type: MessageParams, Session: c.id, Params: p})
}

// reply queues msg to a single client.
func (wst *WebSocketTransport) reply(c *wsClient, msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		applog.Errorf("WebSocketTransport: Encoding reply: %v", err)
		return
	}
	wst.mu.Lock()
	defer wst.mu.Unlock()
	if _, ok := wst.clients[c.id]; ok {
		enqueue(c, b)
	}
}

func (wst *WebSocketTransport) writeLoop(c *wsClient) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			applog.Warnf("WebSocketTransport: Error sending to %s: %v", c.id, err)
			wst.unregister(c)
			// Drain so unregister's close ends the loop.
			for range c.send {
			}
			return
		}
	}
}

// enqueue must be called with wst.mu held.
func enqueue(c *wsClient, msg []byte) {
	select {
	case c.send <- msg:
	default:
		// Queue full, drop message.
	}
}

// Send broadcasts data as JSON to all connected clients.
func (wst *WebSocketTransport) Send(data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	wst.mu.Lock()
	defer wst.mu.Unlock()
	if wst.closed {
		return ErrClosed
	}
	for _, c := range wst.clients {
		enqueue(c, b)
	}
	return nil
}

// Close disconnects every client and shuts the server down.
func (wst *WebSocketTransport) Close() error {
	wst.mu.Lock()
	if wst.closed {
		wst.mu.Unlock()
		return nil
	}
	wst.closed = true
	clients := make([]*wsClient, 0, len(wst.clients))
	for _, c := range wst.clients {
		clients = append(clients, c)
	}
	server := wst.server
	wst.mu.Unlock()

	applog.Infof("WebSocketTransport: Closing server")
	for _, c := range clients {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"),
			time.Now().Add(writeTimeout))
		wst.unregister(c)
	}

	if server != nil {
		return server.Close()
	}
	return nil
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
