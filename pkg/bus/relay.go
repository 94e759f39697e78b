/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * RelayBus - 跨进程广播后端
 *
 * 两个窗口是独立 OS 进程时使用。主窗口在 localhost 上托管一个
 * 极小的 WebSocket 中继（RelayServer），把任一连接发来的帧转发给
 * 其余所有连接。RelayBus 是进程端的客户端：写满即丢、断线重拨，
 * 保持尽力而为语义。
 */
package bus

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/maiguangyang/voice_core/pkg/utils"
)

const (
	relayWriteWait  = 5 * time.Second
	relaySendQueue  = 64
	relayRedialBase = 500 * time.Millisecond
	relayRedialMax  = 5 * time.Second
)

// ========================================
// RelayServer
// ========================================

// RelayServer is the localhost rendezvous the primary window hosts.
// It forwards every inbound frame to all other connections; it never
// inspects message contents.
type RelayServer struct {
	mu       sync.RWMutex
	listener net.Listener
	server   *http.Server
	conns    map[*relayConn]struct{}
	upgrader websocket.Upgrader
	logger   *utils.Logger
	closed   bool
}

type relayConn struct {
	conn *websocket.Conn
	send chan []byte
}

// NewRelayServer creates a relay listening on addr (e.g. "127.0.0.1:0").
// The actual address is available from Addr after Start.
func NewRelayServer(addr string) (*RelayServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &RelayServer{
		listener: listener,
		conns:    make(map[*relayConn]struct{}),
		upgrader: websocket.Upgrader{
			// 只在 localhost 上服务，同机窗口之间无需 Origin 校验
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: utils.NewLogger("bus.relay"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/bus", s.handleWS)
	s.server = &http.Server{Handler: mux}

	return s, nil
}

// Start begins serving. It returns immediately.
func (s *RelayServer) Start() {
	go func() {
		if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("serve: %v", err)
		}
	}()
}

// Addr returns the bound address, for handing to follower processes
func (s *RelayServer) Addr() string {
	return s.listener.Addr().String()
}

func (s *RelayServer) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade: %v", err)
		return
	}

	c := &relayConn{conn: ws, send: make(chan []byte, relaySendQueue)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ws.Close()
		return
	}
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	go s.writePump(c)
	s.readPump(c)
}

// readPump forwards each inbound frame to every other connection
func (s *RelayServer) readPump(c *relayConn) {
	defer s.dropConn(c)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		s.mu.RLock()
		for other := range s.conns {
			if other == c {
				continue
			}
			// 每个连接独立持有一份缓冲，由 writePump 归还
			frame := utils.GetBuffer(len(data))
			copy(frame, data)
			select {
			case other.send <- frame:
			default:
				// 队列满，丢帧
				utils.PutBuffer(frame)
			}
		}
		s.mu.RUnlock()
	}
}

func (s *RelayServer) writePump(c *relayConn) {
	for frame := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(relayWriteWait))
		err := c.conn.WriteMessage(websocket.TextMessage, frame)
		utils.PutBuffer(frame)
		if err != nil {
			return
		}
	}
}

func (s *RelayServer) dropConn(c *relayConn) {
	s.mu.Lock()
	if _, ok := s.conns[c]; ok {
		delete(s.conns, c)
		close(c.send)
	}
	s.mu.Unlock()
	c.conn.Close()
}

// ConnCount returns the number of attached processes
func (s *RelayServer) ConnCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// RelayStatus is the JSON summary of the relay rendezvous
type RelayStatus struct {
	Addr        string `json:"addr"`
	Connections int    `json:"connections"`
}

// GetStatus returns the relay summary
func (s *RelayServer) GetStatus() RelayStatus {
	return RelayStatus{
		Addr:        s.Addr(),
		Connections: s.ConnCount(),
	}
}

// Close stops the server and drops all connections
func (s *RelayServer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conns := make([]*relayConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.conns = make(map[*relayConn]struct{})
	s.mu.Unlock()

	for _, c := range conns {
		close(c.send)
		c.conn.Close()
	}
	s.server.Close()
}

// ========================================
// RelayBus
// ========================================

// RelayBus is the per-process client endpoint on a RelayServer
type RelayBus struct {
	mu         sync.RWMutex
	url        string
	instanceID string
	handler    Handler
	send       chan []byte
	stopCh     chan struct{}
	closed     bool
	logger     *utils.Logger
}

// NewRelayBus connects to the relay at addr (host:port). The dial and
// all redials happen in the background; publishes issued while no
// connection is up are dropped, per the best-effort contract.
func NewRelayBus(addr, instanceID string) *RelayBus {
	b := &RelayBus{
		url:        "ws://" + addr + "/bus",
		instanceID: instanceID,
		send:       make(chan []byte, relaySendQueue),
		stopCh:     make(chan struct{}),
		logger:     utils.NewLogger("bus.relay"),
	}
	go b.runLoop()
	return b
}

// Publish marshals and queues the message. It never blocks: a full
// queue or a down connection loses the message silently.
func (b *RelayBus) Publish(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("marshal: %v", err)
		return
	}

	select {
	case b.send <- data:
	case <-b.stopCh:
	default:
		b.logger.Warn("send queue full, dropping %s message", msg.Kind)
	}
}

// Subscribe installs the inbound handler, replacing any previous one
func (b *RelayBus) Subscribe(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

// runLoop dials, pumps, and redials with capped backoff
func (b *RelayBus) runLoop() {
	delay := relayRedialBase

	for {
		select {
		case <-b.stopCh:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(b.url, nil)
		if err != nil {
			b.logger.Warn("dial %s: %v", b.url, err)
			select {
			case <-time.After(delay):
			case <-b.stopCh:
				return
			}
			delay *= 2
			if delay > relayRedialMax {
				delay = relayRedialMax
			}
			continue
		}

		delay = relayRedialBase
		b.pump(conn)
		conn.Close()
	}
}

// pump runs reader and writer until either side fails or the bus closes
func (b *RelayBus) pump(conn *websocket.Conn) {
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			b.dispatch(data)
		}
	}()

	for {
		select {
		case <-b.stopCh:
			return
		case <-done:
			return
		case data := <-b.send:
			conn.SetWriteDeadline(time.Now().Add(relayWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

func (b *RelayBus) dispatch(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		b.logger.Warn("bad frame: %v", err)
		return
	}
	if msg.From == b.instanceID {
		// own echo came back through the relay, receiver-side filtering
		return
	}

	b.mu.RLock()
	handler := b.handler
	b.mu.RUnlock()
	if handler != nil {
		handler(msg)
	}
}

// Close tears down the connection. Idempotent.
func (b *RelayBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.stopCh)
}
