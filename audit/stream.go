package audit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/office-mas/office-multi-agent/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamServer broadcasts audit records to connected WebSocket observers.
// It is itself a Sink, so it can be fanned out alongside the file sink.
type StreamServer struct {
	mu      sync.Mutex
	port    int
	server  *http.Server
	clients map[*websocket.Conn]chan []byte
	log     *logger.Logger
}

// NewStreamServer creates a broadcast server listening on port.
func NewStreamServer(port int) *StreamServer {
	return &StreamServer{
		port:    port,
		clients: make(map[*websocket.Conn]chan []byte),
		log:     logger.GetLogger().WithField("component", "audit-stream"),
	}
}

// Start begins serving /ws. Returns immediately; serving happens in the
// background.
func (s *StreamServer) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)

	s.mu.Lock()
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("audit stream server stopped", err)
		}
	}()
	return nil
}

// Stop closes the server and all client connections.
func (s *StreamServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn, ch := range s.clients {
		close(ch)
		_ = conn.Close()
		delete(s.clients, conn)
	}
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// Write implements Sink: the record is serialized once and queued to every
// connected observer. Slow observers are dropped rather than blocking the
// pipeline.
func (s *StreamServer) Write(rec Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn, ch := range s.clients {
		select {
		case ch <- data:
		default:
			close(ch)
			_ = conn.Close()
			delete(s.clients, conn)
		}
	}
}

func (s *StreamServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debugf("ws upgrade failed: %v", err)
		return
	}
	ch := make(chan []byte, 64)

	s.mu.Lock()
	s.clients[conn] = ch
	s.mu.Unlock()

	go s.writePump(conn, ch)
	go s.readPump(conn)
}

func (s *StreamServer) writePump(conn *websocket.Conn, ch chan []byte) {
	for data := range ch {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}
	s.drop(conn)
}

// readPump discards inbound frames; observers are read-only. It exists so
// close frames and pings are processed.
func (s *StreamServer) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.drop(conn)
}

func (s *StreamServer) drop(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.clients[conn]; ok {
		close(ch)
		delete(s.clients, conn)
	}
	_ = conn.Close()
}
