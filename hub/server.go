package hub

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/pitwall/config"
	"github.com/c360/pitwall/errors"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

// Control is a client request or server reply on the WebSocket.
//
// Requests: subscribe (with source_id), subscribe_all, unsubscribe, ping.
// Replies: ack, pong, error.
type Control struct {
	Type     string `json:"type"`
	SourceID string `json:"source_id,omitempty"`
	Action   string `json:"action,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Server serves hub subscriptions over WebSocket.
type Server struct {
	hub      *Hub
	logger   *slog.Logger
	listen   string
	path     string
	upgrader websocket.Upgrader

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	clients  map[*client]struct{}
	shutdown chan struct{}
	wg       sync.WaitGroup
}

type client struct {
	conn       *websocket.Conn
	sub        *Subscriber
	writeMutex sync.Mutex
	closeOnce  sync.Once
}

// NewServer creates a WebSocket server for h listening on cfg.Listen at
// cfg.Path.
func NewServer(h *Hub, cfg config.HubConfig, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	path := cfg.Path
	if path == "" {
		path = "/ws"
	}
	return &Server{
		hub:    h,
		logger: deps.Logger.With("component", "hub-server"),
		listen: cfg.Listen,
		path:   path,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients:  make(map[*client]struct{}),
		shutdown: make(chan struct{}),
	}
}

// Handler returns the HTTP handler serving the WebSocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleWebSocket)
	return mux
}

// Start listens and serves until Stop is called or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return errors.WrapFatal(err, "hub-server", "Start", "listen on "+s.listen)
	}

	s.mu.Lock()
	s.listener = ln
	s.server = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	server := s.server
	s.mu.Unlock()

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := server.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("WebSocket server failed", "error", err)
		}
	}()
	go s.maintainClients(ctx)

	s.logger.Info("WebSocket server listening", "addr", ln.Addr().String(), "path", s.path)
	return nil
}

// Addr returns the listening address, "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the HTTP server down and disconnects every client.
func (s *Server) Stop(timeout time.Duration) error {
	s.mu.Lock()
	server := s.server
	select {
	case <-s.shutdown:
	default:
		close(s.shutdown)
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var shutdownErr error
	if server != nil {
		shutdownErr = server.Shutdown(ctx)
	}
	s.closeAllClients()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.WrapTransient(errors.ErrStopTimeout, "hub-server", "Stop", "graceful shutdown")
	}
	return shutdownErr
}

func filterFromQuery(r *http.Request) Filter {
	switch src := r.URL.Query().Get("source"); src {
	case "":
		return None
	case string(All):
		return All
	default:
		return Filter(src)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("WebSocket upgrade failed", "error", err)
		return
	}

	filter := filterFromQuery(r)
	sub, err := s.hub.Subscribe(None)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "hub unavailable"), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	c := &client{conn: conn, sub: sub}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.hub.metrics.connected()

	if filter != None {
		s.subscribe(c, filter)
	}

	s.wg.Add(2)
	go s.writeLoop(c)
	go s.readLoop(c)
}

// subscribe acknowledges then applies a filter, so the ack precedes any
// seeded snapshot.
func (s *Server) subscribe(c *client, filter Filter) {
	ack := Control{Type: "ack", Action: "subscribe", SourceID: string(filter)}
	if filter == All {
		ack = Control{Type: "ack", Action: "subscribe_all"}
	}
	if err := s.writeJSON(c, ack); err != nil {
		s.removeClient(c)
		return
	}
	s.hub.SetFilter(c.sub, filter)
}

func (s *Server) readLoop(c *client) {
	defer s.wg.Done()
	defer s.removeClient(c)

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var req Control
		if err := json.Unmarshal(data, &req); err != nil {
			_ = s.writeJSON(c, Control{Type: "error", Error: "invalid message"})
			continue
		}

		switch req.Type {
		case "subscribe":
			if req.SourceID == "" {
				_ = s.writeJSON(c, Control{Type: "error", Error: "source_id is required"})
				continue
			}
			s.subscribe(c, Filter(req.SourceID))
		case "subscribe_all":
			s.subscribe(c, All)
		case "unsubscribe":
			s.hub.SetFilter(c.sub, None)
			_ = s.writeJSON(c, Control{Type: "ack", Action: "unsubscribe"})
		case "ping":
			_ = s.writeJSON(c, Control{Type: "pong"})
		default:
			_ = s.writeJSON(c, Control{Type: "error", Error: fmt.Sprintf("unknown message type %q", req.Type)})
		}
	}
}

func (s *Server) writeLoop(c *client) {
	defer s.wg.Done()
	defer s.removeClient(c)

	for {
		msg, err := c.sub.Next(context.Background())
		if err != nil {
			return
		}
		data, err := msg.JSON()
		if err != nil {
			s.logger.Warn("Dropping unencodable message", "source", msg.SourceID, "error", err)
			continue
		}
		if err := s.write(c, websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (s *Server) writeJSON(c *client, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.write(c, websocket.TextMessage, data)
}

// write serializes writes; gorilla connections allow one concurrent writer.
func (s *Server) write(c *client, kind int, data []byte) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(kind, data)
}

func (s *Server) removeClient(c *client) {
	c.closeOnce.Do(func() {
		s.hub.Unsubscribe(c.sub)
		_ = c.conn.Close()
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
	})
}

func (s *Server) closeAllClients() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	for _, c := range clients {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(time.Second))
		s.removeClient(c)
	}
}

// maintainClients pings every client so idle readers keep their deadline.
func (s *Server) maintainClients(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.mu.Lock()
			clients := make([]*client, 0, len(s.clients))
			for c := range s.clients {
				clients = append(clients, c)
			}
			s.mu.Unlock()
			for _, c := range clients {
				if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					s.removeClient(c)
				}
			}
		}
	}
}
