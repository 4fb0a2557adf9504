// Package server hosts dialogue conversations over websockets.
//
// Every connection is an owner on one shared driver loop. Clients send
// start, advance, select and stop messages as JSON and receive started,
// node, choice_made and ended messages back. A connection that goes away
// releases its runner.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/teranos/dialogue/asset"
	"github.com/teranos/dialogue/driver"
	"github.com/teranos/dialogue/errors"
	"github.com/teranos/dialogue/logger"
	"github.com/teranos/dialogue/metrics"
)

// ShutdownTimeout bounds how long ListenAndServe waits for in-flight requests
const ShutdownTimeout = 5 * time.Second

// Server routes websocket clients to a driver loop
type Server struct {
	loop     *driver.Loop
	store    asset.Store
	logger   *zap.SugaredLogger
	origins  map[string]bool
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[driver.Owner]*client

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server logger
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Server) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithAllowedOrigins restricts websocket upgrades to the given Origin values.
// Requests without an Origin header are always allowed.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		for _, o := range origins {
			s.origins[o] = true
		}
	}
}

// New creates a server around a loop whose notifications it will consume.
// store must be the store the loop's driver reads.
func New(loop *driver.Loop, store asset.Store, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		loop:    loop,
		store:   store,
		logger:  zap.NewNop().Sugar(),
		origins: make(map[string]bool),
		clients: make(map[driver.Owner]*client),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.origins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || s.origins[origin]
}

// Start begins routing loop notifications to clients
func (s *Server) Start() {
	s.wg.Add(1)
	go s.route()
}

// Stop disconnects every client and stops routing
func (s *Server) Stop() {
	// Cancel under the lock so register cannot add pumps after Wait begins
	s.mu.Lock()
	s.cancel()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	s.wg.Wait()
	s.logger.Infow("Dialogue server stopped")
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) route() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case n, ok := <-s.loop.Notifications():
			if !ok {
				return
			}
			s.deliver(n)
		}
	}
}

func (s *Server) deliver(n driver.Notification) {
	s.mu.RLock()
	c, ok := s.clients[n.OwnerID()]
	s.mu.RUnlock()
	if !ok {
		return
	}
	// Notifications still queued from an earlier conversation render against its asset
	if started, isStart := n.(driver.Started); isStart {
		c.setAsset(started.Asset)
	}

	msg, ok := notificationMessage(s.store, c.assetHandle(), n)
	if !ok {
		return
	}
	c.enqueue(msg)
}

func (s *Server) register(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.clients[c.owner] = c
	s.wg.Add(2) // read and write pumps
	metrics.WebsocketClients.Inc()
	s.logger.Infow("Client connected", logger.FieldOwner, c.owner)
	return true
}

// unregister drops c and releases its runner on the loop
func (s *Server) unregister(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c.owner]
	if ok {
		delete(s.clients, c.owner)
		metrics.WebsocketClients.Dec()
	}
	s.mu.Unlock()

	c.close()
	if !ok {
		return
	}
	s.logger.Infow("Client disconnected", logger.FieldOwner, c.owner)

	ctx, cancel := context.WithTimeout(s.ctx, writeWait)
	defer cancel()
	if err := s.loop.Send(ctx, driver.Release{Owner: c.owner}); err != nil {
		s.logger.Debugw("Could not release runner", logger.FieldOwner, c.owner, logger.FieldError, err)
	}
}

// ServeWS upgrades the request and serves one client
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		s.logger.Warnw("WebSocket upgrade failed", logger.FieldError, err)
		return
	}

	c := newClient(s, conn, driver.Owner(uuid.NewString()))
	if !s.register(c) {
		conn.Close()
		return
	}

	go c.writePump()
	c.enqueue(OutboundMessage{Type: TypeWelcome, Owner: c.owner})
	go c.readPump()
}

// Handler serves /ws, /metrics and /healthz
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.ServeWS)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

// ListenAndServe serves handler on addr until ctx is cancelled
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, log *zap.SugaredLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Infow("Dialogue server listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrapf(err, "failed to listen on %s", addr)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "failed to shut down server")
		}
		return nil
	}
}
