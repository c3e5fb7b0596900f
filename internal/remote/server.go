// Package remote exposes a docstore.Store over HTTP and WebSocket, and
// provides a Client that implements docstore.Store against such a server.
//
// Routes:
//
//	GET    /health
//	GET    /v1/docs?path=users/<uid>/<name>       list a collection
//	GET    /v1/docs/{id}?path=...                  get one document
//	PUT    /v1/docs/{id}?path=...                  upsert one document
//	DELETE /v1/docs/{id}?path=...                  delete one document
//	GET    /v1/watch?path=...                      WebSocket change feed
//
// The watch endpoint sends one WatchMessage per store change. An empty path
// watches every collection.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/loveeagles/planner/internal/docstore"
	"github.com/loveeagles/planner/internal/logger"
)

// WatchMessage is one change pushed on the watch endpoint.
type WatchMessage struct {
	Op   docstore.Op `json:"op"`
	Path string      `json:"path,omitempty"`
	ID   string      `json:"id,omitempty"`
}

// ListResponse is the body of GET /v1/docs.
type ListResponse struct {
	Records []docstore.Record `json:"records"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// watchBuffer bounds queued notifications per watcher. Clients re-read whole
// collections on any change, so dropping notifications while the buffer is
// full loses nothing.
const watchBuffer = 16

// Server serves a docstore.Store.
type Server struct {
	addr     string
	store    docstore.Store
	listener net.Listener
	server   *http.Server
	router   chi.Router

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration.
type Config struct {
	// Port to listen on (0 picks a free port).
	Port int

	// Store is the store being served. Required.
	Store docstore.Store

	// AllowedOrigins for CORS (default: all).
	AllowedOrigins []string

	// Logger for server activity (default: stderr logger).
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults. Store must still be set.
func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		AllowedOrigins: []string{"*"},
	}
}

// NewServer creates a server for config.Store.
func NewServer(config *Config) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Store == nil {
		return nil, errors.New("remote server requires a store")
	}
	origins := config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:    fmt.Sprintf(":%d", config.Port),
		store:   config.Store,
		clients: make(map[*websocket.Conn]bool),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.Named(config.Logger, "remote"),
	}
	s.router = s.routes(origins)
	return s, nil
}

func (s *Server) routes(origins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/docs", s.handleList)
		r.Get("/docs/{id}", s.handleGet)
		r.Put("/docs/{id}", s.handlePut)
		r.Delete("/docs/{id}", s.handleDelete)
		r.Get("/watch", s.handleWatch)
	})
	return r
}

// Handler returns the HTTP handler, for embedding or httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Start begins serving in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:     s.router,
		ReadTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "err", err)
		}
	}()
	return nil
}

// Stop closes every watcher and shuts the HTTP server down.
func (s *Server) Stop() error {
	s.logger.Info("stopping")
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}
	s.wg.Wait()
	return nil
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the number of connected watchers.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func pathParam(r *http.Request) (docstore.Path, error) {
	return docstore.ParsePath(r.URL.Query().Get("path"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	path, err := pathParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	records, err := s.store.List(r.Context(), path)
	if err != nil {
		s.logger.Error("list failed", "path", path, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []docstore.Record{}
	}
	writeJSON(w, http.StatusOK, ListResponse{Records: records})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	path, err := pathParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rec, err := s.store.Get(r.Context(), path, chi.URLParam(r, "id"))
	if errors.Is(err, docstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.logger.Error("get failed", "path", path, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	path, err := pathParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var rec docstore.Record
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid document: %w", err))
		return
	}
	if err := s.store.Set(r.Context(), path, chi.URLParam(r, "id"), rec); err != nil {
		s.logger.Error("set failed", "path", path, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	path, err := pathParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.Delete(r.Context(), path, chi.URLParam(r, "id")); err != nil {
		s.logger.Error("delete failed", "path", path, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	var path docstore.Path
	if raw := r.URL.Query().Get("path"); raw != "" {
		p, err := docstore.ParsePath(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		path = p
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	count := len(s.clients)
	s.clientsMu.Unlock()
	s.logger.Debug("watcher connected", "path", path, "clients", count)
	defer s.removeClient(conn)

	queue := make(chan WatchMessage, watchBuffer)
	cancelSub := s.store.Subscribe(path, func(c docstore.Change) {
		msg := WatchMessage{Op: c.Op, ID: c.ID}
		if !c.Path.IsZero() {
			msg.Path = c.Path.String()
		}
		select {
		case queue <- msg:
		default:
		}
	})
	defer cancelSub()

	// CloseRead handles control frames and reports the peer going away.
	ctx := conn.CloseRead(s.ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-queue:
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Error("failed to marshal change", "err", err)
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.logger.Debug("failed to send to watcher", "err", err)
				return
			}
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	_, exists := s.clients[conn]
	delete(s.clients, conn)
	count := len(s.clients)
	s.clientsMu.Unlock()

	if exists {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Debug("watcher disconnected", "clients", count)
	}
}
