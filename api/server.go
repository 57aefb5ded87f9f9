// Package api provides the HTTP API server for the index movers dashboard.
//
// It exposes endpoints for index catalogs, constituent lists, top
// winners/losers tables, price series, SVG trend charts, per-symbol news,
// and WebSocket refresh notifications.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hucanghe/stock-analysis/internal/config"
	"github.com/hucanghe/stock-analysis/internal/dashboard"
	"github.com/hucanghe/stock-analysis/internal/datasource"
	"github.com/hucanghe/stock-analysis/internal/report"
	"github.com/hucanghe/stock-analysis/web"
)

// IndexCatalog lists the configured indices and resolves their constituents.
type IndexCatalog interface {
	datasource.ConstituentProvider
	Indices() []string
}

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	svc     *dashboard.Service
	catalog IndexCatalog
	news    datasource.NewsProvider
	wsHub   *WSHub
	serveUI bool // when true, serve the embedded web UI at /
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config) *Server {
	sources := datasource.DefaultIndexSources
	if len(cfg.Sources.Indices) > 0 {
		sources = make([]datasource.IndexSource, 0, len(cfg.Sources.Indices))
		for _, idx := range cfg.Sources.Indices {
			sources = append(sources, datasource.IndexSource{
				Name:          idx.Name,
				URL:           idx.URL,
				TickerColumn:  idx.TickerColumn,
				CompanyColumn: idx.CompanyColumn,
			})
		}
	}
	wiki := datasource.NewWikipediaWithSources(sources)

	var yfOpts []datasource.YFinanceOption
	if cfg.Sources.YFinanceBaseURL != "" {
		yfOpts = append(yfOpts, datasource.WithBaseURL(cfg.Sources.YFinanceBaseURL))
	}
	if cfg.Sources.ChunkSize > 0 {
		yfOpts = append(yfOpts, datasource.WithChunkSize(cfg.Sources.ChunkSize))
	}
	if cfg.Sources.ConcurrentFetches > 0 {
		yfOpts = append(yfOpts, datasource.WithConcurrency(cfg.Sources.ConcurrentFetches))
	}
	yf := datasource.NewYFinance(yfOpts...)

	feedURL := cfg.Sources.NewsFeedURL
	if feedURL == "" {
		feedURL = datasource.DefaultNewsFeedURL
	}

	srv := &Server{
		cfg:     cfg,
		svc:     dashboard.NewService(wiki, yf, cfg.Dashboard.CalendarLookbackDays),
		catalog: wiki,
		news:    datasource.NewNewsWithFeed(feedURL),
		wsHub:   NewWSHub(),
		serveUI: true, // serve embedded web UI by default
	}

	srv.router = srv.buildRouter()
	return srv
}

// SetServeUI controls whether the embedded web UI is served.
// Must be called before ListenAndServe.
func (s *Server) SetServeUI(enabled bool) {
	s.serveUI = enabled
	s.router = s.buildRouter()
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start WebSocket hub
	go s.wsHub.Run()

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health (also available at /health)
		r.Get("/health", s.handleHealth)

		// Index catalog
		r.Get("/indices", s.handleIndices)
		r.Get("/constituents/{index}", s.handleConstituents)

		// Movers tables
		r.Get("/movers", s.handleMovers)

		// Per-symbol price data
		r.Get("/series/{symbol}", s.handleSeries)
		r.Get("/chart/{symbol}", s.handleChart)

		// News
		r.Get("/news/{symbol}", s.handleNews)

		// Dashboard controls / configuration
		r.Get("/config", s.handleGetConfig)
		r.Get("/config/sources", s.handleGetConfigSources)

		// WebSocket refresh notifications
		r.Get("/ws", s.handleWebSocket)
	})

	// Serve embedded web UI (fallback to index.html)
	if s.serveUI {
		s.mountUI(r, web.DistFS())
	}

	return r
}

// mountUI serves the embedded static dashboard. Assets under assets/ are
// served with long-lived cache headers; everything else falls back to
// index.html.
func (s *Server) mountUI(r chi.Router, distFS fs.FS) {
	fileServer := http.FileServerFS(distFS)

	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		rPath := strings.TrimPrefix(r.URL.Path, "/")
		if rPath == "" {
			rPath = "index.html"
		}

		// Try to open the requested file from the embedded FS
		f, err := distFS.Open(rPath)
		if err != nil {
			serveIndexHTML(w, r, distFS)
			return
		}
		f.Close()

		if strings.HasPrefix(rPath, "assets/") {
			w.Header().Set("Cache-Control", "public, max-age=86400")
		} else if rPath == "index.html" || strings.HasSuffix(rPath, ".html") {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		}

		fileServer.ServeHTTP(w, r)
	})
}

// serveIndexHTML reads and serves the embedded index.html.
func serveIndexHTML(w http.ResponseWriter, r *http.Request, distFS fs.FS) {
	data, err := fs.ReadFile(distFS, "index.html")
	if err != nil {
		http.Error(w, "web UI not available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// ============================================================
// Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ControlsResponse describes the dashboard control ranges for the UI.
type ControlsResponse struct {
	Indices   []string `json:"indices"`
	Window    int      `json:"window"`
	MinWindow int      `json:"min_window"`
	MaxWindow int      `json:"max_window"`
	TopN      int      `json:"top_n"`
	MinTopN   int      `json:"min_top_n"`
	MaxTopN   int      `json:"max_top_n"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":  "ok",
			"time":    time.Now().UTC().Format(time.RFC3339),
			"indices": len(s.catalog.Indices()),
		},
	})
}

func (s *Server) handleIndices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.catalog.Indices(),
	})
}

func (s *Server) handleConstituents(w http.ResponseWriter, r *http.Request) {
	index := chi.URLParam(r, "index")
	if index == "" {
		writeError(w, http.StatusBadRequest, "index is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	constituents, err := s.catalog.GetConstituents(ctx, index)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    constituents,
	})
}

func (s *Server) handleMovers(w http.ResponseWriter, r *http.Request) {
	index := r.URL.Query().Get("index")
	if index == "" {
		indices := s.catalog.Indices()
		if len(indices) == 0 {
			writeError(w, http.StatusBadRequest, "no indices configured")
			return
		}
		index = indices[0]
	}

	window, err := s.queryControl(r, "window", s.cfg.ValidateWindow)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	topN, err := s.queryControl(r, "top_n", s.cfg.ValidateTopN)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	snap, err := s.svc.Snapshot(ctx, dashboard.SnapshotRequest{
		Index:  index,
		Window: window,
		TopN:   topN,
	})
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	// Notify dashboard clients that fresh tables are available
	s.wsHub.Broadcast(WSMessage{
		Type: "movers_refreshed",
		Data: map[string]interface{}{
			"index":  snap.Index,
			"window": snap.Window,
		},
	})

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    snap,
	})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	window, err := s.queryControl(r, "window", s.cfg.ValidateWindow)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	series, err := s.svc.PriceTrend(ctx, symbol, window)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    series,
	})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	window, err := s.queryControl(r, "window", s.cfg.ValidateWindow)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	series, err := s.svc.PriceTrend(ctx, symbol, window)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	svg := report.PriceTrendChart(strings.ToUpper(symbol), series, report.DefaultChartConfig())

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(svg)) //nolint:errcheck
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	articles, err := s.news.GetSymbolNews(ctx, symbol, limit)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    articles,
	})
}

// ============================================================
// Helpers
// ============================================================

// queryControl parses an optional integer query parameter and validates it
// against the configured bounds. A missing parameter means "use the default".
func (s *Server) queryControl(r *http.Request, name string, validate func(int) (int, error)) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return validate(0)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return validate(n)
}

// statusForError maps datasource failures to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, datasource.ErrSourceUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, datasource.ErrTickerNotFound):
		return http.StatusNotFound
	case errors.Is(err, datasource.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// ============================================================
// WebSocket Hub
// ============================================================

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// WSHub manages WebSocket connections and message broadcasting.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
}

// WSClient represents a single WebSocket connection.
type WSClient struct {
	hub  *WSHub
	send chan WSMessage
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
}

// Run starts the hub event loop.
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow client: stop delivering but leave the send
					// channel open. Only the unregister path closes it,
					// once the client's pumps have exited; the write
					// deadline tears the stalled connection down.
					h.mu.RUnlock()
					h.mu.Lock()
					delete(h.clients, client)
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast sends a message to all connected WebSocket clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		// Drop message if broadcast channel is full
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub.
func (h *WSHub) Register(client *WSClient) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	h.unregister <- client
}
