// Package web exposes the rendering pipeline over HTTP: JSON endpoints for
// rendering, sanitizing and editor keystrokes, the highlight stylesheet, and
// a WebSocket live preview backed by the event bus hub.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/folio-press/folio/internal/content"
	"github.com/folio-press/folio/internal/eventbus"
	"github.com/folio-press/folio/internal/kvstore"
	"github.com/folio-press/folio/internal/logging"
	"github.com/folio-press/folio/internal/render"
)

var webLog = logging.ForComponent(logging.CompWeb)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Config holds the server settings. Zero RateLimit disables rate limiting.
type Config struct {
	ListenAddr string
	Token      string
	RateLimit  float64
	Burst      int
	Store      kvstore.Store
}

// Server is the folio HTTP server.
type Server struct {
	cfg      Config
	renderer *render.Renderer
	eventBus *eventbus.EventBus
	eventHub *eventbus.Hub
	metrics  *metrics
	limiter  *clientLimiter

	mu       sync.Mutex
	displays map[string]*render.Display

	httpServer *http.Server
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// NewServer builds a Server. A nil Store keeps editor settings in memory.
func NewServer(cfg Config) *Server {
	if cfg.Store == nil {
		cfg.Store = kvstore.NewMemoryStore()
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	bus := eventbus.New()
	m := newMetrics()

	s := &Server{
		cfg: cfg,
		renderer: render.New(render.WithObserver(func(f content.Format, o render.Outcome) {
			m.renders.WithLabelValues(string(f), string(o)).Inc()
		})),
		eventBus:   bus,
		eventHub:   eventbus.NewHub(bus),
		metrics:    m,
		limiter:    newClientLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		displays:   make(map[string]*render.Display),
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.cfg.ListenAddr }

// EventBus returns the bus the server publishes on.
func (s *Server) EventBus() *eventbus.EventBus { return s.eventBus }

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/highlight.css", s.handleHighlightCSS)
	mux.HandleFunc("/api/render", s.limited(s.handleRender))
	mux.HandleFunc("/api/sanitize", s.limited(s.handleSanitize))
	mux.HandleFunc("/api/editor/settings", s.handleEditorSettings)
	mux.HandleFunc("/api/editor/keystroke", s.handleKeystroke)
	mux.HandleFunc("/ws/preview", s.handlePreviewWS)
	return s.instrument(mux)
}

// Start listens and serves until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	webLog.Info("server_listening", slog.String("addr", s.cfg.ListenAddr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops background work and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelBase()
	s.eventHub.Close()
	return s.httpServer.Shutdown(ctx)
}

// display returns the live preview display of document id, creating it on
// first use.
func (s *Server) display(id string) *render.Display {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.displays[id]
	if !ok {
		d = render.NewDisplay(id, s.renderer, s.eventBus)
		s.displays[id] = d
	}
	return d
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"clients": s.eventHub.ClientCount(),
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// authorizeRequest accepts every request when no token is configured.
// Otherwise the token must arrive as a bearer header or, for WebSocket
// clients that cannot set headers, as the token query parameter.
func (s *Server) authorizeRequest(r *http.Request) bool {
	if s.cfg.Token == "" {
		return true
	}
	got := r.URL.Query().Get("token")
	if h := r.Header.Get("Authorization"); h != "" {
		got = strings.TrimPrefix(h, "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.Token)) == 1
}

// limited applies the per-client rate limit to h.
func (s *Server) limited(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(clientKey(r)) {
			s.metrics.throttled.Inc()
			w.Header().Set("Retry-After", "1")
			writeAPIError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
			return
		}
		h(w, r)
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]apiError{
		"error": {Code: code, Message: message},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		webLog.Debug("write_json_failed", slog.String("error", err.Error()))
	}
}
