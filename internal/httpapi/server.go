package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"signaldash/internal/dashboard"
)

// Mirror is a render and status target that keeps a copy of everything
// pushed to it for the HTTP handlers. It is safe for concurrent use.
type Mirror struct {
	locale dashboard.Locale
	now    func() time.Time

	mu        sync.RWMutex
	order     []dashboard.FieldID
	text      map[dashboard.FieldID]string
	candles   []dashboard.Candle
	news      []dashboard.NewsItem
	status    dashboard.Connectivity
	message   string
	renders   int
	updatedAt time.Time
	onStatus  func(ViewResponse)
}

// NewMirror creates an empty mirror. Labels are rendered in locale.
func NewMirror(locale dashboard.Locale) *Mirror {
	return &Mirror{
		locale: locale,
		now:    time.Now,
		text:   make(map[dashboard.FieldID]string),
		status: dashboard.StatusLoading,
	}
}

func (m *Mirror) SetSeries(candles []dashboard.Candle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candles = append([]dashboard.Candle(nil), candles...)
}

// FitView is a no-op; HTTP clients size their own charts.
func (m *Mirror) FitView() {}

func (m *Mirror) SetText(id dashboard.FieldID, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.text[id]; !ok {
		m.order = append(m.order, id)
	}
	m.text[id] = value
}

// SetList stores the news list. It is the last call of a render pass, so it
// also stamps the render.
func (m *Mirror) SetList(items []dashboard.NewsItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.news = append([]dashboard.NewsItem(nil), items...)
	m.renders++
	m.updatedAt = m.now()
}

// SetStatus stores the connectivity state. A status report closes every
// poll, so it also publishes the view to stream subscribers.
func (m *Mirror) SetStatus(c dashboard.Connectivity, msg string) {
	m.mu.Lock()
	m.status = c
	m.message = msg
	publish := m.onStatus
	m.mu.Unlock()

	if publish != nil {
		publish(m.View())
	}
}

// OnStatus installs fn to receive the view after every status update.
func (m *Mirror) OnStatus(fn func(ViewResponse)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStatus = fn
}

// View returns a copy of the mirrored state.
func (m *Mirror) View() ViewResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()

	resp := ViewResponse{
		Fields:  make([]FieldJSON, 0, len(m.order)),
		Candles: append([]dashboard.Candle{}, m.candles...),
		News:    append([]dashboard.NewsItem{}, m.news...),
		Status:  StatusJSON{State: m.status, Message: m.message},
		Renders: m.renders,
	}
	for _, id := range m.order {
		resp.Fields = append(resp.Fields, FieldJSON{
			ID:    id,
			Label: m.locale.Label(id),
			Value: m.text[id],
		})
	}
	if !m.updatedAt.IsZero() {
		t := m.updatedAt
		resp.UpdatedAt = &t
	}
	return resp
}

// Status returns the last connectivity state.
func (m *Mirror) Status() dashboard.Connectivity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Server serves the mirror, a WebSocket stream of it and the process
// metrics.
type Server struct {
	mirror   *Mirror
	hub      *Hub
	gatherer prometheus.Gatherer
	log      *slog.Logger
}

// NewServer creates a server for mirror and subscribes its stream hub to the
// mirror. A nil gatherer disables /metrics. Run must be started for
// /api/stream to accept clients.
func NewServer(mirror *Mirror, gatherer prometheus.Gatherer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	hub := NewHub(log)
	mirror.OnStatus(hub.Publish)
	return &Server{mirror: mirror, hub: hub, gatherer: gatherer, log: log}
}

// Run drives the stream hub until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	return s.hub.Run(ctx)
}

// RegisterRoutes registers all routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/view", s.handleView)
	mux.HandleFunc("GET /api/stream", s.hub.HandleWebSocket)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, s.mirror.View())
}

// handleHealth answers 503 while the backend is unreachable so a health check can
// tell a stuck dashboard from a live one.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.mirror.Status()
	resp := HealthResponse{OK: st != dashboard.StatusUnreachable, Status: st}
	if !resp.OK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			s.log.Error("encoding health response", "error", err)
		}
		return
	}
	writeJSON(w, resp)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}
