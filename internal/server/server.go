package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/jotter/internal/database"
	"github.com/dukerupert/jotter/internal/handler"
	"github.com/dukerupert/jotter/internal/middleware"
	"github.com/dukerupert/jotter/internal/spa"
	"github.com/dukerupert/jotter/internal/store"
	ws "github.com/dukerupert/jotter/internal/websocket"
)

type Config struct {
	StaticDir      string
	AllowedOrigins []string
}

type Server struct {
	db       *sql.DB
	hub      *ws.Hub
	noteH    *handler.NoteHandler
	assistH  *handler.AssistHandler
	registry *prometheus.Registry
	metrics  *middleware.Metrics
	cfg      Config
	logger   *slog.Logger
}

func New(db *sql.DB, backend database.Backend, assistant handler.Assistant, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	hub := ws.NewHub(logger)
	noteStore := store.NewNoteStore(db, backend)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, string(backend)),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "jotter_websocket_clients",
			Help: "Connected change feed clients",
		}, func() float64 { return float64(hub.ClientCount()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "jotter_websocket_dropped_events_total",
			Help: "Change feed events skipped for slow clients",
		}, func() float64 { return float64(hub.Dropped()) }),
	)

	return &Server{
		db:       db,
		hub:      hub,
		noteH:    handler.NewNoteHandler(noteStore, hub, logger),
		assistH:  handler.NewAssistHandler(noteStore, assistant, logger),
		registry: reg,
		metrics:  middleware.NewMetrics(reg),
		cfg:      cfg,
		logger:   logger,
	}
}

// Close disconnects change feed clients.
func (s *Server) Close() {
	s.hub.Close()
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Notes API routes
	mux.HandleFunc("GET /api/notes", s.noteH.List)
	mux.HandleFunc("POST /api/notes", s.noteH.Create)
	mux.HandleFunc("GET /api/notes/search", s.noteH.Search)
	mux.HandleFunc("GET /api/notes/{id}", s.noteH.Get)
	mux.HandleFunc("PUT /api/notes/{id}", s.noteH.Update)
	mux.HandleFunc("DELETE /api/notes/{id}", s.noteH.Delete)

	// LLM helpers
	mux.HandleFunc("POST /api/notes/translate", s.assistH.Translate)
	mux.HandleFunc("POST /api/notes/complete", s.assistH.Complete)

	// Anything else under /api is a JSON 404, never the SPA.
	mux.HandleFunc("/api/", s.apiNotFound)

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	mux.HandleFunc("GET /ws", ws.Handler(s.hub, s.cfg.AllowedOrigins))

	if !spa.HasIndex(s.cfg.StaticDir) {
		s.logger.Warn("static index missing, unmatched paths will 404", "dir", s.cfg.StaticDir)
	}
	mux.Handle("/", spa.New(s.cfg.StaticDir))

	var h http.Handler = mux
	h = middleware.CORS(s.cfg.AllowedOrigins)(h)
	h = s.metrics.Handler(h)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	h = middleware.RequestID(h)
	return h
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}` + "\n"))
		return
	}
	w.Write([]byte(`{"status":"ok"}` + "\n"))
}

func (s *Server) apiNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"not found"}` + "\n"))
}
