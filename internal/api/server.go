package api

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/aleister1102/dataspy/internal/config"
	"github.com/aleister1102/dataspy/internal/datastore"
	"github.com/aleister1102/dataspy/internal/models"
	"github.com/aleister1102/dataspy/internal/monitor"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Monitor is the part of the monitoring service exposed over HTTP.
type Monitor interface {
	AddTask(ctx context.Context, task models.MonitorTask) error
	RemoveTask(ctx context.Context, id string) error
	GetTask(id string) (models.MonitorTask, error)
	ListTasks(enabledOnly bool) []models.MonitorTask
	CheckNow(ctx context.Context, id string) (models.CheckOutcome, error)
	GetEvents(ctx context.Context, taskID string, limit int) ([]models.ChangeEvent, error)
	Stats() monitor.StatsSnapshot
}

// Exporter streams event history as Parquet.
type Exporter interface {
	Export(ctx context.Context, w io.Writer, q datastore.EventQuery) (int, error)
}

// Server serves the query interface.
type Server struct {
	cfg      config.APIConfig
	monitor  Monitor
	exporter Exporter
	now      func() time.Time
	logger   zerolog.Logger
	router   chi.Router
	http     *http.Server
}

// Option customizes a Server.
type Option func(*Server)

// WithExporter enables GET /api/events/export.
func WithExporter(x Exporter) Option {
	return func(s *Server) { s.exporter = x }
}

// WithClock overrides the time source used for new tasks.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer creates a server and its routes.
func NewServer(cfg config.APIConfig, m Monitor, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		monitor: m,
		now:     time.Now,
		logger:  logger.With().Str("component", "APIServer").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Post("/", s.handleUpsertTask)
			r.Get("/{id}", s.handleGetTask)
			r.Delete("/{id}", s.handleDeleteTask)
			r.Post("/{id}/check", s.handleCheckTask)
		})
		r.Get("/events", s.handleListEvents)
		r.Get("/events/export", s.handleExportEvents)
		r.Get("/stats", s.handleStats)
	})
	return r
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.cfg.ListenAddr
	if addr == "" {
		addr = config.DefaultAPIListenAddr
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("API server listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		s.logger.Info().Msg("Shutting down API server")
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
