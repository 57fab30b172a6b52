package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"va-bridge/internal/config"
	"va-bridge/internal/log"
	"va-bridge/internal/sparkcentral"
	"va-bridge/internal/types"
	"va-bridge/internal/worker"
)

// shutdownTimeout bounds draining of HTTP connections and background tasks.
const shutdownTimeout = 15 * time.Second

type Server struct {
	router   *chi.Mux
	cfg      config.Config
	verifier *sparkcentral.Verifier
	deps     Deps
	pool     *worker.Pool
	logger   *slog.Logger
	server   *http.Server
}

func NewServer(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Detector == nil || deps.Messenger == nil {
		return nil, errors.New("server: detector and messenger are required")
	}
	verifier, err := sparkcentral.NewVerifier(cfg.WebhookSecret)
	if err != nil {
		return nil, err
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 1 << 20
	}
	if cfg.GIFTrigger == "" {
		cfg.GIFTrigger = "gif:"
	}
	logger := log.WithComponent("server")
	s := &Server{
		router:   chi.NewRouter(),
		cfg:      cfg,
		verifier: verifier,
		deps:     deps,
		pool:     worker.New(cfg.WorkerPoolSize, log.WithComponent("worker")),
		logger:   logger,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{s.cfg.AllowedOrigin},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", sparkcentral.SignatureHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.With(s.verifySignature).Post("/webhook", s.handleWebhook)
}

func (s *Server) Router() http.Handler { return s.router }

// Run serves on cfg.Port until ctx is cancelled, then drains connections and background tasks.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("server starting", "addr", s.server.Addr, "intent_backend", s.cfg.IntentBackend, "gif_enabled", s.deps.Media != nil)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		httpErr := s.server.Shutdown(shutdownCtx)
		poolErr := s.pool.Shutdown(shutdownCtx)
		if err := errors.Join(httpErr, poolErr); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		_ = s.pool.Shutdown(context.Background())
		return fmt.Errorf("server error: %w", err)
	}
}

// Shutdown waits for queued background tasks. Run does this itself on cancellation.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.pool.Shutdown(ctx)
}

// loggingMiddleware logs every request without its body.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.respondJSON(w, code, types.ErrorResponse{Error: msg})
}
