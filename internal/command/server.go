package command

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const maxUpdateBytes = 1 << 20

// webhookPaths accepts the webhook URL with and without a trailing slash.
var webhookPaths = []string{"/api/webhook", "/api/webhook/"}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string
	// Handler is nil when webhook updates are not accepted.
	Handler         *Handler
	Gatherer        prometheus.Gatherer
	ShutdownTimeout time.Duration
}

// Server exposes liveness, metrics and the optional webhook.
type Server struct {
	router  *mux.Router
	server  *http.Server
	handler *Handler
	cfg     ServerConfig
	logger  *zap.Logger
}

func NewServer(cfg ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	s := &Server{
		router:  mux.NewRouter(),
		handler: cfg.Handler,
		cfg:     cfg,
		logger:  logger,
	}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestLoggingMiddleware)

	s.router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	for _, path := range webhookPaths {
		s.router.HandleFunc(path, s.home).Methods(http.MethodGet)
		if s.handler != nil {
			s.router.HandleFunc(path, s.webhook).Methods(http.MethodPost)
		}
	}
	if s.cfg.Gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (s *Server) home(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Bot is running!")
}

func (s *Server) webhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	dec := json.NewDecoder(io.LimitReader(r.Body, maxUpdateBytes))
	if err := dec.Decode(&update); err != nil {
		s.logger.Warn("invalid webhook update", zap.String("kind", "malformed_payload"), zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error"})
		return
	}
	s.logger.Debug("received update", zap.Int("update_id", update.UpdateID))
	s.handler.HandleUpdate(context.WithoutCancel(r.Context()), update)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapper.statusCode),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
