package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/anirudhshenoy/nanobot/internal/config"
	"github.com/anirudhshenoy/nanobot/internal/providers"
	"github.com/anirudhshenoy/nanobot/internal/security"
)

// Dispatcher is the routing surface the server exposes over HTTP.
type Dispatcher interface {
	Chat(ctx context.Context, messages []providers.Message, tools []providers.ToolDef, model string, maxTokens int, temperature float64) *providers.Response
	DescribeRouting(query string) string
	LastProvider() string
}

// Server is the HTTP API server
type Server struct {
	cfg        *config.Config
	dispatcher Dispatcher
	health     *providers.HealthRegistry
	version    string
	startTime  time.Time
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, dispatcher Dispatcher, health *providers.HealthRegistry, version string, logger *slog.Logger) *Server {
	return &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		health:     health,
		version:    version,
		startTime:  time.Now(),
		logger:     logger.With("component", "api"),
	}
}

// Handler builds the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Register routes
	mux.HandleFunc("/v1/chat", s.handleChat)
	mux.HandleFunc("/api/routing", s.handleRouting)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)

	secret := security.ResolveSecret(s.cfg.Server.AuthSecret)
	if secret == nil {
		s.logger.Warn("API authentication disabled: no auth secret configured")
	}
	auth := security.AuthMiddleware(secret)

	return s.corsMiddleware(s.loggingMiddleware(auth(mux)))
}

// Start starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "addr", s.httpServer.Addr)

	// Run server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// loggingMiddleware assigns a request id and logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()[:8]
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
