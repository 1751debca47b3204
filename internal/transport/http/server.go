package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP host surface
type Server struct {
	handler *Handler
	router  *mux.Router
	server  *http.Server
	port    string
	logger  *zap.Logger
}

// Options configures the server
type Options struct {
	Port    string
	Verbose bool
	// Gatherer backs /metrics; nil disables the endpoint
	Gatherer prometheus.Gatherer
	// Limiter throttles /api routes per client; nil disables limiting
	Limiter *RateLimiter
}

// NewServer creates a new HTTP server
func NewServer(handler *Handler, logger *zap.Logger, opts Options) *Server {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/credentials/validate", handler.ValidateCredentials).Methods(http.MethodPost)
	api.HandleFunc("/invoke", handler.Invoke).Methods(http.MethodPost)
	if opts.Limiter != nil {
		api.Use(opts.Limiter.Middleware)
	}

	router.HandleFunc("/healthz", handler.Health).Methods(http.MethodGet)
	if opts.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	router.Use(NewLoggingMiddleware(logger, opts.Verbose).Middleware)

	server := &http.Server{
		Addr:         ":" + opts.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		handler: handler,
		router:  router,
		server:  server,
		port:    opts.Port,
		logger:  logger,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("server starting", zap.String("port", s.port))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.server.Shutdown(ctx)
}

// Port returns the server port
func (s *Server) Port() string {
	return s.port
}

// Router returns the root handler (useful for testing)
func (s *Server) Router() http.Handler {
	return s.router
}

// Handler returns the server handler (useful for testing)
func (s *Server) Handler() *Handler {
	return s.handler
}
