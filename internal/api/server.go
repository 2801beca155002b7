package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vaidashi/order-status-sync/internal/auth"
	"github.com/vaidashi/order-status-sync/internal/config"
	"github.com/vaidashi/order-status-sync/internal/models"
	"github.com/vaidashi/order-status-sync/internal/notice"
	"github.com/vaidashi/order-status-sync/internal/service"
	"github.com/vaidashi/order-status-sync/internal/session"
	"github.com/vaidashi/order-status-sync/pkg/circuitbreaker"
	"github.com/vaidashi/order-status-sync/pkg/logger"
	"github.com/vaidashi/order-status-sync/pkg/middleware"
)

// OrderStore is what the handlers need from the orders collection
type OrderStore interface {
	Get(ctx context.Context, id string) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) (string, error)
	Ping(ctx context.Context) (int, error)
}

// TrackingReader serves the public tracking lookup
type TrackingReader interface {
	Get(ctx context.Context, trackingID string) (*models.Tracking, error)
}

// BreakerReporter exposes the event publisher's circuit state on /health
type BreakerReporter interface {
	BreakerState() circuitbreaker.State
}

// Dependencies are the services the server routes to
type Dependencies struct {
	Auth      *auth.Authenticator
	Sessions  *session.Manager
	Orders    OrderStore
	Tracking  TrackingReader
	Status    *service.StatusService
	Notices   *notice.Board
	Metrics   http.Handler
	Publisher BreakerReporter
}

type Server struct {
	config      *config.Config
	logger      logger.Logger
	router      *mux.Router
	httpServer  *http.Server
	auth        *auth.Authenticator
	sessions    *session.Manager
	orders      OrderStore
	tracking    TrackingReader
	status      *service.StatusService
	notices     *notice.Board
	metrics     http.Handler
	publisher   BreakerReporter
	rateLimiter *middleware.RateLimiterMiddleware
}

// NewServer creates a new API server with the given configuration and logger.
func NewServer(cfg *config.Config, deps Dependencies, logger logger.Logger) *Server {
	r := mux.NewRouter()

	metrics := deps.Metrics
	if metrics == nil {
		metrics = http.NotFoundHandler()
	}

	server := &Server{
		router: r,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:    logger,
		config:    cfg,
		auth:      deps.Auth,
		sessions:  deps.Sessions,
		orders:    deps.Orders,
		tracking:  deps.Tracking,
		status:    deps.Status,
		notices:   deps.Notices,
		metrics:   metrics,
		publisher: deps.Publisher,
		rateLimiter: middleware.NewRateLimiterMiddleware(&middleware.RateLimiterConfig{
			IPMaxTokens:       cfg.Limits.TrackingBurst,
			IPRefillRate:      cfg.Limits.TrackingPerSecond,
			TrustForwardedFor: cfg.Limits.TrustForwardedFor,
		}, logger),
	}

	server.setupRoutes()

	return server
}

// Handler returns the root handler, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, then stops every session feed
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)

	s.sessions.Close()
	s.rateLimiter.Stop()

	return err
}

// setupRoutes configures all the routes for our API
func (s *Server) setupRoutes() {
	// Add middleware for all routes
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics).Methods(http.MethodGet)

	// Customer-facing lookup, no token but limited per address
	public := s.router.PathPrefix("/api/v1/tracking").Subrouter()
	public.Use(s.rateLimiter.Middleware)
	public.HandleFunc("/{trackingId}", s.getTrackingHandler).Methods(http.MethodGet)

	// Operator API
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.authMiddleware)

	api.HandleFunc("/session", s.signInHandler).Methods(http.MethodPost)
	api.HandleFunc("/session", s.signOutHandler).Methods(http.MethodDelete)
	api.HandleFunc("/ping", s.pingHandler).Methods(http.MethodGet)
	api.HandleFunc("/notice", s.noticeHandler).Methods(http.MethodGet)

	api.HandleFunc("/orders", s.getOrdersHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders", s.createOrderHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/filter", s.setFilterHandler).Methods(http.MethodPut)
	api.HandleFunc("/orders/page/next", s.nextPageHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/page/prev", s.prevPageHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}/advance", s.advanceOrderHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}/cancel", s.cancelOrderHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}/status", s.updateOrderStatusHandler).Methods(http.MethodPatch)
}

// Middleware for logging requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Info("Request processed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
			"remoteAddr", r.RemoteAddr,
		)
	})
}

// authMiddleware rejects requests without a valid bearer token and stores
// the caller's identity in the request context
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.auth.FromHeader(r.Header.Get("Authorization"))
		if err != nil {
			s.logger.Debug("Rejected request", "path", r.URL.Path, "error", err)
			s.respondWithError(w, http.StatusUnauthorized, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}
