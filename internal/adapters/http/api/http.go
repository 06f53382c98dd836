// Package api exposes the tweets resource over HTTP.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/tweets/internal/adapters/http/swagger"
	"github.com/okian/tweets/pkg/logger"
	"github.com/okian/tweets/pkg/metrics"
)

// DefaultPathPrefix is where the tweet routes are mounted unless configured.
const DefaultPathPrefix = "/tweets"

// Server wires HTTP routes for the tweets API.
type Server struct {
	tweetsHandler *TweetsHandler
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	gate          *ValidationGate

	prefix         string
	requestTimeout time.Duration
	docs           bool
}

// Option configures a Server.
type Option func(*Server)

// WithPathPrefix mounts the tweet routes under prefix. "" or "/" mounts them
// at the root.
func WithPathPrefix(prefix string) Option {
	return func(s *Server) {
		s.prefix = strings.TrimRight(prefix, "/")
	}
}

// WithRequestTimeout bounds each request's context.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.requestTimeout = d }
}

// WithHealthChecker makes /healthz ping checker.
func WithHealthChecker(checker HealthChecker) Option {
	return func(s *Server) { s.healthHandler = NewHealthHandler(checker) }
}

// WithoutDocs skips the /api-docs and /openapi.yaml routes.
func WithoutDocs() Option {
	return func(s *Server) { s.docs = false }
}

// NewServer creates a new API server. store is the only collaborator the
// tweet handlers talk to; validator backs the validation gate.
func NewServer(store TweetStore, validator InputValidator, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		tweetsHandler: NewTweetsHandler(store),
		healthHandler: NewHealthHandler(nil),
		statsHandler:  NewStatsHandler(statsProvider),
		gate:          NewValidationGate(validator),
		prefix:        DefaultPathPrefix,
		docs:          true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all routes to router.
func (s *Server) Register(router *mux.Router) {
	router.NotFoundHandler = http.HandlerFunc(handleRouteNotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)

	router.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	router.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	if s.docs {
		swagger.Register(router)
	}

	tweets := router
	if s.prefix != "" {
		tweets = router.PathPrefix(s.prefix).Subrouter()
		tweets.NotFoundHandler = router.NotFoundHandler
		tweets.MethodNotAllowedHandler = router.MethodNotAllowedHandler
	}

	collection := []string{"/"}
	if s.prefix != "" {
		collection = append(collection, "")
	}
	for _, path := range collection {
		tweets.HandleFunc(path, MetricsMiddleware(s.tweetsHandler.HandleList, "tweets.list")).Methods(http.MethodGet)
		tweets.HandleFunc(path, MetricsMiddleware(s.gate.Wrap(s.tweetsHandler.HandleCreate), "tweets.create")).Methods(http.MethodPost)
	}

	const item = "/{id:[0-9]+}"
	tweets.HandleFunc(item, MetricsMiddleware(s.tweetsHandler.HandleGet, "tweets.get")).Methods(http.MethodGet)
	tweets.HandleFunc(item, MetricsMiddleware(s.gate.Wrap(s.tweetsHandler.HandleUpdate), "tweets.update")).Methods(http.MethodPut)
	tweets.HandleFunc(item, MetricsMiddleware(s.tweetsHandler.HandleDelete, "tweets.delete")).Methods(http.MethodDelete)
}

// Handler returns the full HTTP handler: routes plus request id, access log,
// timeout, compression and panic recovery.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	s.Register(router)

	var h http.Handler = router
	h = Timeout(s.requestTimeout)(h)
	h = AccessLog(h)
	h = RequestID(h)
	h = handlers.CompressHandler(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{log: logger.Get().Named("recovery")}),
	)(h)
	return h
}

func handleRouteNotFound(w http.ResponseWriter, r *http.Request) {
	MetricsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		reportError(w, r, NewKind("api.route", ErrRouteNotFound))
	}, "not_found")(w, r)
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	MetricsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		reportError(w, r, NewKind("api.route", ErrMethodNotAllowed))
	}, "method_not_allowed")(w, r)
}

// recoveryLogger adapts the structured logger to gorilla's RecoveryHandlerLogger.
type recoveryLogger struct {
	log logger.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.log.Error(context.Background(), "panic recovered", logger.Any("panic", v))
}
