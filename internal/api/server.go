// Package api serves forecasts over HTTP.
package api

import (
	"context"
	"io"
	"log"
	"net/http"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"demand-forecast/internal/artifact"
	"demand-forecast/internal/domain"
	"demand-forecast/internal/observability"
)

// Forecaster is the engine surface the API needs.
type Forecaster interface {
	ForecastSeries(ctx context.Context, productID string, horizon int) (*domain.ForecastSeries, error)
	Products(ctx context.Context) ([]string, error)
	Info(ctx context.Context) (artifact.Info, error)
}

// Reloader rebuilds the active artifact.
type Reloader interface {
	Reload(ctx context.Context) (*artifact.Artifact, error)
}

// Published exposes the active artifact without resolving one.
type Published interface {
	Current() *artifact.Artifact
}

// Server holds the HTTP handlers.
type Server struct {
	forecaster     Forecaster
	reloader       Reloader
	artifacts      Published
	allowed        []int
	defaultHorizon int
	limiter        *rate.Limiter
	accessLog      io.Writer
	logger         *log.Logger

	started  time.Time
	requests atomic.Int64
	limited  atomic.Int64
}

// Options configures a Server.
type Options struct {
	Forecaster Forecaster
	// Reloader enables POST /model/reload. Optional.
	Reloader Reloader
	// Artifacts reports the published artifact on /status. Optional.
	Artifacts Published
	// AllowedHorizons lists the horizons /forecast accepts.
	AllowedHorizons []int
	// DefaultHorizon is used when the horizon parameter is absent.
	DefaultHorizon int
	// RateLimit is requests per second on the forecast routes. 0 disables limiting.
	RateLimit float64
	Burst     int
	// AccessLog receives Apache combined log lines. Nil disables access logging.
	AccessLog io.Writer
	Logger    *log.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	allowed := append([]int(nil), opts.AllowedHorizons...)
	sort.Ints(allowed)

	s := &Server{
		forecaster:     opts.Forecaster,
		reloader:       opts.Reloader,
		artifacts:      opts.Artifacts,
		allowed:        allowed,
		defaultHorizon: opts.DefaultHorizon,
		accessLog:      opts.AccessLog,
		logger:         logger,
		started:        time.Now(),
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return s
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(s.rateLimit)
	api.HandleFunc("/products", s.handleProducts).Methods(http.MethodGet)
	api.HandleFunc("/forecast/{product}", s.handleForecast).Methods(http.MethodGet)
	api.HandleFunc("/model", s.handleModel).Methods(http.MethodGet)
	if s.reloader != nil {
		api.HandleFunc("/model/reload", s.handleReload).Methods(http.MethodPost)
	}

	var h http.Handler = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
	)(r)
	if s.accessLog != nil {
		h = handlers.CombinedLoggingHandler(s.accessLog, h)
	}
	return h
}

// instrument records request counts by route template and status code.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		m := httpsnoop.CaptureMetrics(next, w, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		observability.RecordHTTPRequest(route, strconv.Itoa(m.Code))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			s.limited.Add(1)
			observability.RecordRateLimited()
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
