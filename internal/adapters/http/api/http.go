// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/okian/stagely/internal/domain/model"
	"github.com/okian/stagely/internal/domain/types"
	"github.com/okian/stagely/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider

	Ping(ctx context.Context) error

	// Read operations.
	Timeline(ctx context.Context, festivalID string) (types.Timeline, error)
	HeatMap(ctx context.Context, groupID, dayID string) (types.HeatMap, error)
	Plan(ctx context.Context, groupID, dayID, viewer string) (types.Plan, error)
	Rating(ctx context.Context, memberID, performanceID string) (types.Rating, error)

	// Rating writes.
	SetRating(ctx context.Context, w types.RatingWrite, t model.Tier) (types.Rating, error)
	ClearRating(ctx context.Context, w types.RatingWrite) (types.Rating, error)
	ToggleRating(ctx context.Context, w types.RatingWrite) (types.Rating, error)
}

// Server wires HTTP routes for the planner API.
type Server struct {
	auth          *Authenticator
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	planHandler   *PlanHandler
	ratingHandler *RatingHandler
	logger        logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithJWTSecret enables bearer token authentication.
func WithJWTSecret(secret string) Option {
	return func(s *Server) {
		s.auth = NewAuthenticator(secret)
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		auth:          NewAuthenticator(""),
		healthHandler: NewHealthHandler(deps),
		statsHandler:  NewStatsHandler(deps),
		planHandler:   NewPlanHandler(deps),
		ratingHandler: NewRatingHandler(deps),
		logger:        logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(Metrics)
	r.Use(s.logFailures)
	r.Use(s.auth.Middleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/metrics", s.healthHandler.HandleMetrics)
	r.Get("/stats", s.statsHandler.HandleStats)

	r.Get("/festivals/{festivalID}/timeline", s.planHandler.HandleTimeline)
	r.Route("/groups/{groupID}/days/{dayID}", func(r chi.Router) {
		r.Get("/heatmap", s.planHandler.HandleHeatMap)
		r.Get("/plan", s.planHandler.HandlePlan)
	})
	r.Route("/performances/{performanceID}/rating", func(r chi.Router) {
		r.Get("/", s.ratingHandler.HandleGet)
		r.Put("/", s.ratingHandler.HandlePut)
		r.Delete("/", s.ratingHandler.HandleDelete)
		r.Post("/toggle", s.ratingHandler.HandleToggle)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Code: "not_found", Message: "no such route"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Code: "method_not_allowed", Message: "method not allowed"})
	})
	return r
}

// logFailures logs requests that ended in a server error.
func (s *Server) logFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		if wrapped.statusCode >= statusInternalError {
			s.logger.Warn(r.Context(), "request failed",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", wrapped.statusCode),
				logger.String("request_id", w.Header().Get(HeaderRequestID)),
			)
		}
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code, name := status(err)
	msg := http.StatusText(code)
	if code < http.StatusInternalServerError && err != nil {
		msg = err.Error()
	}
	writeJSON(w, code, errorResponse{Code: name, Message: msg})
}
