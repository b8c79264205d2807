// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"

	model "github.com/okian/lifespan/internal/domain/model"
	scoring "github.com/okian/lifespan/internal/domain/scoring"
	"github.com/okian/lifespan/internal/domain/types"
	"github.com/okian/lifespan/pkg/logger"
)

// Accounts covers registration, sessions and password resets.
type Accounts interface {
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password, client string) (types.Login, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*model.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, password string) error
}

// Predictions covers scoring, history and exports.
type Predictions interface {
	Predict(ctx context.Context, user *model.User, profile scoring.HealthProfile, idempotencyKey string) (types.Submission, error)
	Preview(ctx context.Context, profile scoring.HealthProfile, ruleset string) (types.Preview, error)
	Get(ctx context.Context, user *model.User, id string) (*model.Prediction, error)
	List(ctx context.Context, user *model.User, limit int) (types.PredictionList, error)
	ExportPDF(ctx context.Context, user *model.User, id string) ([]byte, error)
	ExportXLSX(ctx context.Context, user *model.User) ([]byte, error)
	RuleSets(ctx context.Context) types.RuleSets
	ActivateRuleSet(ctx context.Context, user *model.User, name string) error
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Accounts
	Predictions
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	authHandler        *AuthHandler
	predictionsHandler *PredictionsHandler
	ruleSetsHandler    *RuleSetsHandler
}

// Option configures a Server.
type Option func(*Server)

// WithTrustProxy makes login throttling identify callers by the address a
// fronting proxy appended to X-Forwarded-For instead of the peer address.
func WithTrustProxy(trust bool) Option {
	return func(s *Server) {
		s.authHandler.trustProxy = trust
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	log := logger.Named("api")
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		authHandler:        NewAuthHandler(deps, log),
		predictionsHandler: NewPredictionsHandler(deps, log),
		ruleSetsHandler:    NewRuleSetsHandler(deps, log),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleHealth, "metrics"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /auth/register", MetricsMiddleware(s.authHandler.HandleRegister, "auth_register"))
	mux.HandleFunc("POST /auth/login", MetricsMiddleware(s.authHandler.HandleLogin, "auth_login"))
	mux.HandleFunc("POST /auth/logout", MetricsMiddleware(s.authHandler.HandleLogout, "auth_logout"))
	mux.HandleFunc("POST /auth/forgot", MetricsMiddleware(s.authHandler.HandleForgot, "auth_forgot"))
	mux.HandleFunc("POST /auth/reset", MetricsMiddleware(s.authHandler.HandleReset, "auth_reset"))

	p := s.predictionsHandler
	mux.HandleFunc("POST /score", MetricsMiddleware(p.HandleScore, "score"))
	mux.HandleFunc("POST /predictions", MetricsMiddleware(s.authHandler.RequireUser(p.HandleCreate), "predictions_create"))
	mux.HandleFunc("GET /predictions", MetricsMiddleware(s.authHandler.RequireUser(p.HandleList), "predictions_list"))
	mux.HandleFunc("GET /predictions/export.xlsx", MetricsMiddleware(s.authHandler.RequireUser(p.HandleExportXLSX), "predictions_xlsx"))
	mux.HandleFunc("GET /predictions/{id}", MetricsMiddleware(s.authHandler.RequireUser(p.HandleGet), "predictions_get"))
	mux.HandleFunc("GET /predictions/{id}/pdf", MetricsMiddleware(s.authHandler.RequireUser(p.HandleExportPDF), "predictions_pdf"))

	mux.HandleFunc("GET /rulesets", MetricsMiddleware(s.ruleSetsHandler.HandleList, "rulesets"))
	mux.HandleFunc("PUT /rulesets/active", MetricsMiddleware(s.authHandler.RequireUser(s.ruleSetsHandler.HandleActivate), "rulesets_activate"))
}

// Handler wraps mux with the request-scoped middleware.
func (s *Server) Handler(mux *http.ServeMux) http.Handler {
	return RequestIDMiddleware(mux)
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

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
