package api

import (
	"net/http"

	service "github.com/okian/lifespan/internal/app"
	model "github.com/okian/lifespan/internal/domain/model"
	"github.com/okian/lifespan/internal/domain/types"
	"github.com/okian/lifespan/pkg/logger"
)

// UserHandlerFunc is a handler that runs for an authenticated user.
type UserHandlerFunc func(w http.ResponseWriter, r *http.Request, user *model.User)

// AuthHandler handles account requests.
type AuthHandler struct {
	deps       Accounts
	log        logger.Logger
	trustProxy bool
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(deps Accounts, log logger.Logger) *AuthHandler {
	return &AuthHandler{deps: deps, log: log}
}

// RequireUser resolves the bearer token and passes the user to next.
// Requests without a valid session get 401.
func (h *AuthHandler) RequireUser(next UserHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", service.ErrUnauthorized)
			return
		}
		user, err := h.deps.Authenticate(r.Context(), token)
		if err != nil {
			respondError(r.Context(), h.log, w, "api.authenticate", err)
			return
		}
		next(w, r, user)
	}
}

// HandleRegister handles POST /auth/register.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register"
	in, err := readFields(w, r)
	if err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	u, err := h.deps.Register(r.Context(), field(in, "name"), field(in, "email"), in.Get("password"))
	if err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.NewUser(u))
}

// HandleLogin handles POST /auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.login"
	in, err := readFields(w, r)
	if err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	email, err := require(in, "email")
	if err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	login, err := h.deps.Login(r.Context(), email, in.Get("password"), clientAddr(r, h.trustProxy))
	if err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, login)
}

// HandleLogout handles POST /auth/logout. It succeeds without a session.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Logout(r.Context(), bearerToken(r)); err != nil {
		respondError(r.Context(), h.log, w, "api.logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleForgot handles POST /auth/forgot.
func (h *AuthHandler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	const op = "api.forgot"
	in, err := readFields(w, r)
	if err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	email, err := require(in, "email")
	if err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	if err := h.deps.ForgotPassword(r.Context(), email); err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "code_sent"})
}

// HandleReset handles POST /auth/reset.
func (h *AuthHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	const op = "api.reset"
	in, err := readFields(w, r)
	if err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	email, err := require(in, "email")
	if err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	code, err := require(in, "code")
	if err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	if err := h.deps.ResetPassword(r.Context(), email, code, in.Get("password")); err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
