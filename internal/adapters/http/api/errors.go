package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/okian/lifespan/internal/app"
	"github.com/okian/lifespan/internal/domain/intake"
	model "github.com/okian/lifespan/internal/domain/model"
	scoring "github.com/okian/lifespan/internal/domain/scoring"
	"github.com/okian/lifespan/pkg/logger"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrBodyTooBig = errors.New("request body too large")
)

type errorKind struct {
	target error
	status int
	code   string
}

var errorKinds = []errorKind{
	{service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{service.ErrForbidden, http.StatusForbidden, "forbidden"},
	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrEmailTaken, http.StatusConflict, "email_taken"},
	{service.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{service.ErrInvalidResetCode, http.StatusBadRequest, "invalid_reset_code"},
	{scoring.ErrUnknownRuleSet, http.StatusBadRequest, "unknown_ruleset"},
	{scoring.ErrInvalidRuleSet, http.StatusBadRequest, "invalid_ruleset"},
	{intake.ErrMissing, http.StatusBadRequest, "missing_field"},
	{intake.ErrInvalid, http.StatusBadRequest, "invalid_field"},
	{intake.ErrMalformed, http.StatusBadRequest, "malformed_body"},
	{ErrBodyTooBig, http.StatusRequestEntityTooLarge, "body_too_large"},
	{ErrBadRequest, http.StatusBadRequest, "bad_request"},
	{model.ErrNameRequired, http.StatusBadRequest, "invalid_field"},
	{model.ErrEmailRequired, http.StatusBadRequest, "invalid_field"},
	{model.ErrEmailInvalid, http.StatusBadRequest, "invalid_field"},
	{model.ErrPasswordTooShort, http.StatusBadRequest, "invalid_field"},
}

// classify maps an error to its HTTP status and code. Unknown errors are
// internal.
func classify(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// respondError writes err with the status it maps to. Internal errors are
// logged and reported without detail.
func respondError(ctx context.Context, log logger.Logger, w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		log.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}
