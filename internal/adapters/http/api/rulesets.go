package api

import (
	"net/http"

	model "github.com/okian/lifespan/internal/domain/model"
	"github.com/okian/lifespan/pkg/logger"
)

// RuleSetsHandler lists rule sets and switches the active one.
type RuleSetsHandler struct {
	deps Predictions
	log  logger.Logger
}

// NewRuleSetsHandler creates a new rule sets handler.
func NewRuleSetsHandler(deps Predictions, log logger.Logger) *RuleSetsHandler {
	return &RuleSetsHandler{deps: deps, log: log}
}

// HandleList handles GET /rulesets.
func (h *RuleSetsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.RuleSets(r.Context()))
}

// HandleActivate handles PUT /rulesets/active with a "name" field.
func (h *RuleSetsHandler) HandleActivate(w http.ResponseWriter, r *http.Request, user *model.User) {
	const op = "api.activate_ruleset"
	in, err := readFields(w, r)
	if err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	name, err := require(in, "name")
	if err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	if err := h.deps.ActivateRuleSet(r.Context(), user, name); err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.RuleSets(r.Context()))
}
