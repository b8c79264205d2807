package api

import (
	"net/http"
	"strconv"

	"github.com/okian/lifespan/internal/adapters/render"
	"github.com/okian/lifespan/internal/domain/intake"
	model "github.com/okian/lifespan/internal/domain/model"
	"github.com/okian/lifespan/internal/domain/types"
	"github.com/okian/lifespan/pkg/logger"
)

// IdempotencyKeyHeader lets clients retry a submission safely.
const IdempotencyKeyHeader = "Idempotency-Key"

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// PredictionsHandler handles scoring and history requests.
type PredictionsHandler struct {
	deps Predictions
	log  logger.Logger
}

// NewPredictionsHandler creates a new predictions handler.
func NewPredictionsHandler(deps Predictions, log logger.Logger) *PredictionsHandler {
	return &PredictionsHandler{deps: deps, log: log}
}

// HandleScore handles POST /score: an unsaved estimate with its explanation.
// The rule set may be chosen with a "ruleset" field or query parameter.
func (h *PredictionsHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.score"
	in, err := readFields(w, r)
	if err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	if err := intake.Validate(in); err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	ruleset := field(in, "ruleset")
	if ruleset == "" {
		ruleset = r.URL.Query().Get("ruleset")
	}
	preview, err := h.deps.Preview(r.Context(), intake.Coerce(in), ruleset)
	if err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// HandleCreate handles POST /predictions.
func (h *PredictionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request, user *model.User) {
	const op = "api.create_prediction"
	in, err := readFields(w, r)
	if err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	if err := intake.Validate(in); err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	key := r.Header.Get(IdempotencyKeyHeader)
	if key == "" {
		key = field(in, "idempotency_key")
	}
	sub, err := h.deps.Predict(r.Context(), user, intake.Coerce(in), key)
	if err != nil {
		respondError(r.Context(), h.log, w, op, err)
		return
	}
	if sub.Duplicate {
		writeJSON(w, http.StatusOK, sub)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// HandleList handles GET /predictions?limit=n.
func (h *PredictionsHandler) HandleList(w http.ResponseWriter, r *http.Request, user *model.User) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}
	list, err := h.deps.List(r.Context(), user, limit)
	if err != nil {
		respondError(r.Context(), h.log, w, "api.list_predictions", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleGet handles GET /predictions/{id}.
func (h *PredictionsHandler) HandleGet(w http.ResponseWriter, r *http.Request, user *model.User) {
	p, err := h.deps.Get(r.Context(), user, r.PathValue("id"))
	if err != nil {
		respondError(r.Context(), h.log, w, "api.get_prediction", err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewPrediction(p))
}

// HandleExportPDF handles GET /predictions/{id}/pdf.
func (h *PredictionsHandler) HandleExportPDF(w http.ResponseWriter, r *http.Request, user *model.User) {
	id := r.PathValue("id")
	body, err := h.deps.ExportPDF(r.Context(), user, id)
	if err != nil {
		respondError(r.Context(), h.log, w, "api.export_pdf", err)
		return
	}
	writeAttachment(w, render.PDFContentType, "prediction-"+id+".pdf", body)
}

// HandleExportXLSX handles GET /predictions/export.xlsx.
func (h *PredictionsHandler) HandleExportXLSX(w http.ResponseWriter, r *http.Request, user *model.User) {
	body, err := h.deps.ExportXLSX(r.Context(), user)
	if err != nil {
		respondError(r.Context(), h.log, w, "api.export_xlsx", err)
		return
	}
	writeAttachment(w, render.XLSXContentType, "predictions.xlsx", body)
}
