package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appmatching "github.com/trialsync/trialsync/internal/application/matching"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
	"github.com/trialsync/trialsync/pkg/types/common"
)

// MatchHandler exposes the matching service over HTTP.
type MatchHandler struct {
	service appmatching.Service
	logger  logging.Logger
}

// NewMatchHandler builds the handler.
func NewMatchHandler(service appmatching.Service, logger logging.Logger) *MatchHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &MatchHandler{service: service, logger: logger.Named("match_handler")}
}

type matchRequest struct {
	MinScore *int `json:"min_score,omitempty"`
}

// MatchPatient handles POST /api/v1/match/patients/{patientID}.
func (h *MatchHandler) MatchPatient(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	id := common.ID(chi.URLParam(r, "patientID"))
	out, err := h.service.MatchPatient(r.Context(), id, appmatching.MatchInput{MinScore: req.MinScore})
	if err != nil {
		h.logger.Warn("patient match failed", logging.String("patient_id", id.String()), logging.Err(err))
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, out)
}

// MatchTrial handles POST /api/v1/match/trials/{trialID}.
func (h *MatchHandler) MatchTrial(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	id := common.ID(chi.URLParam(r, "trialID"))
	out, err := h.service.MatchTrial(r.Context(), id, appmatching.MatchInput{MinScore: req.MinScore})
	if err != nil {
		h.logger.Warn("trial match failed", logging.String("trial_id", id.String()), logging.Err(err))
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, out)
}

// MatchAll handles POST /api/v1/match/all.
func (h *MatchHandler) MatchAll(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.service.MatchAll(r.Context(), appmatching.MatchInput{MinScore: req.MinScore})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, out)
}

// MatchFuture handles POST /api/v1/match/patients/{patientID}/future.
func (h *MatchHandler) MatchFuture(w http.ResponseWriter, r *http.Request) {
	id := common.ID(chi.URLParam(r, "patientID"))
	out, err := h.service.MatchFuture(r.Context(), id)
	if err != nil {
		h.logger.Warn("progression match failed", logging.String("patient_id", id.String()), logging.Err(err))
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, out)
}
