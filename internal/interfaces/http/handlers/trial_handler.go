package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	appsync "github.com/trialsync/trialsync/internal/application/sync"
	"github.com/trialsync/trialsync/internal/domain/trial"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
	apperrors "github.com/trialsync/trialsync/pkg/errors"
	"github.com/trialsync/trialsync/pkg/types/common"
)

// TrialHandler serves stored trials and the registry sync endpoints.
type TrialHandler struct {
	trials trial.Repository
	syncer appsync.Service
	logger logging.Logger
}

// NewTrialHandler builds the handler.
func NewTrialHandler(trials trial.Repository, syncer appsync.Service, logger logging.Logger) *TrialHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TrialHandler{trials: trials, syncer: syncer, logger: logger.Named("trial_handler")}
}

// List handles GET /api/v1/trials.
func (h *TrialHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePagination(r)
	records, err := h.trials.List(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{
		"trials":    records,
		"page":      page.Page,
		"page_size": page.PageSize,
	})
}

// Get handles GET /api/v1/trials/{trialID}.  NCT-prefixed identifiers are
// looked up by their registry ID.
func (h *TrialHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "trialID")

	var (
		rec *trial.Record
		err error
	)
	if strings.HasPrefix(strings.ToUpper(id), "NCT") {
		rec, err = h.trials.GetByNCTID(r.Context(), strings.ToUpper(id))
	} else {
		rec, err = h.trials.GetByID(r.Context(), common.ID(id))
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, rec)
}

// Sync handles POST /api/v1/trials/sync.
func (h *TrialHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if h.syncer == nil {
		writeError(w, r, apperrors.New(apperrors.ErrCodeServiceUnavailable, "registry sync is not configured"))
		return
	}

	var req appsync.Request
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Condition == "" {
		writeError(w, r, apperrors.New(apperrors.ErrCodeBadRequest, "condition is required"))
		return
	}

	out, err := h.syncer.SyncTrials(r.Context(), req)
	if err != nil {
		h.logger.Warn("trial sync failed", logging.String("condition", req.Condition), logging.Err(err))
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, out)
}

// Search handles GET /api/v1/trials/search: a registry preview that
// persists nothing.
func (h *TrialHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h.syncer == nil {
		writeError(w, r, apperrors.New(apperrors.ErrCodeServiceUnavailable, "registry sync is not configured"))
		return
	}

	q := r.URL.Query()
	req := appsync.Request{Condition: q.Get("condition")}
	if req.Condition == "" {
		writeError(w, r, apperrors.New(apperrors.ErrCodeBadRequest, "condition is required"))
		return
	}
	if statuses := q["status"]; len(statuses) > 0 {
		req.Statuses = statuses
	}
	if phases := q["phase"]; len(phases) > 0 {
		req.Phases = phases
	}
	if v := q.Get("max"); v != "" {
		if max, err := strconv.Atoi(v); err == nil {
			req.MaxStudies = max
		}
	}

	records, err := h.syncer.SearchTrials(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{
		"trials": records,
		"count":  len(records),
	})
}
