package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trialsync/trialsync/internal/domain/patient"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
	"github.com/trialsync/trialsync/pkg/types/common"
)

// PatientHandler serves read access to stored patient profiles.
type PatientHandler struct {
	patients patient.Repository
	logger   logging.Logger
}

// NewPatientHandler builds the handler.
func NewPatientHandler(patients patient.Repository, logger logging.Logger) *PatientHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &PatientHandler{patients: patients, logger: logger.Named("patient_handler")}
}

// List handles GET /api/v1/patients.
func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parsePagination(r)
	profiles, err := h.patients.List(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{
		"patients":  profiles,
		"page":      page.Page,
		"page_size": page.PageSize,
	})
}

// Get handles GET /api/v1/patients/{patientID}.
func (h *PatientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := common.ID(chi.URLParam(r, "patientID"))
	profile, err := h.patients.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, profile)
}
