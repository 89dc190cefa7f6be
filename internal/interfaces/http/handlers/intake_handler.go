package handlers

import (
	"net/http"

	"github.com/trialsync/trialsync/internal/application/intake"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
)

// IntakeHandler accepts transcript sessions for profile extraction.
type IntakeHandler struct {
	service intake.Service
	logger  logging.Logger
}

// NewIntakeHandler builds the handler.
func NewIntakeHandler(service intake.Service, logger logging.Logger) *IntakeHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &IntakeHandler{service: service, logger: logger.Named("intake_handler")}
}

// ProcessTranscript handles POST /api/v1/intake/transcripts.
func (h *IntakeHandler) ProcessTranscript(w http.ResponseWriter, r *http.Request) {
	var session intake.TranscriptSession
	if err := decodeBody(r, &session); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.service.ProcessTranscript(r.Context(), &session)
	if err != nil {
		h.logger.Warn("transcript processing failed",
			logging.String("session_id", session.SessionID), logging.Err(err))
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, out)
}
