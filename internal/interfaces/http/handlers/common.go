// Package handlers implements the HTTP API endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/trialsync/trialsync/pkg/errors"
	"github.com/trialsync/trialsync/pkg/types/common"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeData wraps payloads in the standard success envelope.
func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, common.APIResponse[any]{
		Success:   true,
		Data:      data,
		RequestID: chimw.GetReqID(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

// writeError maps an error onto the envelope via its AppError code.  Server
// faults are masked; the full error stays in the logs.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.GetCode(err)
	status := code.HTTPStatus()

	message := err.Error()
	var ae *apperrors.AppError
	if errors.As(err, &ae) {
		message = ae.Message
	}
	if status >= http.StatusInternalServerError {
		message = "internal server error"
	}

	writeJSON(w, status, common.APIResponse[any]{
		Success:   false,
		Error:     &common.ErrorDetail{Code: code.String(), Message: message},
		RequestID: chimw.GetReqID(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

// decodeBody decodes the request body into dst.  An empty body leaves dst at
// its zero value, which every endpoint here accepts.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "malformed request body")
}

func parsePagination(r *http.Request) common.Pagination {
	page := common.Pagination{Page: 1, PageSize: 20}
	if v := r.URL.Query().Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			page.Page = p
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if ps, err := strconv.Atoi(v); err == nil {
			page.PageSize = ps
		}
	}
	page.Normalize(100)
	return page
}
