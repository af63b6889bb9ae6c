package http

import (
	"errors"
	"net/http"

	"komunitas/pendataan/internal/model"
	"komunitas/pendataan/internal/service"
	"komunitas/pendataan/internal/submission"
	"komunitas/pendataan/internal/workflow"
)

type validationResponse struct {
	Error  string                  `json:"error"`
	Fields []submission.FieldError `json:"fields"`
}

var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{model.ErrNotFound, http.StatusNotFound, "not_found"},
	{model.ErrDuplicateNIK, http.StatusConflict, "duplicate_nik"},
	{model.ErrDuplicateKK, http.StatusConflict, "duplicate_kk"},
	{model.ErrAccountLinked, http.StatusConflict, "account_already_linked"},
	{model.ErrDuplicateEmail, http.StatusConflict, "email_taken"},
	{model.ErrDuplicateSlug, http.StatusConflict, "duplicate_slug"},
	{workflow.ErrInvalidTransition, http.StatusConflict, "invalid_current_state"},
	{workflow.ErrMissingReason, http.StatusUnprocessableEntity, "missing_rejection_reason"},
	{workflow.ErrUnknownTarget, http.StatusBadRequest, "invalid_status"},
	{service.ErrForbidden, http.StatusForbidden, "forbidden"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
}

// writeServiceError maps service errors onto status codes. Field errors are
// returned as the complete ordered list.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *submission.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Error: "validation_failed", Fields: verr.Errors})
		return
	}
	for _, known := range errorCodes {
		if errors.Is(err, known.err) {
			writeError(w, known.status, known.code)
			return
		}
	}
	s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "server_error")
}
