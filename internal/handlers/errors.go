package handlers

import (
	"errors"
	"net/http"

	"paycheck-tracker/internal/log"
	"paycheck-tracker/internal/storage"
	"paycheck-tracker/internal/validate"
)

type errorResponse struct {
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
	Detail string `json:"detail"`
}

// statusFor maps an error to its HTTP status and response code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, storage.ErrUniqueness):
		return http.StatusConflict, "conflict"
	case errors.Is(err, storage.ErrReferential):
		return http.StatusUnprocessableEntity, "referential_error"
	case validate.IsValidation(err):
		return http.StatusUnprocessableEntity, "validation_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func fieldOf(err error) string {
	var fe *validate.FieldError
	if errors.As(err, &fe) {
		return fe.Field
	}
	var ce *storage.ConstraintError
	if errors.As(err, &ce) {
		return ce.Field
	}
	return ""
}

// errorType sorts err into a logging category. Constraint violations that
// got past request validation are reported as database errors.
func errorType(err error) string {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return log.ErrorTypeNotFound
	case errors.Is(err, storage.ErrUniqueness):
		return log.ErrorTypeConflict
	case errors.Is(err, storage.ErrReferential):
		return log.ErrorTypeReference
	case storage.IsConstraint(err):
		return log.ErrorTypeDatabase
	case errors.Is(err, errBadRequest), validate.IsValidation(err):
		return log.ErrorTypeValidation
	default:
		return log.ErrorTypeInternal
	}
}

// writeError answers with the status err maps to. Internal errors are logged
// and hidden from the client.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	resp := errorResponse{Error: code, Field: fieldOf(err), Detail: err.Error()}

	logger := log.FromContext(r.Context())
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request error",
			log.FieldError, err, log.FieldErrorType, errorType(err), log.FieldPath, r.URL.Path)
		resp.Detail = "internal server error"
	} else {
		logger.DebugContext(r.Context(), "request rejected",
			log.FieldError, err, log.FieldErrorType, errorType(err), log.FieldField, resp.Field)
	}
	writeJSON(w, status, resp)
}
