package helpers

import (
	"encoding/json"
	"errors"
	"net/http"

	"meetuphere/internal/domain"
)

// Error codes for API error responses.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeForbidden     = "forbidden"
	ErrCodeNotFound      = "not_found"
	ErrCodeUnavailable   = "unavailable"
	ErrCodeInternalError = "internal_error"
)

// APIError is the error object in the standardized API response envelope.
// swagger:model APIError
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse is the envelope for every API response; exactly one of Data
// and Error is set.
// swagger:model APIResponse
type APIResponse struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
}

// WriteJSONSuccess writes data in the envelope with statusCode.
func WriteJSONSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeEnvelope(w, statusCode, APIResponse{Data: data})
}

// WriteJSONError writes an error envelope with statusCode.
func WriteJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	writeEnvelope(w, statusCode, APIResponse{Error: &APIError{Code: code, Message: message}})
}

// WriteDomainError maps a pipeline or store error onto its HTTP status. Errors
// with no mapping become a 500 carrying fallback as the message.
func WriteDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrContactNotFound):
		WriteJSONError(w, http.StatusNotFound, ErrCodeNotFound, "no phone number registered")
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidMessage):
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrEnqueue), errors.Is(err, domain.ErrSourceClosed):
		WriteJSONError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "queue unavailable")
	default:
		WriteJSONError(w, http.StatusInternalServerError, ErrCodeInternalError, fallback)
	}
}

// Responses may carry phone numbers, so intermediaries must not cache them.
func writeEnvelope(w http.ResponseWriter, statusCode int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
