package response

import (
	"encoding/json"
	"net/http"

	"github.com/shoplite/shoplite-api/internal/domain"
	"github.com/shoplite/shoplite-api/pkg/logger"
)

// Envelope is the uniform response shape: {success, data?, message?} plus the
// optional list/order extras the API carries.
type Envelope struct {
	Success       bool        `json:"success"`
	Data          interface{} `json:"data,omitempty"`
	Message       string      `json:"message,omitempty"`
	Code          string      `json:"code,omitempty"`
	Count         *int        `json:"count,omitempty"`
	Pagination    interface{} `json:"pagination,omitempty"`
	Notifications interface{} `json:"notifications,omitempty"`
}

func JSON(w http.ResponseWriter, statusCode int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func OK(w http.ResponseWriter, statusCode int, data interface{}) {
	JSON(w, statusCode, Envelope{Success: true, Data: data})
}

// Common error codes
const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeEmailExists   = "EMAIL_EXISTS"
	CodeRateLimit     = "RATE_LIMIT_EXCEEDED"
	CodeInternalError = "INTERNAL_ERROR"
)

func WriteError(w http.ResponseWriter, statusCode int, message, code string) {
	JSON(w, statusCode, Envelope{Success: false, Message: message, Code: code})
}

func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, CodeForbidden)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func InternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "Server error", CodeInternalError)
}

func RateLimit(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message, CodeRateLimit)
}

// FromError maps a service error onto the HTTP taxonomy. Duplicate-email
// conflicts answer 400 to match the public API contract. Unknown errors are
// logged and answered with a generic 500.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	switch domain.KindOf(err) {
	case domain.KindInvalid:
		BadRequest(w, err.Error())
	case domain.KindUnauthorized:
		Unauthorized(w, err.Error())
	case domain.KindForbidden:
		Forbidden(w, err.Error())
	case domain.KindNotFound:
		NotFound(w, err.Error())
	case domain.KindConflict:
		WriteError(w, http.StatusBadRequest, err.Error(), CodeEmailExists)
	default:
		logger.ErrorContext(r.Context(), "unhandled error", "error", err, "path", r.URL.Path)
		InternalError(w)
	}
}
