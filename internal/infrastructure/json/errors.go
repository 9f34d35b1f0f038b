package json

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Error codes let a UI tell common failures apart without parsing messages.
const (
	CodeBadRequest    = "bad_request"
	CodeNotConnected  = "not_connected"
	CodeConnectFailed = "connect_failed"
	CodeSuperseded    = "superseded"
	CodeUploadFailed  = "upload_failed"
	CodeTooLarge      = "attachment_too_large"
	CodeRateLimited   = "rate_limited"
	CodeInternal      = "internal"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, msg string) {
	resp := ErrorResponse{
		Error:   http.StatusText(status),
		Code:    code,
		Message: msg,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func WriteValidationError(w http.ResponseWriter, err error) {
	WriteError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
}

func WriteBadRequestError(w http.ResponseWriter, msg string) {
	WriteError(w, http.StatusBadRequest, CodeBadRequest, msg)
}

func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, CodeInternal, "An unexpected error occurred")
}

func WriteRateLimitError(w http.ResponseWriter, retryAfter int) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	WriteError(w, http.StatusTooManyRequests, CodeRateLimited, "Too many requests. Please try again later.")
}
