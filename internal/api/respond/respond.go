// Package respond writes JSON response bodies shared by handlers and middleware.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeInvalidState      = "INVALID_STATE"
	CodeKakaoTokenInvalid = "KAKAO_TOKEN_INVALID"
	CodeMissingToken      = "MISSING_TOKEN"
	CodeTokenExpired      = "TOKEN_EXPIRED"
	CodeTokenInvalid      = "TOKEN_INVALID"
	CodeUserNotFound      = "USER_NOT_FOUND"
	CodeAccountInactive   = "ACCOUNT_INACTIVE"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeNotFound          = "NOT_FOUND"
)

type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorBody{Message: message, Code: code})
}

// InternalError hides the cause from the client; log it before calling.
func InternalError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, CodeInternalError, "Internal server error")
}
