package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorBody represents a consistent error payload returned by the gateway.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders an error response using the canonical error shape.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, map[string]any{
		"error": ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteError maps an arbitrary error onto the canonical error payload. An
// AppError carries its own status and code; anything else renders as a
// generic bad request so a failed action never crashes the view.
func WriteError(w http.ResponseWriter, err error) {
	if err == nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		code := appErr.Code
		if code == "" {
			code = "BAD_REQUEST"
		}
		JSONError(w, status, code, appErr.Message, appErr.Details)
		return
	}
	var statusErr interface{ HTTPStatus() int }
	if errors.As(err, &statusErr) {
		status := statusErr.HTTPStatus()
		switch {
		case status == http.StatusNotFound:
			JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
		case status == http.StatusUnauthorized:
			JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), nil)
		case status == http.StatusForbidden:
			JSONError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
		case status >= http.StatusInternalServerError:
			JSONError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", err.Error(), nil)
		default:
			JSONError(w, status, "BAD_REQUEST", err.Error(), nil)
		}
		return
	}
	JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
}
