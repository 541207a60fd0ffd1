package utils

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Davayme/chasquigo-backend-sub000/internal/apperror"
)

type APIResponse struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Data      interface{}    `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func ErrorResponse(message, error string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     error,
		Timestamp: time.Now(),
	}
}

func WriteJSON(w http.ResponseWriter, status int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// WriteError maps err onto its HTTP status. Internal errors carry only a
// generic message.
func WriteError(w http.ResponseWriter, message string, err error) {
	public, details := apperror.Public(err)
	resp := ErrorResponse(message, public)
	resp.Details = details
	WriteJSON(w, apperror.HTTPStatus(apperror.KindOf(err)), resp)
}
