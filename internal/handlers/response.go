package handlers

import (
	"encoding/json"
	"mime"
	"net/http"
)

// MessageResponse is the standard envelope for operations that only report
// an outcome. All error responses use this shape; no plain-text errors.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondMessage(w http.ResponseWriter, status int, success bool, message string) {
	respondJSON(w, status, MessageResponse{Success: success, Message: message})
}

// isJSONRequest reports whether the body should be decoded as JSON rather
// than form-encoded values.
func isJSONRequest(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}
