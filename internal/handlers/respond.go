package handlers

import (
	"encoding/json"
	"net/http"
)

type errorResponse struct {
	Error       string `json:"error"`
	MinQuantity int    `json:"min_quantity,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
