// Package handlers holds helpers shared by the HTTP handler packages.
package handlers

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes an ErrorBody with statusCode
func WriteError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorBody{Error: errorType, Message: message}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
