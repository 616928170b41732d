package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-auth-nosql/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SignupEnvelope wraps the created account.
type SignupEnvelope struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Account *domain.PublicAccount `json:"user"`
}

// SigninEnvelope carries the raw token for non-browser clients.
type SigninEnvelope struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Token   string                `json:"token"`
	Account *domain.PublicAccount `json:"user"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Success: status < http.StatusBadRequest, Message: msg})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Success: false, Message: msg})
}
