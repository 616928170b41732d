package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-auth-nosql/internal/domain"
)

// httpError maps a service error onto a status code and a client-safe message.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrDuplicateAccount):
		writeError(w, http.StatusConflict, "User already exists!")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found!")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials!")
	case errors.Is(err, domain.ErrAlreadyVerified):
		writeError(w, http.StatusBadRequest, "You are already verified!")
	case errors.Is(err, domain.ErrNoPendingCode):
		writeError(w, http.StatusBadRequest, "Something is wrong with the code!")
	case errors.Is(err, domain.ErrExpired):
		writeError(w, http.StatusBadRequest, "Code has expired!")
	case errors.Is(err, domain.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, "Verification code is invalid!")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "You are not verified user!")
	case errors.Is(err, domain.ErrDeliveryFailed):
		writeError(w, http.StatusBadGateway, "Failed to send verification code!")
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
