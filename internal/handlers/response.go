package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Varun5711/tinyauth/internal/logger"
	"github.com/Varun5711/tinyauth/internal/service"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Message: message})
}

// respondServiceError maps a service error to its HTTP status. Unknown errors
// are logged and hidden behind a generic 500.
func respondServiceError(w http.ResponseWriter, log *logger.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUserAlreadyExists):
		respondError(w, http.StatusBadRequest, service.ErrUserAlreadyExists.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, service.ErrInvalidCredentials.Error())
	case errors.Is(err, service.ErrUserNotFound):
		respondError(w, http.StatusNotFound, service.ErrUserNotFound.Error())
	default:
		log.Error("%s failed: %v", op, err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
