package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"shawty-backend/internal/domain"

	"go.uber.org/zap"
)

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, ErrorResponse{Error: message}, statusCode)
}

// statusFor сопоставляет доменную ошибку с HTTP статусом
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAlias),
		errors.Is(err, domain.ErrReservedAlias),
		errors.Is(err, domain.ErrInvalidDestination),
		errors.Is(err, domain.ErrInvalidMaxClicks),
		errors.Is(err, domain.ErrInvalidPassword),
		errors.Is(err, domain.ErrCannotReactivate),
		errors.Is(err, domain.ErrAliasTaken):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrLinkNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrLinkGone):
		return http.StatusGone
	case errors.Is(err, domain.ErrPasswordMismatch):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrRateLimited), errors.Is(err, domain.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrCodeSpaceExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError пишет ошибку сервиса клиенту. Внутренние детали 5xx
// остаются в логе.
func respondError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		writeError(w, "Internal server error", status)
		return
	}
	if status == http.StatusServiceUnavailable {
		log.Error("request failed", zap.Error(err))
	}
	writeError(w, err.Error(), status)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes)).Decode(dst)
}

const maxBodyBytes = 1 << 20
