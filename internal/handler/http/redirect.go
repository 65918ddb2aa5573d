package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"shawty-backend/internal/domain"
	"shawty-backend/internal/service"

	"go.uber.org/zap"
)

// RedirectHandler обработчик редиректов и разблокировки ссылок
type RedirectHandler struct {
	redirector *service.Redirector
	unlockURL  string
	log        *zap.Logger
}

// NewRedirectHandler создает новый обработчик редиректов
func NewRedirectHandler(redirector *service.Redirector, unlockURL string, log *zap.Logger) *RedirectHandler {
	return &RedirectHandler{
		redirector: redirector,
		unlockURL:  strings.TrimRight(unlockURL, "/"),
		log:        log,
	}
}

// UnlockRequest тело запроса разблокировки
type UnlockRequest struct {
	Password string `json:"password"`
}

// UnlockResponse адрес назначения после успешной разблокировки
type UnlockResponse struct {
	Destination string `json:"destination"`
}

// HandleRedirect обрабатывает редирект по короткому коду
//
//	@Summary		Follow a short link
//	@Tags			Redirect
//	@Param			code	path	string	true	"Short code"
//	@Success		302		"Redirect to the destination"
//	@Success		307		"Redirect to the unlock page"
//	@Failure		404		{object}	ErrorResponse
//	@Failure		410		{object}	ErrorResponse
//	@Router			/{code} [get]
func (h *RedirectHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	log := requestLogger(r, h.log).With(zap.String("short_code", code))

	destination, err := h.redirector.Resolve(r.Context(), code, clickMeta(r))
	if errors.Is(err, domain.ErrPasswordRequired) {
		// Пароль проверяется на странице разблокировки, клик еще не засчитан
		http.Redirect(w, r, h.unlockURL+"/"+url.PathEscape(code), http.StatusTemporaryRedirect)
		return
	}
	if err != nil {
		log.Debug("redirect refused", zap.Error(err))
		respondError(w, log, err)
		return
	}

	log.Debug("successful redirect", zap.String("destination", destination))
	http.Redirect(w, r, destination, http.StatusFound)
}

// UnlockChallenge сообщает странице разблокировки, нужен ли пароль
//
//	@Summary		Describe the unlock challenge of a link
//	@Tags			Redirect
//	@Produce		json
//	@Param			code	path		string	true	"Short code"
//	@Success		200		{object}	service.Challenge
//	@Failure		404		{object}	ErrorResponse
//	@Failure		410		{object}	ErrorResponse
//	@Router			/unlock/{code} [get]
func (h *RedirectHandler) UnlockChallenge(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	challenge, err := h.redirector.Challenge(r.Context(), code)
	if err != nil {
		respondError(w, requestLogger(r, h.log), err)
		return
	}
	writeJSON(w, challenge, http.StatusOK)
}

// Unlock проверяет пароль и возвращает адрес назначения
//
//	@Summary		Unlock a password protected link
//	@Tags			Redirect
//	@Accept			json
//	@Produce		json
//	@Param			code	path		string			true	"Short code"
//	@Param			request	body		UnlockRequest	true	"Password"
//	@Success		200		{object}	UnlockResponse
//	@Failure		403		{object}	ErrorResponse	"Incorrect password"
//	@Failure		404		{object}	ErrorResponse
//	@Failure		410		{object}	ErrorResponse
//	@Failure		429		{object}	ErrorResponse	"Too many attempts"
//	@Router			/unlock/{code} [post]
func (h *RedirectHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	log := requestLogger(r, h.log).With(zap.String("short_code", code))

	var req UnlockRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Debug("invalid unlock request", zap.Error(err))
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	destination, err := h.redirector.Unlock(r.Context(), code, req.Password, clickMeta(r))
	if err != nil {
		respondError(w, log, err)
		return
	}
	writeJSON(w, UnlockResponse{Destination: destination}, http.StatusOK)
}

// clickMeta собирает данные клика из запроса
func clickMeta(r *http.Request) service.ClickMeta {
	return service.ClickMeta{
		Referrer:  r.Referer(),
		UserAgent: r.UserAgent(),
		ClientIP:  extractIPAddress(r),
	}
}
