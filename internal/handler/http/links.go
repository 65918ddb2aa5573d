package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"shawty-backend/internal/auth"
	"shawty-backend/internal/domain"
	"shawty-backend/internal/service"

	"go.uber.org/zap"
)

// LinksHandler обработчик для работы со ссылками
type LinksHandler struct {
	links   *service.LinkService
	log     *zap.Logger
	baseURL string
}

// NewLinksHandler создает новый обработчик ссылок
func NewLinksHandler(links *service.LinkService, log *zap.Logger, baseURL string) *LinksHandler {
	return &LinksHandler{
		links:   links,
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// CreateLinkRequest структура запроса создания ссылки
type CreateLinkRequest struct {
	OriginalURL string `json:"original_url"`
	CustomAlias string `json:"custom_alias,omitempty"`
	Password    string `json:"password,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
	MaxClicks   *int64 `json:"max_clicks,omitempty"`
}

// UpdateLinkRequest частичное обновление ссылки владельцем
type UpdateLinkRequest struct {
	OriginalURL *string `json:"original_url,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	MaxClicks   *int64  `json:"max_clicks,omitempty"`
	ExpiresAt   *string `json:"expires_at,omitempty"`
}

// LinkResponse ссылка с полным коротким адресом
type LinkResponse struct {
	*domain.Link
	ShortURL          string `json:"short_url"`
	PasswordProtected bool   `json:"password_protected"`
}

// ListLinksResponse структура ответа списка ссылок
type ListLinksResponse struct {
	Links  []LinkResponse `json:"links"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

// AvailabilityResponse результат проверки алиаса
type AvailabilityResponse struct {
	Available bool `json:"available"`
}

// CreateLink создает новую короткую ссылку
//
//	@Summary		Create a short link
//	@Description	Anonymous callers are limited per client IP. A bearer token lifts the limit and makes the caller the owner.
//	@Tags			Links
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateLinkRequest	true	"Link creation request"
//	@Success		201		{object}	LinkResponse		"Link created successfully"
//	@Failure		400		{object}	ErrorResponse		"Invalid request data or alias taken"
//	@Failure		429		{object}	ErrorResponse		"Anonymous limit reached"
//	@Failure		500		{object}	ErrorResponse
//	@Router			/shorten [post]
func (h *LinksHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r, h.log)

	var req CreateLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Debug("invalid create link request", zap.Error(err))
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	// Валидация URL
	if strings.TrimSpace(req.OriginalURL) == "" {
		writeError(w, "Original URL is required", http.StatusBadRequest)
		return
	}

	in := service.CreateLinkInput{
		OriginalURL: req.OriginalURL,
		MaxClicks:   req.MaxClicks,
	}
	if req.CustomAlias != "" {
		in.CustomAlias = &req.CustomAlias
	}
	if req.Password != "" {
		in.Password = &req.Password
	}

	// Обрабатываем дату истечения
	if req.ExpiresAt != "" {
		expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			writeError(w, "Invalid expires_at format. Use RFC3339 format", http.StatusBadRequest)
			return
		}
		in.ExpiresAt = &expiresAt
	}

	// Владелец есть только у запросов с валидным токеном
	var owner *int64
	if userID, ok := auth.GetUserIDFromContext(r.Context()); ok {
		owner = &userID
	}

	link, err := h.links.Create(r.Context(), in, owner, extractIPAddress(r))
	if err != nil {
		respondError(w, log, err)
		return
	}

	writeJSON(w, h.toResponse(link), http.StatusCreated)
}

// CheckAvailability проверяет, свободен ли алиас
//
//	@Summary	Check custom alias availability
//	@Tags		Links
//	@Produce	json
//	@Param		slug	path		string	true	"Custom alias"
//	@Success	200		{object}	AvailabilityResponse
//	@Router		/check/{slug} [get]
func (h *LinksHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	available, err := h.links.CheckAvailability(r.Context(), r.PathValue("slug"))
	if err != nil {
		respondError(w, requestLogger(r, h.log), err)
		return
	}
	writeJSON(w, AvailabilityResponse{Available: available}, http.StatusOK)
}

// ListLinks возвращает список ссылок пользователя
//
//	@Summary	List own links
//	@Tags		Links
//	@Produce	json
//	@Security	BearerAuth
//	@Param		offset	query		int	false	"Offset"
//	@Param		limit	query		int	false	"Page size, at most 100"
//	@Success	200		{object}	ListLinksResponse
//	@Failure	401		{object}	ErrorResponse
//	@Router		/urls [get]
func (h *LinksHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", service.MaxPageSize)
	if limit <= 0 || limit > service.MaxPageSize {
		limit = service.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	links, err := h.links.List(r.Context(), userID, offset, limit)
	if err != nil {
		respondError(w, requestLogger(r, h.log), err)
		return
	}

	response := ListLinksResponse{
		Links:  make([]LinkResponse, len(links)),
		Offset: offset,
		Limit:  limit,
	}
	for i, link := range links {
		response.Links[i] = h.toResponse(link)
	}
	writeJSON(w, response, http.StatusOK)
}

// UpdateLink изменяет ссылку владельца
//
//	@Summary	Update an own link
//	@Tags		Links
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		code	path		string				true	"Short code"
//	@Param		request	body		UpdateLinkRequest	true	"Fields to change"
//	@Success	200		{object}	LinkResponse
//	@Failure	400		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/urls/{code} [put]
func (h *LinksHandler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}
	log := requestLogger(r, h.log)

	var req UpdateLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Debug("invalid update link request", zap.Error(err))
		writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	patch := domain.LinkPatch{
		OriginalURL: req.OriginalURL,
		IsActive:    req.IsActive,
		MaxClicks:   req.MaxClicks,
	}
	if req.ExpiresAt != nil {
		expiresAt, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			writeError(w, "Invalid expires_at format. Use RFC3339 format", http.StatusBadRequest)
			return
		}
		patch.ExpiresAt = &expiresAt
	}

	link, err := h.links.Update(r.Context(), userID, r.PathValue("code"), patch)
	if err != nil {
		respondError(w, log, err)
		return
	}
	writeJSON(w, h.toResponse(link), http.StatusOK)
}

// DeleteLink удаляет ссылку
//
//	@Summary		Delete a link
//	@Description	Delete a specific link and its click history
//	@Tags			Links
//	@Security		BearerAuth
//	@Param			code	path	string	true	"Short code"
//	@Success		204		"Link deleted successfully"
//	@Failure		401		{object}	ErrorResponse	"Authentication required"
//	@Failure		404		{object}	ErrorResponse	"Link not found"
//	@Router			/urls/{code} [delete]
func (h *LinksHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	if err := h.links.Delete(r.Context(), userID, r.PathValue("code")); err != nil {
		respondError(w, requestLogger(r, h.log), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStats возвращает статистику по ссылке
//
//	@Summary	Click breakdown of an own link
//	@Tags		Analytics
//	@Produce	json
//	@Security	BearerAuth
//	@Param		code	path		string	true	"Short code"
//	@Success	200		{object}	domain.LinkStats
//	@Failure	404		{object}	ErrorResponse
//	@Router		/urls/{code}/stats [get]
func (h *LinksHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	stats, err := h.links.Stats(r.Context(), userID, r.PathValue("code"))
	if err != nil {
		respondError(w, requestLogger(r, h.log), err)
		return
	}
	writeJSON(w, stats, http.StatusOK)
}

// Dashboard возвращает сводную аналитику по всем ссылкам пользователя
//
//	@Summary	Owner dashboard
//	@Tags		Analytics
//	@Produce	json
//	@Security	BearerAuth
//	@Param		range	query		string	false	"24h, 7d, 30d or 90d"
//	@Success	200		{object}	domain.Dashboard
//	@Router		/analytics/dashboard [get]
func (h *LinksHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	dash, err := h.links.Dashboard(r.Context(), userID, r.URL.Query().Get("range"))
	if err != nil {
		respondError(w, requestLogger(r, h.log), err)
		return
	}
	writeJSON(w, dash, http.StatusOK)
}

func (h *LinksHandler) toResponse(link *domain.Link) LinkResponse {
	return LinkResponse{
		Link:              link,
		ShortURL:          h.baseURL + "/" + link.ShortCode,
		PasswordProtected: link.HasPassword(),
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
