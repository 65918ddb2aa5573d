package http

import (
	"net/http"

	"shawty-backend/internal/auth"
	"shawty-backend/internal/service"

	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// Server HTTP сервер с обработчиками
type Server struct {
	linksHandler    *LinksHandler
	redirectHandler *RedirectHandler
	healthHandler   *HealthHandler
	authMiddleware  *auth.Middleware
	metrics         http.Handler
	log             *zap.Logger
}

// Options адреса, которые попадают в ответы клиентам
type Options struct {
	BaseURL   string
	UnlockURL string
}

// NewServer создает новый HTTP сервер
func NewServer(
	links *service.LinkService,
	redirector *service.Redirector,
	health *HealthHandler,
	authMiddleware *auth.Middleware,
	metrics http.Handler,
	opts Options,
	log *zap.Logger,
) *Server {
	return &Server{
		linksHandler:    NewLinksHandler(links, log, opts.BaseURL),
		redirectHandler: NewRedirectHandler(redirector, opts.UnlockURL, log),
		healthHandler:   health,
		authMiddleware:  authMiddleware,
		metrics:         metrics,
		log:             log,
	}
}

// SetupRoutes настраивает маршруты и общие middleware
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Health checks (без аутентификации)
	if s.healthHandler != nil {
		mux.HandleFunc("GET /health", s.healthHandler.Health)
		mux.HandleFunc("GET /ready", s.healthHandler.Ready)
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	// Swagger документация
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// Создание ссылок: анонимно или от имени владельца
	mux.HandleFunc("POST /shorten", s.authMiddleware.OptionalAuth(s.linksHandler.CreateLink))
	mux.HandleFunc("GET /check/{slug}", s.linksHandler.CheckAvailability)

	// Управление своими ссылками (с аутентификацией)
	mux.HandleFunc("GET /urls", s.authMiddleware.RequireAuth(s.linksHandler.ListLinks))
	mux.HandleFunc("PUT /urls/{code}", s.authMiddleware.RequireAuth(s.linksHandler.UpdateLink))
	mux.HandleFunc("DELETE /urls/{code}", s.authMiddleware.RequireAuth(s.linksHandler.DeleteLink))
	mux.HandleFunc("GET /urls/{code}/stats", s.authMiddleware.RequireAuth(s.linksHandler.GetStats))
	mux.HandleFunc("GET /analytics/dashboard", s.authMiddleware.RequireAuth(s.linksHandler.Dashboard))

	// Разблокировка ссылок с паролем
	mux.HandleFunc("GET /unlock/{code}", s.redirectHandler.UnlockChallenge)
	mux.HandleFunc("POST /unlock/{code}", s.redirectHandler.Unlock)

	// Redirect endpoint (без аутентификации); литеральные пути выше имеют приоритет
	mux.HandleFunc("GET /{code}", s.redirectHandler.HandleRedirect)

	var handler http.Handler = mux
	handler = s.authMiddleware.CORS(handler)
	handler = withAccessLog(s.log)(handler)
	handler = withRecovery(s.log)(handler)
	handler = withRequestID(handler)
	return handler
}
