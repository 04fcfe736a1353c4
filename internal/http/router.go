package http

import (
	"net/http"

	"github.com/jaekwang-park/weekplan/internal/http/handler"
	"github.com/jaekwang-park/weekplan/internal/registry"
	"github.com/jaekwang-park/weekplan/internal/service"
	"github.com/jaekwang-park/weekplan/internal/session"
)

func NewRouter(reg *registry.Registry, authSvc *service.AuthService, sessions *session.Manager) http.Handler {
	mux := http.NewServeMux()

	// Health check - intentionally outside /api/v1 for ALB health check compatibility
	health := handler.NewHealthHandler()
	mux.Handle("/health", health)

	// Weekly task API. Handlers check the request identity against the
	// session scope, so a logged-in view is never served to other credentials.
	taskHandler := handler.NewTaskHandler(reg, sessions)
	mux.Handle("/api/v1/tasks", taskHandler)
	mux.Handle("/api/v1/tasks/", taskHandler)

	categoryHandler := handler.NewCategoryHandler(reg, sessions)
	mux.Handle("/api/v1/categories", categoryHandler)
	mux.Handle("/api/v1/categories/", categoryHandler)

	// Auth endpoints drive the session switch between guest and account scope
	authHandler := handler.NewAuthHandler(authSvc, sessions)
	mux.Handle("/api/v1/auth/", authHandler)

	return mux
}
