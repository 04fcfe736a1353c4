package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jaekwang-park/weekplan/internal/middleware"
	"github.com/jaekwang-park/weekplan/internal/registry"
	"github.com/jaekwang-park/weekplan/internal/service"
	"github.com/jaekwang-park/weekplan/internal/session"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

func NewServer(port string, logger *slog.Logger, reg *registry.Registry, authSvc *service.AuthService, sessions *session.Manager, auth *middleware.Auth) *Server {
	router := NewRouter(reg, authSvc, sessions)

	// Apply middleware chain: recovery -> auth -> logging -> router.
	// Logging runs inside auth so the resolved identity is visible to the
	// request log.
	chain := middleware.Recovery(logger)(auth.Middleware(middleware.Logging(logger)(router)))

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%s", port),
			Handler:      chain,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}
