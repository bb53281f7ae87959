// Package httpapi exposes the container over JSON/HTTP: the data surface
// (/api/data), metadata endpoints, the token endpoint and service info.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ownyourdata/semcon/internal/logging"
	"github.com/ownyourdata/semcon/internal/server/auth"
	"github.com/ownyourdata/semcon/internal/server/config"
	"github.com/ownyourdata/semcon/internal/server/services"
)

type Server struct {
	cfg    *config.Config
	logger logging.Logger

	store *services.StoreService
	query *services.QueryService
	gate  *auth.Gate

	version string

	httpServer *http.Server
}

func NewServer(cfg *config.Config, logger logging.Logger, store *services.StoreService,
	query *services.QueryService, gate *auth.Gate, version string) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		query:   query,
		gate:    gate,
		version: version,
	}
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/version", s.handleVersion)
	r.Post("/oauth/token", s.handleToken)

	r.Route("/api", func(r chi.Router) {
		r.Get("/active", s.handleActive)
		r.Get("/meta/info", s.handleInfo)
		r.Get("/meta/schemas", s.handleSchemas)

		r.Get("/data", s.handleRead)
		r.Post("/data", s.handleWrite)
		r.Put("/data", s.handleUpdate)
		r.Delete("/data", s.handleDelete)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    s.cfg.EndpointAddr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening",
			"addr", s.cfg.EndpointAddr, "auth", s.cfg.AuthEnabled)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
