package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sandevgo/datacom/pkg/log"
)

// Server exposes the router as a srv.Service.
type Server struct {
	srv *http.Server
}

// NewServer builds the HTTP server. writeTimeout must cover the slowest turn.
func NewServer(addr string, handler http.Handler, writeTimeout time.Duration) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       60 * time.Second,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Str("addr", s.srv.Addr).Msg("starting http server")

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("stopping http server")
	return s.srv.Shutdown(ctx)
}
