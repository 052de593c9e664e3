package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iavido/iavido-agent/internal/generation"
	"github.com/iavido/iavido-agent/internal/history"
	"github.com/iavido/iavido-agent/internal/lifecycle"
	"github.com/iavido/iavido-agent/internal/playback"
	"github.com/iavido/iavido-agent/internal/presenter"
)

// Controller is the slice of the session the control API drives.
type Controller interface {
	State() lifecycle.State
	View() presenter.View
	Submit(ctx context.Context, req generation.Request) (generation.JobID, error)
	Reset() error
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port       int
	Controller Controller
	History    history.Repository
	Videos     *playback.Library
	// ResolveURL makes job service video URLs absolute in exports.
	ResolveURL presenter.URLResolver
	Logger     *slog.Logger
	StartTime  time.Time
	Version    string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
