package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/septivank/energy-insights/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const idleTimeout = 60 * time.Second

// Server is an HTTP server bound to the application lifecycle
type Server struct {
	srv    *http.Server
	logger *zap.Logger
	addr   string
}

// NewServer creates a server that starts listening with the application and
// shuts down gracefully when it stops
func NewServer(lc fx.Lifecycle, cfg config.HTTPConfig, handler http.Handler, logger *zap.Logger) *Server {
	s := &Server{
		srv: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  idleTimeout,
		},
		logger: logger,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.start()
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			if cfg.ShutdownTimeout > 0 {
				var cancel context.CancelFunc
				shutdownCtx, cancel = context.WithTimeout(ctx, cfg.ShutdownTimeout)
				defer cancel()
			}
			if err := s.srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", zap.Error(err))
				return err
			}
			logger.Info("http server stopped")
			return nil
		},
	})

	return s
}

func (s *Server) start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}
	s.addr = ln.Addr().String()

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()

	s.logger.Info("http server listening", zap.String("addr", s.addr))
	return nil
}

// Addr returns the bound address once the server has started
func (s *Server) Addr() string {
	return s.addr
}
