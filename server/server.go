package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/usama1031/csrf-jwt-server/config"
	"github.com/usama1031/csrf-jwt-server/server/middleware"
	"github.com/usama1031/csrf-jwt-server/server/middleware/csrf"
)

const defaultShutdownTimeout = 10 * time.Second

type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	handler http.Handler
	http    *http.Server
}

// New runs every fallible startup step in order and stops at the first
// failure. Nothing is bound until Run.
func New(cfg *config.Config, logger *zap.Logger, guardOptions ...csrf.GuardOption) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	guard, err := newGuard(cfg, logger, guardOptions)
	if err != nil {
		return nil, fmt.Errorf("server: register csrf guard: %w", err)
	}

	if err := checkPublicDir(cfg.Server.PublicDir); err != nil {
		return nil, fmt.Errorf("server: register static handler: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
	}
	s.handler = middleware.NewHandler(logger, guard.Middleware, s.routes())
	s.http = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(logger),
	}
	return s, nil
}

func newGuard(cfg *config.Config, logger *zap.Logger, extra []csrf.GuardOption) (*csrf.Guard, error) {
	signer, err := csrf.NewSigner([]byte(cfg.CSRF.Secret))
	if err != nil {
		return nil, err
	}

	sameSite, err := config.ParseSameSite(cfg.CSRF.SameSite)
	if err != nil {
		return nil, err
	}

	opts := csrf.Options{
		Expiry:       cfg.CSRF.Expiry(),
		CookieName:   cfg.CSRF.CookieName,
		HeaderName:   cfg.CSRF.HeaderName,
		DoubleSubmit: cfg.CSRF.DoubleSubmit,
		Secure:       cfg.CSRF.CookieSecure,
		HTTPOnly:     cfg.CSRF.CookieHTTPOnly,
		Persistent:   cfg.CSRF.Persistent,
		SameSite:     sameSite,
	}
	options := append([]csrf.GuardOption{csrf.WithLogger(logger)}, extra...)
	return csrf.NewGuard(signer, opts, options...)
}

func checkPublicDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// Handler is the complete middleware chain and router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run binds the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Server.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	s.logger.Info("server running", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	s.logger.Info("server stopped")
	return nil
}
