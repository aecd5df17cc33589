// Package http - HTTP сервер для запуска edgeapi вне Lambda (cmd/api).
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Haleralex/edgeapi/internal/config"
)

// ============================================
// Server
// ============================================

// Server - HTTP сервер поверх config.ServerConfig.
//
// Сокет открывается синхронно в Run, поэтому ошибка bind
// (занятый порт) возвращается сразу, а не из горутины.
type Server struct {
	cfg        config.ServerConfig
	httpServer *http.Server
	log        *slog.Logger

	mu    sync.Mutex
	addr  net.Addr
	ready chan struct{}
}

// NewServer создаёт сервер. Ошибки net/http (TLS handshake, panics в
// чужих handlers) пишутся в log на уровне Error.
func NewServer(cfg config.ServerConfig, handler http.Handler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:         cfg.Address(),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
			ErrorLog:     slog.NewLogLogger(log.Handler(), slog.LevelError),
		},
		log:   log.With(slog.String("component", "http_server")),
		ready: make(chan struct{}),
	}
}

// Handler возвращает корневой http.Handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr - фактический адрес после bind (важно для порта 0). nil до Run.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Ready закрывается, когда сокет открыт и сервер принимает соединения.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// listen открывает сокет и публикует адрес.
func (s *Server) listen(ctx context.Context) (net.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	close(s.ready)

	s.log.Info("HTTP server listening", slog.String("address", ln.Addr().String()))
	return ln, nil
}

// Shutdown дожидается активных запросов. Если у ctx нет дедлайна,
// ожидание ограничено ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok && s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		// Не дождались: рвём оставшиеся соединения.
		_ = s.httpServer.Close()
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// ============================================
// Run
// ============================================

// Run обслуживает запросы до SIGINT/SIGTERM или отмены ctx.
// Вызывается один раз на Server.
// Возвращает ошибку bind, ошибку Serve и ошибку Shutdown (через errors.Join).
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := s.listen(ctx)
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		err := s.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serveErr <- err
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		s.log.Info("Shutdown requested", slog.String("reason", context.Cause(ctx).Error()))
	}

	shutdownErr := s.Shutdown(context.WithoutCancel(ctx))
	if err := errors.Join(<-serveErr, shutdownErr); err != nil {
		return err
	}

	s.log.Info("HTTP server stopped")
	return nil
}
