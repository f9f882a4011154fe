// Пакет server — HTTP-сервер talentdesk: маршруты API и UI таблиц,
// цепочка middleware и остановка по сигналу. TLS завершается на шлюзе.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bigkaa/talentdesk/internal/api/generated"
	"github.com/bigkaa/talentdesk/internal/config"
)

// Server — HTTP-сервер talentdesk.
type Server struct {
	http            *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// New собирает роутер: Recoverer, затем middlewares в порядке передачи
// (первый — внешний), затем маршруты generated.ServerInterface.
func New(cfg *config.Config, logger *slog.Logger, handler generated.ServerInterface, middlewares ...func(http.Handler) http.Handler) *Server {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middlewares...)
	generated.HandlerFromMux(handler, r)

	return &Server{
		http: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      r,
			ReadTimeout:  cfg.HTTPReadTimeout,
			WriteTimeout: cfg.HTTPWriteTimeout,
			IdleTimeout:  cfg.HTTPIdleTimeout,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger.With(slog.String("component", "http_server")),
	}
}

// Handler — корневой обработчик (тесты через httptest).
func (s *Server) Handler() http.Handler { return s.http.Handler }

// JWTAuthWithExclusions применяет mw ко всем путям, кроме начинающихся
// с одного из public (пробы, метрики).
func JWTAuthWithExclusions(mw func(http.Handler) http.Handler, public ...string) func(http.Handler) http.Handler {
	isPublic := func(path string) bool {
		return slices.ContainsFunc(public, func(p string) bool { return strings.HasPrefix(path, p) })
	}
	return func(next http.Handler) http.Handler {
		guarded := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			guarded.ServeHTTP(w, r)
		})
	}
}

// Run обслуживает запросы до SIGINT или SIGTERM.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Serve(ctx)
}

// Serve обслуживает запросы до отмены ctx, затем дожидается завершения
// активных запросов (в том числе потоковых ZIP) не дольше ShutdownTimeout.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("открытие порта %s: %w", s.http.Addr, err)
	}
	s.logger.Info("HTTP-сервер принимает запросы", slog.String("addr", ln.Addr().String()))

	served := make(chan error, 1)
	go func() { served <- s.http.Serve(ln) }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP-сервер: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Остановка HTTP-сервера", slog.Duration("timeout", s.shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("остановка HTTP-сервера: %w", err)
	}
	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
