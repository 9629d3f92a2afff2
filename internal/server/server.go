// Пакет server — HTTP-сервер модуля анализа с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/goanstore/analysis-module/internal/api/handlers"
	"github.com/bigkaa/goanstore/analysis-module/internal/api/middleware"
	"github.com/bigkaa/goanstore/analysis-module/internal/config"
)

// Server — HTTP-сервер модуля анализа.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
//
// Порядок middleware:
//   - metrics и request logging — на всех маршрутах;
//   - JWT-аутентификация и storage guard — только на /api/v1/analysis:
//     health probes, /metrics и /api/v1/analyze публичны.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	handler *handlers.APIHandler,
	jwtAuth *middleware.JWTAuth,
	guard *middleware.StorageGuard,
) *Server {
	router := chi.NewRouter()

	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Публичные endpoints
	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Get("/metrics", handler.GetMetrics)
	router.Post("/api/v1/analyze", handler.AnalyzeContent)

	// Защищённые endpoints: сначала гейт хранилища, затем аутентификация.
	// Guard стоит раньше auth: проверка subject сама ходит в БД,
	// при лежащем PostgreSQL запрос должен получить 503 сразу.
	router.Route("/api/v1/analysis", func(r chi.Router) {
		r.Use(guard.Middleware())
		r.Use(jwtAuth.Middleware())
		r.Get("/", handler.ListRecords)
		r.Post("/", handler.CreateRecord)
		r.Get("/{id}", handler.GetRecord)
		r.Put("/{id}", handler.UpdateRecord)
		r.Delete("/{id}", handler.DeleteRecord)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
