// Точка входа Analysis Module — модуль сохранённых анализов контента.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// создаёт repository и сервисный слой, инициализирует JWT middleware
// (общий секрет или JWKS), анализатор OpenAI и topologymetrics,
// запускает HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/goanstore/analysis-module/internal/analyzer"
	"github.com/bigkaa/goanstore/analysis-module/internal/api/handlers"
	"github.com/bigkaa/goanstore/analysis-module/internal/api/middleware"
	"github.com/bigkaa/goanstore/analysis-module/internal/config"
	"github.com/bigkaa/goanstore/analysis-module/internal/database"
	"github.com/bigkaa/goanstore/analysis-module/internal/repository"
	"github.com/bigkaa/goanstore/analysis-module/internal/server"
	"github.com/bigkaa/goanstore/analysis-module/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Analysis Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("auth_mode", cfg.AuthMode),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Repositories
	analysisRepo := repository.NewAnalysisRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	// 6. Services
	cache := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)
	analysisSvc := service.NewAnalysisService(analysisRepo, cache, logger)

	// 7. Анализатор OpenAI (nil при отсутствии AN_OPENAI_API_KEY —
	// POST /api/v1/analyze будет отвечать 503)
	an := analyzer.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAITimeout, logger)
	if an.Enabled() {
		logger.Info("Анализатор контента инициализирован",
			slog.String("model", cfg.OpenAIModel),
		)
	} else {
		logger.Warn("AN_OPENAI_API_KEY не задан, анализ контента отключён")
	}

	// 8. JWT middleware: общий секрет (HS256) или JWKS (RS256)
	var jwtAuth *middleware.JWTAuth
	switch cfg.AuthMode {
	case config.AuthModeSecret:
		jwtAuth, err = middleware.NewJWTAuthSecret(
			cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTLeeway, userRepo, logger,
		)
	case config.AuthModeJWKS:
		jwtAuth, err = middleware.NewJWTAuthJWKS(middleware.JWTAuthConfig{
			JWKSURL:         cfg.JWKSURL,
			CACertPath:      cfg.CACertPath,
			TLSSkipVerify:   cfg.TLSSkipVerify,
			ClientTimeout:   cfg.JWKSClientTimeout,
			RefreshInterval: cfg.JWKSRefreshInterval,
			Issuer:          cfg.JWTIssuer,
			JWTLeeway:       cfg.JWTLeeway,
		}, userRepo, logger)
	}
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован", slog.String("auth_mode", cfg.AuthMode))

	// 9. Readiness checker и storage guard
	pgChecker := database.NewReadinessChecker(pool)
	guard := middleware.NewStorageGuard(pgChecker, cfg.StorageGuardTTL, logger)

	// 10. API handlers
	healthHandler := handlers.NewHealthHandler(pgChecker)
	apiHandler := handlers.NewAPIHandler(analysisSvc, an, healthHandler, logger)

	// 11. topologymetrics — мониторинг зависимостей
	if cfg.DephealthEnabled {
		jwksURL := ""
		if cfg.AuthMode == config.AuthModeJWKS {
			jwksURL = cfg.JWKSURL
		}
		dephealthSvc, dephealthErr := service.NewDephealthService(
			"analysis-module",
			cfg.DephealthGroup,
			pgDB,
			cfg.DatabaseURL(),
			jwksURL,
			cfg.DephealthCheckInterval,
			logger,
		)
		if dephealthErr != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", dephealthErr.Error()),
			)
		} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			defer dephealthSvc.Stop()
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 12. HTTP-сервер с graceful shutdown
	srv := server.New(cfg, logger, apiHandler, jwtAuth, guard)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка HTTP-сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
