// Точка входа talentdesk — сервис умных таблиц рекрутингового агентства.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// собирает сервис таблиц с экспортом файлов, API handlers и middleware,
// запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/talentdesk/internal/api/generated"
	"github.com/bigkaa/talentdesk/internal/api/handlers"
	"github.com/bigkaa/talentdesk/internal/api/middleware"
	"github.com/bigkaa/talentdesk/internal/config"
	"github.com/bigkaa/talentdesk/internal/database"
	"github.com/bigkaa/talentdesk/internal/export"
	"github.com/bigkaa/talentdesk/internal/repository"
	"github.com/bigkaa/talentdesk/internal/server"
	"github.com/bigkaa/talentdesk/internal/service"
	"github.com/bigkaa/talentdesk/internal/session"
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
	logger.Info("talentdesk запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
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

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (проверка через общий пул)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Источник записей
	recordRepo := repository.NewRecordRepository(pool)

	// 6. Получение файлов и экспорт
	fetcherCfg := export.HTTPFetcherConfig{
		Origin:     cfg.FileOriginURL,
		CACertPath: cfg.FetchCACertPath,
		Timeout:    cfg.FetchTimeout,
		MaxBytes:   cfg.FetchMaxBytes,
	}
	if cfg.FetchToken != "" {
		fetcherCfg.TokenProvider = export.StaticToken(cfg.FetchToken)
	}
	fetcher, err := export.NewHTTPFetcher(fetcherCfg, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента файлов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	viewer := export.NewLinkViewer(cfg.FileOriginURL, logger)
	exporter := export.NewOrchestrator(fetcher, viewer, cfg.ExportConcurrency, logger)
	logger.Info("Экспорт файлов настроен",
		slog.String("file_origin", cfg.FileOriginURL),
		slog.Int("concurrency", exporter.Concurrency()),
	)

	// 7. Сессии рендеринга и сервис таблиц
	sessions := session.NewStore(cfg.SessionCacheSize, cfg.SessionTTL, logger)
	tablesSvc := service.NewTableService(
		recordRepo,
		service.DefaultCatalog(),
		sessions,
		exporter,
		service.TableServiceConfig{
			SampleSize:      cfg.ClassifySampleSize,
			VocabularyExtra: cfg.MediaVocabularyExtra,
			Keying:          cfg.SelectionKeying,
			RowLimit:        cfg.TableRowLimit,
			ExportDir:       cfg.ExportDir,
			FileOrigin:      cfg.FileOriginURL,
		},
		logger,
	)

	// 8. topologymetrics — мониторинг зависимостей (PostgreSQL + файловое хранилище)
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     "talentdesk",
		Group:         cfg.DephealthGroup,
		PgConnURL:     cfg.DatabaseURL(),
		FileOriginURL: cfg.FileOriginURL,
		CheckInterval: cfg.DephealthCheckInterval,
		IsEntry:       cfg.DephealthIsEntry,
	}, pgDB, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", startErr.Error()),
		)
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 8.1 Readiness: PostgreSQL, JWKS (если включена аутентификация), файловое хранилище
	pgChecker := database.NewReadinessChecker(pool)
	var jwksChecker handlers.ReadinessChecker
	if cfg.AuthEnabled() {
		kc, err := middleware.NewJWKSReadinessChecker(cfg.JWTJWKSURL, cfg.JWKSCACertPath, cfg.JWKSClientTimeout)
		if err != nil {
			logger.Error("Ошибка создания JWKS readiness checker", slog.String("error", err.Error()))
			os.Exit(1)
		}
		jwksChecker = kc
	}
	healthHandler := handlers.NewHealthHandler(pgChecker, jwksChecker).WithSessions(sessions)
	if dephealthSvc != nil && dephealthSvc.Monitors(service.DepFileOrigin) {
		healthHandler.WithCheck("file_origin", dephealthSvc.Checker(service.DepFileOrigin))
	}

	// 9. API handler (реализует generated.ServerInterface)
	apiHandler := handlers.NewAPIHandler(healthHandler, tablesSvc, logger)

	// 10. Валидация запросов по OpenAPI-контракту
	swagger, err := generated.GetSwagger()
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI-контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}
	validator, err := middleware.NewRequestValidator(swagger, logger)
	if err != nil {
		logger.Error("Ошибка создания валидатора запросов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 11. Цепочка middleware: метрики → логирование → JWT → валидация
	middlewares := []func(next http.Handler) http.Handler{
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	}
	if cfg.AuthEnabled() {
		jwtAuth, err := middleware.NewJWTAuth(middleware.JWTAuthConfig{
			JWKSURL:         cfg.JWTJWKSURL,
			CACertPath:      cfg.JWKSCACertPath,
			Issuer:          cfg.JWTIssuer,
			ClientTimeout:   cfg.JWKSClientTimeout,
			RefreshInterval: cfg.JWKSRefreshInterval,
			JWTLeeway:       cfg.JWTLeeway,
		}, logger)
		if err != nil {
			logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
			os.Exit(1)
		}
		middlewares = append(middlewares, server.JWTAuthWithExclusions(jwtAuth.Middleware(), "/health/", "/metrics"))
		logger.Info("JWT middleware инициализирован",
			slog.String("jwks_url", cfg.JWTJWKSURL),
			slog.String("issuer", cfg.JWTIssuer),
		)
	} else {
		logger.Warn("TD_JWT_JWKS_URL не задан, аутентификация отключена")
	}
	middlewares = append(middlewares, validator.Middleware())

	// 12. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, middlewares...)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 13. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("talentdesk остановлен",
		slog.Int("open_sessions", sessions.Len()),
	)
}
