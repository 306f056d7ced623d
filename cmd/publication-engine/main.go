// Точка входа Publication Engine — реестр публикаций и документов Woo.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// создаёт клиенты хранилища документов и поискового сервиса, сервисный слой
// и API handlers, запускает фоновые задачи (синхронизация индекса, очистка
// сессий загрузки, topologymetrics) и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/woo-publications/internal/api/handlers"
	"github.com/bigkaa/woo-publications/internal/api/middleware"
	"github.com/bigkaa/woo-publications/internal/config"
	"github.com/bigkaa/woo-publications/internal/database"
	"github.com/bigkaa/woo-publications/internal/docstore"
	"github.com/bigkaa/woo-publications/internal/docstore/s3store"
	"github.com/bigkaa/woo-publications/internal/repository"
	"github.com/bigkaa/woo-publications/internal/searchclient"
	"github.com/bigkaa/woo-publications/internal/server"
	"github.com/bigkaa/woo-publications/internal/service"
)

const jwksClientTimeout = 10 * time.Second

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Publication Engine запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("docstore", cfg.DocStoreDriver),
		slog.String("timezone", cfg.Timezone.String()),
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

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	store := repository.NewStore(pool)

	// 5. Хранилище документов
	docs, docsURL, err := buildDocStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища документов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Клиент поискового сервиса
	search := searchclient.New(cfg.SearchURL, cfg.SearchToken, cfg.SearchTimeout, logger)

	// 7. Сервисный слой
	categories := service.NewCategoryCache(store, cfg.CategoryCacheSize, cfg.CategoryCacheTTL)
	retentionSvc := service.NewRetentionService(store, categories, cfg.Timezone, logger)

	syncSvc := service.NewIndexSynchronizer(store, search, service.NewProjector(store, categories), service.SyncConfig{
		PollInterval:   cfg.SyncPollInterval,
		BatchSize:      cfg.SyncBatchSize,
		Concurrency:    cfg.SyncConcurrency,
		Lease:          cfg.SyncLease,
		BackoffBase:    cfg.SyncBackoffBase,
		BackoffCeiling: cfg.SyncBackoffCeiling,
		MaxAttempts:    cfg.SyncMaxAttempts,
	}, logger)

	lifecycleSvc := service.NewLifecycleService(store, retentionSvc, docs, syncSvc, logger)
	uploadSvc := service.NewUploadService(store, docs, service.UploadLimits{
		MaxDuration: cfg.UploadMaxDuration,
		MaxChunks:   cfg.UploadMaxChunks,
		IdleTimeout: cfg.UploadIdleTimeout,
	}, logger)
	ownershipSvc := service.NewOwnershipService(store, logger)
	bulkSvc := service.NewBulkService(store, lifecycleSvc, syncSvc, cfg.SyncConcurrency, logger)
	auditSvc := service.NewAuditService(store, logger)

	// 8. Фоновые задачи
	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()

	syncSvc.Start(bgCtx)
	janitor := service.NewUploadJanitor(uploadSvc, cfg.UploadJanitorInterval, logger)
	janitor.Start(bgCtx)

	// 9. topologymetrics (некритично: без него сервис работает)
	var deps handlers.DependencyReporter
	dephealthSvc, err := service.NewDephealthService(
		"publication-engine",
		cfg.DephealthGroup,
		pgDB,
		service.DependencyURLs{
			Postgres: cfg.DatabaseURL(),
			Search:   cfg.SearchURL,
			DocStore: docsURL,
		},
		cfg.DephealthCheckInterval,
		logger,
	)
	if err != nil {
		logger.Warn("topologymetrics не инициализирован", slog.String("error", err.Error()))
		dephealthSvc = nil
	} else if err := dephealthSvc.Start(bgCtx); err != nil {
		logger.Warn("topologymetrics не запущен", slog.String("error", err.Error()))
		dephealthSvc = nil
	} else {
		deps = dephealthSvc
	}

	// 10. Аутентификация: JWT при заданном JWKS, иначе заголовки Audit-*
	var jwtAuth *middleware.JWTAuth
	if cfg.JWKSUrl != "" {
		jwtAuth, err = middleware.NewJWTAuth(cfg.JWKSUrl, cfg.JWTIssuer,
			jwksClientTimeout, cfg.JWKSRefreshInterval, cfg.JWTLeeway, logger)
		if err != nil {
			logger.Error("Ошибка инициализации JWT", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Инициатор изменений определяется по JWT", slog.String("jwks_url", cfg.JWKSUrl))
	} else {
		logger.Warn("PE_JWKS_URL не задан, инициатор изменений берётся из заголовков Audit-*")
	}

	// 11. API handlers и HTTP-сервер
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool), deps, syncSvc)
	apiHandler := handlers.NewAPIHandler(
		healthHandler, lifecycleSvc, uploadSvc, retentionSvc,
		ownershipSvc, bulkSvc, auditSvc, syncSvc, logger,
	)

	srv, err := server.New(cfg, logger, apiHandler, jwtAuth)
	if err != nil {
		logger.Error("Ошибка инициализации HTTP-сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
	}

	// 12. Остановка фоновых задач
	logger.Info("Останавливаем фоновые задачи...")
	bgCancel()
	syncSvc.Stop()
	janitor.Stop()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Publication Engine остановлен")
}

// buildDocStore создаёт драйвер хранилища документов по PE_DOCSTORE_DRIVER.
// Второе значение — URL для проверки доступности (пустой — без проверки).
func buildDocStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (docstore.Store, string, error) {
	if cfg.DocStoreDriver == config.DocStoreS3 {
		st, err := s3store.New(ctx, s3store.Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			PathStyle:       cfg.S3PathStyle,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		}, logger)
		if err != nil {
			return nil, "", err
		}
		return st, cfg.S3Endpoint, nil
	}

	token := docstore.StaticToken(cfg.DocumentsAPIToken)
	if cfg.DocumentsAPIClientID != "" {
		token = docstore.ZGWToken(cfg.DocumentsAPIClientID, cfg.DocumentsAPISecret, nil)
	}
	client, err := docstore.NewDocumentsAPIClient(docstore.DocumentsAPIConfig{
		BaseURL:      cfg.DocumentsAPIURL,
		RSIN:         cfg.DocumentsAPIRSIN,
		DocumentType: cfg.DocumentsAPIDocType,
		CACertPath:   cfg.DocumentsAPICACert,
		Timeout:      cfg.DocStoreTimeout,
		Token:        token,
	}, logger)
	if err != nil {
		return nil, "", err
	}
	return client, cfg.DocumentsAPIURL, nil
}
