// Пакет config — загрузка и валидация конфигурации Publication Engine
// из переменных окружения PE_*.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Драйверы хранилища документов.
const (
	DocStoreDocumentsAPI = "documents-api"
	DocStoreS3           = "s3"
)

// Config содержит все параметры конфигурации Publication Engine.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// PostgreSQL
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// Хранилище документов: documents-api или s3
	DocStoreDriver string
	// Documents API: базовый URL, авторизация (API-ключ или ZGW client_id/secret),
	// RSIN организации, тип информационного объекта
	DocumentsAPIURL      string
	DocumentsAPIToken    string
	DocumentsAPIClientID string
	DocumentsAPISecret   string
	DocumentsAPIRSIN     string
	DocumentsAPIDocType  string
	DocumentsAPICACert   string
	DocStoreTimeout      time.Duration
	// S3-совместимое хранилище
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool

	// S3AccessKeyID/S3SecretAccessKey — пустые: стандартная цепочка AWS
	S3AccessKeyID     string
	S3SecretAccessKey string

	// Поисковый сервис
	SearchURL     string
	SearchToken   string
	SearchTimeout time.Duration

	// Синхронизация индекса (outbox)
	SyncPollInterval   time.Duration
	SyncBatchSize      int
	SyncConcurrency    int
	SyncLease          time.Duration
	SyncBackoffBase    time.Duration
	SyncBackoffCeiling time.Duration
	SyncMaxAttempts    int

	// Сессии загрузки
	UploadMaxDuration     time.Duration
	UploadMaxChunks       int
	UploadIdleTimeout     time.Duration
	UploadJanitorInterval time.Duration

	// Часовой пояс расчёта дат хранения
	Timezone *time.Location

	// Кэш информационных категорий
	CategoryCacheSize int
	CategoryCacheTTL  time.Duration

	// JWT (опционально): при пустом JWKSUrl инициатор берётся из Audit-* заголовков
	JWKSUrl             string
	JWKSRefreshInterval time.Duration
	JWTIssuer           string
	JWTLeeway           time.Duration

	// topologymetrics
	DephealthGroup         string
	DephealthCheckInterval time.Duration
	DephealthName          string

	// Таймауты HTTP-сервера
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	// Таймаут graceful shutdown
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// PE_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("PE_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("PE_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PE_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("PE_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("PE_LOG_LEVEL: %w", err)
	}
	cfg.LogFormat = getEnvDefault("PE_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("PE_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	if err := loadDatabase(cfg); err != nil {
		return nil, err
	}
	if err := loadDocStore(cfg); err != nil {
		return nil, err
	}
	if err := loadSearch(cfg); err != nil {
		return nil, err
	}
	if err := loadSync(cfg); err != nil {
		return nil, err
	}
	if err := loadUploads(cfg); err != nil {
		return nil, err
	}

	// PE_TIMEZONE — часовой пояс для дат хранения (по умолчанию Europe/Amsterdam)
	tzName := getEnvDefault("PE_TIMEZONE", "Europe/Amsterdam")
	cfg.Timezone, err = time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("PE_TIMEZONE: неизвестный часовой пояс %q", tzName)
	}

	cfg.CategoryCacheSize, err = getEnvInt("PE_CATEGORY_CACHE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("PE_CATEGORY_CACHE_SIZE: %w", err)
	}
	if cfg.CategoryCacheSize < 1 {
		return nil, fmt.Errorf("PE_CATEGORY_CACHE_SIZE: значение должно быть положительным")
	}
	cfg.CategoryCacheTTL, err = getEnvDuration("PE_CATEGORY_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("PE_CATEGORY_CACHE_TTL: %w", err)
	}

	// PE_JWKS_URL — опционально, включает проверку Bearer-токенов
	cfg.JWKSUrl = getEnvDefault("PE_JWKS_URL", "")
	if cfg.JWKSUrl != "" {
		if err := validateURL("PE_JWKS_URL", cfg.JWKSUrl); err != nil {
			return nil, err
		}
	}
	cfg.JWKSRefreshInterval, err = getEnvDuration("PE_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("PE_JWKS_REFRESH_INTERVAL: %w", err)
	}
	cfg.JWTIssuer = getEnvDefault("PE_JWT_ISSUER", "")
	cfg.JWTLeeway, err = getEnvDuration("PE_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PE_JWT_LEEWAY: %w", err)
	}

	cfg.DephealthGroup = getEnvDefault("PE_DEPHEALTH_GROUP", "publication-engine")
	cfg.DephealthCheckInterval, err = getEnvDuration("PE_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PE_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	// DEPHEALTH_NAME — имя владельца пода для метки name (без префикса модуля)
	cfg.DephealthName = getEnvDefault("DEPHEALTH_NAME", "")

	cfg.HTTPReadTimeout, err = getEnvDuration("PE_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PE_HTTP_READ_TIMEOUT: %w", err)
	}
	// Загрузка частей идёт потоком, поэтому запас по записи больше чтения
	cfg.HTTPWriteTimeout, err = getEnvDuration("PE_HTTP_WRITE_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("PE_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("PE_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PE_HTTP_IDLE_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout, err = getEnvDuration("PE_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PE_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

func loadDatabase(cfg *Config) error {
	var err error
	cfg.DBHost, err = getEnvRequired("PE_DB_HOST")
	if err != nil {
		return err
	}
	cfg.DBPort, err = getEnvInt("PE_DB_PORT", 5432)
	if err != nil {
		return fmt.Errorf("PE_DB_PORT: %w", err)
	}
	cfg.DBName, err = getEnvRequired("PE_DB_NAME")
	if err != nil {
		return err
	}
	cfg.DBUser, err = getEnvRequired("PE_DB_USER")
	if err != nil {
		return err
	}
	cfg.DBPassword, err = getEnvRequired("PE_DB_PASSWORD")
	if err != nil {
		return err
	}
	cfg.DBSSLMode = getEnvDefault("PE_DB_SSL_MODE", "disable")
	return nil
}

func loadDocStore(cfg *Config) error {
	var err error
	cfg.DocStoreDriver = getEnvDefault("PE_DOCSTORE_DRIVER", DocStoreDocumentsAPI)

	switch cfg.DocStoreDriver {
	case DocStoreDocumentsAPI:
		cfg.DocumentsAPIURL, err = getEnvRequired("PE_DOCUMENTS_API_URL")
		if err != nil {
			return err
		}
		if err := validateURL("PE_DOCUMENTS_API_URL", cfg.DocumentsAPIURL); err != nil {
			return err
		}
		cfg.DocumentsAPIToken = getEnvDefault("PE_DOCUMENTS_API_TOKEN", "")
		cfg.DocumentsAPIClientID = getEnvDefault("PE_DOCUMENTS_API_CLIENT_ID", "")
		cfg.DocumentsAPISecret = getEnvDefault("PE_DOCUMENTS_API_SECRET", "")
		if (cfg.DocumentsAPIClientID == "") != (cfg.DocumentsAPISecret == "") {
			return fmt.Errorf("PE_DOCUMENTS_API_CLIENT_ID и PE_DOCUMENTS_API_SECRET задаются вместе")
		}
		cfg.DocumentsAPIRSIN, err = getEnvRequired("PE_DOCUMENTS_API_RSIN")
		if err != nil {
			return err
		}
		if len(cfg.DocumentsAPIRSIN) != 9 {
			return fmt.Errorf("PE_DOCUMENTS_API_RSIN: ожидается 9 цифр, получено %q", cfg.DocumentsAPIRSIN)
		}
		cfg.DocumentsAPIDocType, err = getEnvRequired("PE_DOCUMENTS_API_DOCUMENT_TYPE")
		if err != nil {
			return err
		}
		cfg.DocumentsAPICACert = getEnvDefault("PE_DOCUMENTS_API_CA_CERT", "")
	case DocStoreS3:
		cfg.S3Bucket, err = getEnvRequired("PE_S3_BUCKET")
		if err != nil {
			return err
		}
		cfg.S3Region = getEnvDefault("PE_S3_REGION", "us-east-1")
		cfg.S3Endpoint = getEnvDefault("PE_S3_ENDPOINT", "")
		cfg.S3AccessKeyID = getEnvDefault("PE_S3_ACCESS_KEY_ID", "")
		cfg.S3SecretAccessKey = getEnvDefault("PE_S3_SECRET_ACCESS_KEY", "")
		if (cfg.S3AccessKeyID == "") != (cfg.S3SecretAccessKey == "") {
			return fmt.Errorf("PE_S3_ACCESS_KEY_ID и PE_S3_SECRET_ACCESS_KEY задаются вместе")
		}
		if cfg.S3Endpoint != "" {
			if err := validateURL("PE_S3_ENDPOINT", cfg.S3Endpoint); err != nil {
				return err
			}
		}
		cfg.S3PathStyle, err = getEnvBool("PE_S3_PATH_STYLE", cfg.S3Endpoint != "")
		if err != nil {
			return fmt.Errorf("PE_S3_PATH_STYLE: %w", err)
		}
	default:
		return fmt.Errorf("PE_DOCSTORE_DRIVER: недопустимое значение %q, допустимые: %s, %s",
			cfg.DocStoreDriver, DocStoreDocumentsAPI, DocStoreS3)
	}

	cfg.DocStoreTimeout, err = getEnvDuration("PE_DOCSTORE_TIMEOUT", 60*time.Second)
	if err != nil {
		return fmt.Errorf("PE_DOCSTORE_TIMEOUT: %w", err)
	}
	return nil
}

func loadSearch(cfg *Config) error {
	var err error
	cfg.SearchURL, err = getEnvRequired("PE_SEARCH_URL")
	if err != nil {
		return err
	}
	if err := validateURL("PE_SEARCH_URL", cfg.SearchURL); err != nil {
		return err
	}
	cfg.SearchToken = getEnvDefault("PE_SEARCH_TOKEN", "")
	cfg.SearchTimeout, err = getEnvDuration("PE_SEARCH_TIMEOUT", 10*time.Second)
	if err != nil {
		return fmt.Errorf("PE_SEARCH_TIMEOUT: %w", err)
	}
	return nil
}

func loadSync(cfg *Config) error {
	var err error
	cfg.SyncPollInterval, err = getEnvDuration("PE_SYNC_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		return fmt.Errorf("PE_SYNC_POLL_INTERVAL: %w", err)
	}
	cfg.SyncBatchSize, err = getEnvInt("PE_SYNC_BATCH_SIZE", 50)
	if err != nil {
		return fmt.Errorf("PE_SYNC_BATCH_SIZE: %w", err)
	}
	if cfg.SyncBatchSize < 1 || cfg.SyncBatchSize > 1000 {
		return fmt.Errorf("PE_SYNC_BATCH_SIZE: значение %d вне диапазона 1-1000", cfg.SyncBatchSize)
	}
	cfg.SyncConcurrency, err = getEnvInt("PE_SYNC_CONCURRENCY", 8)
	if err != nil {
		return fmt.Errorf("PE_SYNC_CONCURRENCY: %w", err)
	}
	if cfg.SyncConcurrency < 1 {
		return fmt.Errorf("PE_SYNC_CONCURRENCY: значение должно быть положительным")
	}
	cfg.SyncLease, err = getEnvDuration("PE_SYNC_LEASE", time.Minute)
	if err != nil {
		return fmt.Errorf("PE_SYNC_LEASE: %w", err)
	}
	// Вызов индекса должен укладываться в аренду задачи.
	if cfg.SearchTimeout >= cfg.SyncLease {
		return fmt.Errorf("PE_SYNC_LEASE: значение %s должно быть больше PE_SEARCH_TIMEOUT (%s)",
			cfg.SyncLease, cfg.SearchTimeout)
	}
	cfg.SyncBackoffBase, err = getEnvDuration("PE_SYNC_BACKOFF_BASE", 5*time.Second)
	if err != nil {
		return fmt.Errorf("PE_SYNC_BACKOFF_BASE: %w", err)
	}
	cfg.SyncBackoffCeiling, err = getEnvDuration("PE_SYNC_BACKOFF_CEILING", 30*time.Minute)
	if err != nil {
		return fmt.Errorf("PE_SYNC_BACKOFF_CEILING: %w", err)
	}
	if cfg.SyncBackoffCeiling < cfg.SyncBackoffBase {
		return fmt.Errorf("PE_SYNC_BACKOFF_CEILING: значение %s меньше PE_SYNC_BACKOFF_BASE (%s)",
			cfg.SyncBackoffCeiling, cfg.SyncBackoffBase)
	}
	cfg.SyncMaxAttempts, err = getEnvInt("PE_SYNC_MAX_ATTEMPTS", 10)
	if err != nil {
		return fmt.Errorf("PE_SYNC_MAX_ATTEMPTS: %w", err)
	}
	if cfg.SyncMaxAttempts < 1 {
		return fmt.Errorf("PE_SYNC_MAX_ATTEMPTS: значение должно быть положительным")
	}
	return nil
}

func loadUploads(cfg *Config) error {
	var err error
	cfg.UploadMaxDuration, err = getEnvDuration("PE_UPLOAD_MAX_DURATION", 24*time.Hour)
	if err != nil {
		return fmt.Errorf("PE_UPLOAD_MAX_DURATION: %w", err)
	}
	cfg.UploadMaxChunks, err = getEnvInt("PE_UPLOAD_MAX_CHUNKS", 10000)
	if err != nil {
		return fmt.Errorf("PE_UPLOAD_MAX_CHUNKS: %w", err)
	}
	if cfg.UploadMaxChunks < 1 {
		return fmt.Errorf("PE_UPLOAD_MAX_CHUNKS: значение должно быть положительным")
	}
	cfg.UploadIdleTimeout, err = getEnvDuration("PE_UPLOAD_IDLE_TIMEOUT", time.Hour)
	if err != nil {
		return fmt.Errorf("PE_UPLOAD_IDLE_TIMEOUT: %w", err)
	}
	cfg.UploadJanitorInterval, err = getEnvDuration("PE_UPLOAD_JANITOR_INTERVAL", 5*time.Minute)
	if err != nil {
		return fmt.Errorf("PE_UPLOAD_JANITOR_INTERVAL: %w", err)
	}
	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения для golang-migrate (схема pgx5).
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное логическое значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 6h)", val)
	}
	if d <= 0 {
		return 0, fmt.Errorf("длительность должна быть положительной: %q", val)
	}
	return d, nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s: некорректный URL %q", key, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: недопустимая схема %q, допустимые: http, https", key, u.Scheme)
	}
	return nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
