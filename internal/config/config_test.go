package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

// setEnvs устанавливает переменные окружения на время теста.
func setEnvs(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

// minimalEnvs возвращает минимальный набор обязательных переменных.
func minimalEnvs() map[string]string {
	return map[string]string{
		"PE_DB_HOST":                     "localhost",
		"PE_DB_NAME":                     "publications",
		"PE_DB_USER":                     "pe",
		"PE_DB_PASSWORD":                 "secret",
		"PE_DOCUMENTS_API_URL":           "https://documenten.example.nl/api/v1",
		"PE_DOCUMENTS_API_RSIN":          "000000000",
		"PE_DOCUMENTS_API_DOCUMENT_TYPE": "https://catalogi.example.nl/api/v1/informatieobjecttypen/1",
		"PE_SEARCH_URL":                  "http://search:8000/api/v1",
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: неожиданная ошибка: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, ожидается 8080", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, ожидается 5432", cfg.DBPort)
	}
	if cfg.DocStoreDriver != DocStoreDocumentsAPI {
		t.Errorf("DocStoreDriver = %q, ожидается %q", cfg.DocStoreDriver, DocStoreDocumentsAPI)
	}
	if cfg.SyncMaxAttempts != 10 {
		t.Errorf("SyncMaxAttempts = %d, ожидается 10", cfg.SyncMaxAttempts)
	}
	if cfg.SyncBackoffBase != 5*time.Second || cfg.SyncBackoffCeiling != 30*time.Minute {
		t.Errorf("backoff = %s/%s, ожидается 5s/30m", cfg.SyncBackoffBase, cfg.SyncBackoffCeiling)
	}
	if cfg.UploadMaxDuration != 24*time.Hour {
		t.Errorf("UploadMaxDuration = %s, ожидается 24h", cfg.UploadMaxDuration)
	}
	if cfg.Timezone == nil || cfg.Timezone.String() != "Europe/Amsterdam" {
		t.Errorf("Timezone = %v, ожидается Europe/Amsterdam", cfg.Timezone)
	}
	if cfg.JWKSUrl != "" {
		t.Errorf("JWKSUrl = %q, ожидается пустое значение", cfg.JWKSUrl)
	}
}

func TestLoad_S3Driver(t *testing.T) {
	envs := minimalEnvs()
	delete(envs, "PE_DOCUMENTS_API_URL")
	delete(envs, "PE_DOCUMENTS_API_RSIN")
	delete(envs, "PE_DOCUMENTS_API_DOCUMENT_TYPE")
	envs["PE_DOCSTORE_DRIVER"] = "s3"
	envs["PE_S3_BUCKET"] = "woo-documents"
	envs["PE_S3_ENDPOINT"] = "http://minio:9000"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: неожиданная ошибка: %v", err)
	}
	if cfg.S3Bucket != "woo-documents" {
		t.Errorf("S3Bucket = %q", cfg.S3Bucket)
	}
	if !cfg.S3PathStyle {
		t.Error("S3PathStyle должен включаться при заданном endpoint")
	}
	if cfg.S3Region != "us-east-1" {
		t.Errorf("S3Region = %q, ожидается us-east-1", cfg.S3Region)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		drop    string
		wantErr string
	}{
		{name: "нет хоста БД", drop: "PE_DB_HOST", wantErr: "PE_DB_HOST"},
		{name: "нет URL поиска", drop: "PE_SEARCH_URL", wantErr: "PE_SEARCH_URL"},
		{name: "неизвестный драйвер", env: map[string]string{"PE_DOCSTORE_DRIVER": "ftp"}, wantErr: "PE_DOCSTORE_DRIVER"},
		{name: "короткий RSIN", env: map[string]string{"PE_DOCUMENTS_API_RSIN": "123"}, wantErr: "PE_DOCUMENTS_API_RSIN"},
		{name: "некорректный уровень логов", env: map[string]string{"PE_LOG_LEVEL": "trace"}, wantErr: "PE_LOG_LEVEL"},
		{name: "некорректный формат логов", env: map[string]string{"PE_LOG_FORMAT": "xml"}, wantErr: "PE_LOG_FORMAT"},
		{name: "порт вне диапазона", env: map[string]string{"PE_PORT": "70000"}, wantErr: "PE_PORT"},
		{name: "потолок меньше базы", env: map[string]string{"PE_SYNC_BACKOFF_BASE": "1m", "PE_SYNC_BACKOFF_CEILING": "10s"}, wantErr: "PE_SYNC_BACKOFF_CEILING"},
		{name: "таймаут поиска не короче аренды", env: map[string]string{"PE_SEARCH_TIMEOUT": "1m", "PE_SYNC_LEASE": "1m"}, wantErr: "PE_SYNC_LEASE"},
		{name: "нулевое число попыток", env: map[string]string{"PE_SYNC_MAX_ATTEMPTS": "0"}, wantErr: "PE_SYNC_MAX_ATTEMPTS"},
		{name: "некорректная длительность", env: map[string]string{"PE_UPLOAD_IDLE_TIMEOUT": "час"}, wantErr: "PE_UPLOAD_IDLE_TIMEOUT"},
		{name: "неизвестный часовой пояс", env: map[string]string{"PE_TIMEZONE": "Mars/Olympus"}, wantErr: "PE_TIMEZONE"},
		{name: "JWKS без схемы", env: map[string]string{"PE_JWKS_URL": "keys.example.nl"}, wantErr: "PE_JWKS_URL"},
		{name: "поиск по ftp", env: map[string]string{"PE_SEARCH_URL": "ftp://search"}, wantErr: "PE_SEARCH_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envs := minimalEnvs()
			for k, v := range tt.env {
				envs[k] = v
			}
			if tt.drop != "" {
				envs[tt.drop] = ""
			}
			setEnvs(t, envs)

			_, err := Load()
			if err == nil {
				t.Fatal("ожидалась ошибка, получен nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ошибка %q не содержит %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDatabaseURL(t *testing.T) {
	cfg := &Config{
		DBHost: "db", DBPort: 5433, DBName: "pe",
		DBUser: "user", DBPassword: "p@ss word", DBSSLMode: "require",
	}
	got := cfg.DatabaseURL()
	want := "pgx5://user:p%40ss%20word@db:5433/pe?sslmode=require"
	if got != want {
		t.Errorf("DatabaseURL = %q, ожидается %q", got, want)
	}
	if dsn := cfg.DatabaseDSN(); !strings.Contains(dsn, "port=5433") {
		t.Errorf("DatabaseDSN = %q не содержит port=5433", dsn)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		if err != nil {
			t.Errorf("parseLogLevel(%q): неожиданная ошибка %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, ожидается %v", tt.in, got, tt.want)
		}
	}
}
