// Пакет config — загрузка и валидация конфигурации Analysis Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Режимы проверки JWT.
const (
	// AuthModeSecret — HS256, общий секрет (AN_JWT_SECRET).
	AuthModeSecret = "secret"
	// AuthModeJWKS — RS256, публичные ключи с JWKS endpoint внешнего IdP.
	AuthModeJWKS = "jwks"
)

// Config содержит все параметры конфигурации Analysis Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 8040-8049)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 60s)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// --- Аутентификация ---

	// Режим проверки токенов: secret (HS256) или jwks (RS256)
	AuthMode string
	// Секрет для HS256 (обязателен в режиме secret)
	JWTSecret string
	// Ожидаемый issuer JWT (пустая строка — issuer не проверяется)
	JWTIssuer string
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration
	// URL JWKS endpoint (обязателен в режиме jwks)
	JWKSURL string
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Путь к CA-сертификату для JWKS endpoint (опционально)
	CACertPath string
	// Пропускать проверку TLS-сертификатов (dev-среда)
	TLSSkipVerify bool

	// --- Кэш метаданных ---

	// Максимальное количество записей в LRU-кэше
	CacheSize int
	// TTL записи кэша
	CacheTTL time.Duration

	// --- Storage guard ---

	// TTL кэшированного результата проверки доступности PostgreSQL
	StorageGuardTTL time.Duration

	// --- Dependency health (topologymetrics) ---

	// Включение мониторинга зависимостей
	DephealthEnabled bool
	// Имя группы в метриках
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// --- Analyzer (OpenAI) ---

	// API-ключ OpenAI (пустая строка — анализатор отключён)
	OpenAIAPIKey string
	// Модель для анализа текста
	OpenAIModel string
	// Таймаут запроса к OpenAI
	OpenAITimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// AN_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("AN_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("AN_PORT: %w", err)
	}

	// AN_LOG_LEVEL — уровень логирования (по умолчанию info)
	logLevel := getEnvDefault("AN_LOG_LEVEL", "info")
	cfg.LogLevel, err = parseLogLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("AN_LOG_LEVEL: %w", err)
	}

	// AN_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("AN_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("AN_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("AN_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AN_HTTP_READ_TIMEOUT: %w", err)
	}

	cfg.HTTPWriteTimeout, err = getEnvDuration("AN_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AN_HTTP_WRITE_TIMEOUT: %w", err)
	}

	cfg.HTTPIdleTimeout, err = getEnvDuration("AN_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AN_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// AN_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("AN_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AN_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	// AN_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("AN_DB_HOST")
	if err != nil {
		return nil, err
	}

	// AN_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("AN_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("AN_DB_PORT: %w", err)
	}

	// AN_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("AN_DB_NAME")
	if err != nil {
		return nil, err
	}

	// AN_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("AN_DB_USER")
	if err != nil {
		return nil, err
	}

	// AN_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("AN_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// AN_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("AN_DB_SSL_MODE", "disable")
	switch cfg.DBSSLMode {
	case "disable", "require", "verify-ca", "verify-full":
	default:
		return nil, fmt.Errorf("AN_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Аутентификация ---

	// AN_AUTH_MODE — режим проверки токенов (по умолчанию secret)
	cfg.AuthMode = getEnvDefault("AN_AUTH_MODE", AuthModeSecret)
	switch cfg.AuthMode {
	case AuthModeSecret:
		// AN_JWT_SECRET — обязателен в режиме secret
		cfg.JWTSecret, err = getEnvRequired("AN_JWT_SECRET")
		if err != nil {
			return nil, err
		}
	case AuthModeJWKS:
		// AN_AUTH_JWKS_URL — обязателен в режиме jwks
		cfg.JWKSURL, err = getEnvRequired("AN_AUTH_JWKS_URL")
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("AN_AUTH_MODE: недопустимое значение %q, допустимые: secret, jwks", cfg.AuthMode)
	}

	// AN_JWT_ISSUER — ожидаемый issuer (опционально)
	cfg.JWTIssuer = getEnvDefault("AN_JWT_ISSUER", "")

	// AN_JWT_LEEWAY — допустимое отклонение времени (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("AN_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AN_JWT_LEEWAY: %w", err)
	}

	cfg.JWKSClientTimeout, err = getEnvDuration("AN_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AN_JWKS_CLIENT_TIMEOUT: %w", err)
	}

	cfg.JWKSRefreshInterval, err = getEnvDuration("AN_JWKS_REFRESH_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("AN_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// AN_CA_CERT_PATH — CA-сертификат для JWKS endpoint (опционально)
	cfg.CACertPath = getEnvDefault("AN_CA_CERT_PATH", "")

	// AN_TLS_SKIP_VERIFY — пропуск проверки TLS-сертификатов (dev-среда)
	cfg.TLSSkipVerify, err = getEnvBool("AN_TLS_SKIP_VERIFY", false)
	if err != nil {
		return nil, fmt.Errorf("AN_TLS_SKIP_VERIFY: %w", err)
	}

	// --- Кэш метаданных ---

	// AN_CACHE_SIZE — размер LRU-кэша (по умолчанию 1024)
	cfg.CacheSize, err = getEnvInt("AN_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("AN_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize < 1 {
		return nil, fmt.Errorf("AN_CACHE_SIZE: значение должно быть >= 1")
	}

	// AN_CACHE_TTL — TTL записи кэша (по умолчанию 5m)
	cfg.CacheTTL, err = getEnvDuration("AN_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("AN_CACHE_TTL: %w", err)
	}

	// --- Storage guard ---

	// AN_STORAGE_GUARD_TTL — TTL кэша проверки доступности БД (по умолчанию 5s)
	cfg.StorageGuardTTL, err = getEnvDuration("AN_STORAGE_GUARD_TTL", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AN_STORAGE_GUARD_TTL: %w", err)
	}

	// --- Dependency health ---

	cfg.DephealthEnabled, err = getEnvBool("AN_DEPHEALTH_ENABLED", false)
	if err != nil {
		return nil, fmt.Errorf("AN_DEPHEALTH_ENABLED: %w", err)
	}

	cfg.DephealthGroup = getEnvDefault("AN_DEPHEALTH_GROUP", "goanstore")

	cfg.DephealthCheckInterval, err = getEnvDuration("AN_DEPHEALTH_CHECK_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AN_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Analyzer ---

	// AN_OPENAI_API_KEY — пустая строка отключает analyzer endpoint
	cfg.OpenAIAPIKey = getEnvDefault("AN_OPENAI_API_KEY", "")

	// AN_OPENAI_MODEL — модель анализа (по умолчанию gpt-4o-mini)
	cfg.OpenAIModel = getEnvDefault("AN_OPENAI_MODEL", "gpt-4o-mini")

	// AN_OPENAI_TIMEOUT — таймаут запроса к OpenAI (по умолчанию 60s)
	cfg.OpenAITimeout, err = getEnvDuration("AN_OPENAI_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AN_OPENAI_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL
// (для golang-migrate и метрик dephealth).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
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

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
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

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
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
