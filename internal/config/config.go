// Package config - Application configuration management.
//
// Использует Viper для:
// - Загрузки из YAML файлов
// - Переменных окружения (префикс EDGEAPI_)
// - Значений по умолчанию
//
// Порядок приоритета (от высшего к низшему):
// 1. Environment variables (в том числе из .env через godotenv)
// 2. Config file
// 3. Default values
//
// После загрузки Config не изменяется и передаётся в компоненты явно.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix - префикс переменных окружения.
const EnvPrefix = "EDGEAPI"

// Драйверы хранилища.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Режимы подсчёта записей для hasMore.
const (
	CountExact = "exact"
	CountNone  = "none"
)

// Уровни изоляции транзакций.
const (
	IsolationReadCommitted  = "read_committed"
	IsolationRepeatableRead = "repeatable_read"
	IsolationSerializable   = "serializable"
)

// ============================================
// Main Configuration
// ============================================

// Config - главная структура конфигурации приложения.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Adapter    AdapterConfig    `mapstructure:"adapter"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Log        LogConfig        `mapstructure:"log"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Lambda     LambdaConfig     `mapstructure:"lambda"`
}

// ============================================
// App Configuration
// ============================================

// AppConfig - конфигурация приложения.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	BuildTime   string `mapstructure:"build_time"`
}

// IsDevelopment возвращает true если окружение development.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction возвращает true если окружение production.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// ============================================
// Server Configuration
// ============================================

// ServerConfig - конфигурация HTTP сервера (только cmd/api).
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address возвращает полный адрес сервера.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ============================================
// Database Configuration
// ============================================

// DatabaseConfig - конфигурация базы данных.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, memory
	URL             string        `mapstructure:"url"`    // если задан, Host/Port/... не используются
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int32         `mapstructure:"max_connections"`
	MinConnections  int32         `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	// TxRetries - сколько раз повторить транзакцию после serialization
	// failure или deadlock. 0 (по умолчанию) - без повторов.
	TxRetries       int           `mapstructure:"tx_retries"`
	TxIsolation     string        `mapstructure:"tx_isolation"` // read_committed, repeatable_read, serializable
}

// DSN возвращает строку подключения к PostgreSQL.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}

// ============================================
// Adapter Configuration
// ============================================

// AdapterConfig - ограничения конвейера запросов.
type AdapterConfig struct {
	MaxBodySize           int64 `mapstructure:"max_body_size"` // байт
	ValidateContentType   bool  `mapstructure:"validate_content_type"`
	MultiValueQueryParams bool  `mapstructure:"multi_value_query_params"`
}

// ============================================
// CORS Configuration
// ============================================

// CORSConfig - конфигурация CORS. При Enabled=false заголовки не отдаются.
type CORSConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	AllowedMethods   []string      `mapstructure:"allowed_methods"`
	AllowedHeaders   []string      `mapstructure:"allowed_headers"`
	ExposedHeaders   []string      `mapstructure:"exposed_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

// ============================================
// Pagination Configuration
// ============================================

// PaginationConfig - как вычисляется hasMore.
type PaginationConfig struct {
	// CountMode: exact - точный count(*), none - по размеру страницы.
	CountMode string `mapstructure:"count_mode"`
}

// ExactCount возвращает true, если нужен точный подсчёт.
func (c *PaginationConfig) ExactCount() bool {
	return c.CountMode == CountExact
}

// ============================================
// Log Configuration
// ============================================

// LogConfig - конфигурация логирования.
type LogConfig struct {
	Level     string `mapstructure:"level"`  // debug, info, warn, error
	Format    string `mapstructure:"format"` // json, text
	Output    string `mapstructure:"output"` // stdout, stderr
	AddSource bool   `mapstructure:"add_source"`
}

// ============================================
// Telemetry Configuration
// ============================================

// TelemetryConfig - экспорт трасс через OTLP/HTTP.
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"` // host:port коллектора
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// ============================================
// Lambda Configuration
// ============================================

// LambdaConfig - какой ресурс обслуживает функция.
type LambdaConfig struct {
	// Function: projects, projects.item, profiles, profiles.item
	Function string `mapstructure:"function"`
	// PayloadVersion: 1 (REST API) или 2 (HTTP API)
	PayloadVersion int `mapstructure:"payload_version"`
}

// ============================================
// Configuration Loading
// ============================================

// Load загружает конфигурацию из файла и переменных окружения.
//
// configPath - путь к директории с конфигурацией (например, "configs")
// configName - имя файла конфигурации без расширения (например, "config")
func Load(configPath, configName string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := newViper()

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Файл не найден - используем defaults и env vars
	}

	return unmarshal(v)
}

// LoadFromEnv загружает конфигурацию только из переменных окружения.
// Используется в Lambda, где файла конфигурации нет.
func LoadFromEnv() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	return unmarshal(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv читает .env, если он есть. Уже заданные переменные
// окружения не перезаписываются.
func loadDotEnv() error {
	path := os.Getenv(EnvPrefix + "_DOTENV")
	if path == "" {
		path = ".env"
	}

	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults устанавливает значения по умолчанию.
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "edgeapi")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.build_time", "unknown")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Database defaults
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "edgeapi")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 0)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "5m")
	v.SetDefault("database.connect_timeout", "5s")
	v.SetDefault("database.tx_retries", 0)
	v.SetDefault("database.tx_isolation", IsolationReadCommitted)

	// Adapter defaults
	v.SetDefault("adapter.max_body_size", 6<<20)
	v.SetDefault("adapter.validate_content_type", true)
	v.SetDefault("adapter.multi_value_query_params", false)

	// CORS defaults
	v.SetDefault("cors.enabled", true)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization"})
	v.SetDefault("cors.exposed_headers", []string{"X-Request-ID"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", "0s")

	// Pagination defaults
	v.SetDefault("pagination.count_mode", CountExact)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.add_source", false)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4318")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.sample_ratio", 1.0)

	// Lambda defaults
	v.SetDefault("lambda.function", "projects")
	v.SetDefault("lambda.payload_version", 1)
}

// bindEnvVars привязывает переменные окружения без префикса.
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("database.url", "EDGEAPI_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("server.port", "EDGEAPI_SERVER_PORT", "PORT")
	_ = v.BindEnv("app.environment", "EDGEAPI_APP_ENVIRONMENT", "ENVIRONMENT")
	_ = v.BindEnv("telemetry.endpoint", "EDGEAPI_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// ============================================
// Configuration Validation
// ============================================

// Validate валидирует конфигурацию.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" && c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	case DriverMemory:
		if c.App.IsProduction() {
			return fmt.Errorf("memory driver is not allowed in production")
		}
	default:
		return fmt.Errorf("unknown database driver: %q", c.Database.Driver)
	}

	if c.Database.TxRetries < 0 {
		return fmt.Errorf("database tx retries must not be negative: %d", c.Database.TxRetries)
	}

	switch c.Database.TxIsolation {
	case IsolationReadCommitted, IsolationRepeatableRead, IsolationSerializable:
	default:
		return fmt.Errorf("unknown transaction isolation: %q", c.Database.TxIsolation)
	}

	if c.Adapter.MaxBodySize <= 0 {
		return fmt.Errorf("adapter max body size must be positive: %d", c.Adapter.MaxBodySize)
	}

	switch c.Pagination.CountMode {
	case CountExact, CountNone:
	default:
		return fmt.Errorf("unknown pagination count mode: %q", c.Pagination.CountMode)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be within [0, 1]: %v", c.Telemetry.SampleRatio)
	}

	if c.Lambda.PayloadVersion != 1 && c.Lambda.PayloadVersion != 2 {
		return fmt.Errorf("lambda payload version must be 1 or 2: %d", c.Lambda.PayloadVersion)
	}

	return nil
}

// ============================================
// Development Helpers
// ============================================

// Development возвращает конфигурацию для разработки.
func Development() *Config {
	return &Config{
		App: AppConfig{
			Name:        "edgeapi",
			Version:     "dev",
			Environment: "development",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          DriverPostgres,
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Password:        "postgres",
			Database:        "edgeapi",
			SSLMode:         "disable",
			MaxConnections:  10,
			MinConnections:  0,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 5 * time.Minute,
			ConnectTimeout:  5 * time.Second,
			TxRetries:       0,
			TxIsolation:     IsolationReadCommitted,
		},
		Adapter: AdapterConfig{
			MaxBodySize:         6 << 20,
			ValidateContentType: true,
		},
		CORS: CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		},
		Pagination: PaginationConfig{CountMode: CountExact},
		Log: LogConfig{
			Level:  "debug",
			Format: "text",
			Output: "stdout",
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4318",
			Insecure:    true,
			SampleRatio: 1,
		},
		Lambda: LambdaConfig{Function: "projects", PayloadVersion: 1},
	}
}

// Test возвращает конфигурацию для тестов: хранилище в памяти,
// логирование только ошибок.
func Test() *Config {
	cfg := Development()
	cfg.App.Environment = "test"
	cfg.Database.Driver = DriverMemory
	cfg.Log.Level = "error"
	return cfg
}
