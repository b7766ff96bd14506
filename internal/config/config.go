package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	DB         DBConfig
	S3         S3Config
	Log        LogConfig
	CORS       CORSConfig
	Fetch      FetchConfig
	Extraction ExtractionConfig
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// StoreConfig selects the catalog database driver.
type StoreConfig struct {
	Driver     string `mapstructure:"driver"` // postgres | sqlite
	SQLitePath string `mapstructure:"sqlite_path"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds settings for the bucket that holds uploaded quote documents.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// FetchConfig bounds document downloads.
type FetchConfig struct {
	MaxBytes int64         `mapstructure:"max_bytes"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ExtractionConfig holds provider selection and per-provider settings.
type ExtractionConfig struct {
	DefaultProvider string           `mapstructure:"default_provider"`
	MockDelay       time.Duration    `mapstructure:"mock_delay"`
	LLMText         LLMTextConfig    `mapstructure:"llm_text"`
	DocumentAI      DocumentAIConfig `mapstructure:"document_ai"`
}

// LLMTextConfig configures the text-to-LLM provider.
type LLMTextConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Temperature       float32       `mapstructure:"temperature"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxTextChars      int           `mapstructure:"max_text_chars"`
	MaxRawChars       int           `mapstructure:"max_raw_chars"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// DocumentAIConfig configures the Google Document AI provider.
type DocumentAIConfig struct {
	ProjectID        string        `mapstructure:"project_id"`
	Location         string        `mapstructure:"location"`
	ProcessorID      string        `mapstructure:"processor_id"`
	CredentialsFile  string        `mapstructure:"credentials_file"`
	MaxDocumentBytes int64         `mapstructure:"max_document_bytes"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// ProcessorName returns the fully-qualified processor resource name.
func (d *DocumentAIConfig) ProcessorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", d.ProjectID, d.Location, d.ProcessorID)
}

// Load reads configuration from a .env file (if present) and environment
// variables with the QUOTEFLOW_ prefix.
func Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("QUOTEFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.environment", "development")

	// Store defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "quoteflow.db")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "quoteflow")
	v.SetDefault("db.password", "quoteflow_secret")
	v.SetDefault("db.name", "quoteflow_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "quoteflow-documents")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.presign_expiry", 900)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Fetch defaults
	v.SetDefault("fetch.max_bytes", 20<<20)
	v.SetDefault("fetch.timeout", "60s")

	// Extraction defaults
	v.SetDefault("extraction.default_provider", "mock")
	v.SetDefault("extraction.mock_delay", "500ms")
	v.SetDefault("extraction.llm_text.api_key", "")
	v.SetDefault("extraction.llm_text.base_url", "")
	v.SetDefault("extraction.llm_text.model", "gpt-4o-mini")
	v.SetDefault("extraction.llm_text.temperature", 0)
	v.SetDefault("extraction.llm_text.timeout", "120s")
	v.SetDefault("extraction.llm_text.max_text_chars", 100000)
	v.SetDefault("extraction.llm_text.max_raw_chars", 20000)
	v.SetDefault("extraction.llm_text.requests_per_second", 0)
	v.SetDefault("extraction.document_ai.project_id", "")
	v.SetDefault("extraction.document_ai.location", "us")
	v.SetDefault("extraction.document_ai.processor_id", "")
	v.SetDefault("extraction.document_ai.credentials_file", "")
	v.SetDefault("extraction.document_ai.max_document_bytes", 20<<20)
	v.SetDefault("extraction.document_ai.timeout", "120s")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                               "QUOTEFLOW_SERVER_PORT",
		"server.read_timeout":                       "QUOTEFLOW_SERVER_READ_TIMEOUT",
		"server.write_timeout":                      "QUOTEFLOW_SERVER_WRITE_TIMEOUT",
		"server.environment":                        "QUOTEFLOW_SERVER_ENVIRONMENT",
		"store.driver":                              "QUOTEFLOW_STORE_DRIVER",
		"store.sqlite_path":                         "QUOTEFLOW_STORE_SQLITE_PATH",
		"db.host":                                   "QUOTEFLOW_DB_HOST",
		"db.port":                                   "QUOTEFLOW_DB_PORT",
		"db.user":                                   "QUOTEFLOW_DB_USER",
		"db.password":                               "QUOTEFLOW_DB_PASSWORD",
		"db.name":                                   "QUOTEFLOW_DB_NAME",
		"db.sslmode":                                "QUOTEFLOW_DB_SSLMODE",
		"db.max_open":                               "QUOTEFLOW_DB_MAX_OPEN",
		"db.max_idle":                               "QUOTEFLOW_DB_MAX_IDLE",
		"s3.region":                                 "QUOTEFLOW_S3_REGION",
		"s3.bucket":                                 "QUOTEFLOW_S3_BUCKET",
		"s3.endpoint":                               "QUOTEFLOW_S3_ENDPOINT",
		"s3.access_key":                             "QUOTEFLOW_S3_ACCESS_KEY",
		"s3.secret_key":                             "QUOTEFLOW_S3_SECRET_KEY",
		"s3.presign_expiry":                         "QUOTEFLOW_S3_PRESIGN_EXPIRY",
		"log.level":                                 "QUOTEFLOW_LOG_LEVEL",
		"log.format":                                "QUOTEFLOW_LOG_FORMAT",
		"cors.allowed_origins":                      "QUOTEFLOW_CORS_ALLOWED_ORIGINS",
		"fetch.max_bytes":                           "QUOTEFLOW_FETCH_MAX_BYTES",
		"fetch.timeout":                             "QUOTEFLOW_FETCH_TIMEOUT",
		"extraction.default_provider":               "QUOTEFLOW_EXTRACTION_DEFAULT_PROVIDER",
		"extraction.mock_delay":                     "QUOTEFLOW_EXTRACTION_MOCK_DELAY",
		"extraction.llm_text.api_key":               "QUOTEFLOW_LLM_API_KEY",
		"extraction.llm_text.base_url":              "QUOTEFLOW_LLM_BASE_URL",
		"extraction.llm_text.model":                 "QUOTEFLOW_LLM_MODEL",
		"extraction.llm_text.temperature":           "QUOTEFLOW_LLM_TEMPERATURE",
		"extraction.llm_text.timeout":               "QUOTEFLOW_LLM_TIMEOUT",
		"extraction.llm_text.max_text_chars":        "QUOTEFLOW_LLM_MAX_TEXT_CHARS",
		"extraction.llm_text.max_raw_chars":         "QUOTEFLOW_LLM_MAX_RAW_CHARS",
		"extraction.llm_text.requests_per_second":   "QUOTEFLOW_LLM_REQUESTS_PER_SECOND",
		"extraction.document_ai.project_id":         "QUOTEFLOW_DOCAI_PROJECT_ID",
		"extraction.document_ai.location":           "QUOTEFLOW_DOCAI_LOCATION",
		"extraction.document_ai.processor_id":       "QUOTEFLOW_DOCAI_PROCESSOR_ID",
		"extraction.document_ai.credentials_file":   "QUOTEFLOW_DOCAI_CREDENTIALS_FILE",
		"extraction.document_ai.max_document_bytes": "QUOTEFLOW_DOCAI_MAX_DOCUMENT_BYTES",
		"extraction.document_ai.timeout":            "QUOTEFLOW_DOCAI_TIMEOUT",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Platforms like Railway set PORT. Use it if QUOTEFLOW_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("QUOTEFLOW_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.Store = StoreConfig{
		Driver:     v.GetString("store.driver"),
		SQLitePath: v.GetString("store.sqlite_path"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	cfg.Fetch = FetchConfig{
		MaxBytes: v.GetInt64("fetch.max_bytes"),
		Timeout:  v.GetDuration("fetch.timeout"),
	}
	cfg.Extraction = ExtractionConfig{
		DefaultProvider: v.GetString("extraction.default_provider"),
		MockDelay:       v.GetDuration("extraction.mock_delay"),
		LLMText: LLMTextConfig{
			APIKey:            v.GetString("extraction.llm_text.api_key"),
			BaseURL:           v.GetString("extraction.llm_text.base_url"),
			Model:             v.GetString("extraction.llm_text.model"),
			Temperature:       float32(v.GetFloat64("extraction.llm_text.temperature")),
			Timeout:           v.GetDuration("extraction.llm_text.timeout"),
			MaxTextChars:      v.GetInt("extraction.llm_text.max_text_chars"),
			MaxRawChars:       v.GetInt("extraction.llm_text.max_raw_chars"),
			RequestsPerSecond: v.GetFloat64("extraction.llm_text.requests_per_second"),
		},
		DocumentAI: DocumentAIConfig{
			ProjectID:        v.GetString("extraction.document_ai.project_id"),
			Location:         v.GetString("extraction.document_ai.location"),
			ProcessorID:      v.GetString("extraction.document_ai.processor_id"),
			CredentialsFile:  v.GetString("extraction.document_ai.credentials_file"),
			MaxDocumentBytes: v.GetInt64("extraction.document_ai.max_document_bytes"),
			Timeout:          v.GetDuration("extraction.document_ai.timeout"),
		},
	}

	if cfg.Store.Driver != "postgres" && cfg.Store.Driver != "sqlite" {
		return nil, fmt.Errorf("config: unsupported store driver %q", cfg.Store.Driver)
	}

	return cfg, nil
}
