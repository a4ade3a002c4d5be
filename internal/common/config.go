package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Storage  StorageConfig
	Redis    RedisConfig
	OCR      OCRConfig
	Worker   WorkerConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
	MigrationsDir   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string
}

// StorageConfig holds blob storage configuration
type StorageConfig struct {
	Bucket       string
	SignedURLTTL time.Duration
}

// RedisConfig holds cache configuration. An empty URL disables caching.
type RedisConfig struct {
	URL       string
	DetailTTL time.Duration
}

// OCRConfig holds text-extraction configuration
type OCRConfig struct {
	Tesseract     string
	Pdftotext     string
	Pdftoppm      string
	TesseractLang string
	TessdataDir   string
	DPI           int
	MaxPages      int
	PDFFallback   bool // rasterize+OCR PDFs with no embedded text layer
}

// WorkerConfig holds scheduling policy for the worker loop
type WorkerConfig struct {
	PollInterval   time.Duration
	ErrorBackoff   time.Duration
	StaleAfter     time.Duration
	ProcessTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			MigrationsDir:   getEnv("DB_MIGRATIONS_DIR", "migrations"),
		},
		Server: ServerConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		Storage: StorageConfig{
			Bucket:       getEnv("STORAGE_BUCKET", ""),
			SignedURLTTL: getEnvAsDuration("STORAGE_SIGNED_URL_TTL", time.Hour),
		},
		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", ""),
			DetailTTL: getEnvAsDuration("REDIS_DETAIL_TTL", time.Minute),
		},
		OCR: OCRConfig{
			Tesseract:     getEnv("OCR_TESSERACT", "tesseract"),
			Pdftotext:     getEnv("OCR_PDFTOTEXT", "pdftotext"),
			Pdftoppm:      getEnv("OCR_PDFTOPPM", "pdftoppm"),
			TesseractLang: getEnv("OCR_LANG", "eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 0),
			PDFFallback:   getEnvAsBool("OCR_PDF_FALLBACK", false),
		},
		Worker: WorkerConfig{
			PollInterval:   getEnvAsDuration("WORKER_POLL_INTERVAL", 3*time.Second),
			ErrorBackoff:   getEnvAsDuration("WORKER_ERROR_BACKOFF", 5*time.Second),
			StaleAfter:     getEnvAsDuration("WORKER_STALE_AFTER", 15*time.Minute),
			ProcessTimeout: getEnvAsDuration("WORKER_PROCESS_TIMEOUT", 3*time.Minute),
		},
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Storage.Bucket == "" {
		return NewAppError("CONFIG_ERROR", "STORAGE_BUCKET is required", ErrInvalidInput)
	}
	if c.Worker.PollInterval <= 0 {
		return NewAppError("CONFIG_ERROR", "WORKER_POLL_INTERVAL must be positive", ErrInvalidInput)
	}
	if c.Worker.ErrorBackoff <= 0 {
		return NewAppError("CONFIG_ERROR", "WORKER_ERROR_BACKOFF must be positive", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
