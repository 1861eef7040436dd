package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/ashwini-cargo/constants"
)

// Config holds all application configuration
type Config struct {
	Store     StoreConfig
	Server    ServerConfig
	OCR       OCRConfig
	Numbering NumberingConfig
	Scan      ScanConfig
	Log       LogConfig
}

// StoreConfig selects and configures the counter store backend
type StoreConfig struct {
	Driver           string // memory | sqlite | postgres | redis
	SQLitePath       string
	PostgresDSN      string
	RedisURL         string
	RedisDB          int
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string
	GRPCAddr        string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract        string
	Language         string
	TessdataDir      string
	PSM              int
	OEM              int
	HeicConverter    string
	ArtifactCacheDir string
	MaxPages         int
}

// NumberingConfig holds identifier generator configuration
type NumberingConfig struct {
	Timezone string
	LRSeed   int64
}

// ScanConfig holds background scan queue configuration
type ScanConfig struct {
	Workers       int
	QueueSize     int
	Timeout       time.Duration
	InboxDir      string // optional folder watched for new LR documents
	InboxDebounce time.Duration
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	AddSource  bool
}

// LoadConfig loads configuration from a .env file (if present) and environment variables
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Store: StoreConfig{
			Driver:           strings.ToLower(getEnv("STORE_DRIVER", "sqlite")),
			SQLitePath:       getEnv("SQLITE_PATH", "./data/ashwini.db"),
			PostgresDSN:      getEnv("DB_URL", ""),
			RedisURL:         getEnv("REDIS_URL", ""),
			RedisDB:          getEnvAsInt("REDIS_DB", 0),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			GRPCAddr:        getEnv("GRPC_ADDR", ":9090"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
			MaxUploadBytes:  int64(getEnvAsInt("MAX_UPLOAD_MB", 15)) << 20,
		},
		OCR: OCRConfig{
			Tesseract:        getEnv("TESSERACT_BIN", "tesseract"),
			Language:         getEnv("OCR_LANG", "eng"),
			TessdataDir:      getEnv("TESSDATA_PREFIX", ""),
			PSM:              getEnvAsInt("OCR_PSM", 0),
			OEM:              getEnvAsInt("OCR_OEM", 0),
			HeicConverter:    getEnv("HEIC_CONVERTER", "magick"),
			ArtifactCacheDir: getEnv("ARTIFACT_CACHE_DIR", "./tmp"),
			MaxPages:         getEnvAsInt("OCR_MAX_PAGES", 2),
		},
		Numbering: NumberingConfig{
			Timezone: getEnv("NUMBERING_TZ", "Asia/Kolkata"),
			LRSeed:   getEnvAsInt64("LR_SEED", constants.DefaultLRSeed),
		},
		Scan: ScanConfig{
			Workers:       getEnvAsInt("SCAN_WORKERS", 2),
			QueueSize:     getEnvAsInt("SCAN_QUEUE_SIZE", 64),
			Timeout:       getEnvAsDuration("SCAN_TIMEOUT", 2*time.Minute),
			InboxDir:      getEnv("SCAN_INBOX_DIR", ""),
			InboxDebounce: getEnvAsDuration("SCAN_INBOX_DEBOUNCE", 2*time.Second),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "text"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 30),
			AddSource:  getEnvAsBool("LOG_ADD_SOURCE", false),
		},
	}
}

// Location resolves the numbering timezone, falling back to UTC.
func (c NumberingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
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

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	// scan history always lives in sqlite, whatever backs the counters
	if c.Store.SQLitePath == "" {
		return NewAppError("CONFIG_ERROR", "SQLITE_PATH is required", ErrInvalidInput)
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required for the postgres driver", ErrInvalidInput)
		}
	case "redis":
		if c.Store.RedisURL == "" {
			return NewAppError("CONFIG_ERROR", "REDIS_URL is required for the redis driver", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "STORE_DRIVER must be one of memory|sqlite|postgres|redis", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Numbering.LRSeed < 0 {
		return NewAppError("CONFIG_ERROR", "LR_SEED must not be negative", ErrInvalidInput)
	}
	return nil
}
