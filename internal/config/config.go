package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	ConnectRetries     int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// StorageConfig selects the document root backend.
// Driver is "local" (DocumentRoot on disk) or "minio".
type StorageConfig struct {
	Driver       string
	DocumentRoot string
	UploadDir    string
}

// AdminConfig is the single credential pair seeded at startup.
type AdminConfig struct {
	Username string
	Password string
}

// SessionConfig holds admin session cookie settings.
// An empty RedisAddr keeps sessions in process memory.
type SessionConfig struct {
	SecretKey     string
	TTLSec        int
	CookieSecure  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// PDFConfig controls upload-time optimisation and delivery caching.
type PDFConfig struct {
	Optimize       bool
	MaxUploadBytes int
	CacheMaxAgeSec int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port          string
	TimeZone      string
	LogLevel      string
	PublicBaseURL string
	Database      DatabaseConfig
	MinIO         MinIOConfig
	Storage       StorageConfig
	Admin         AdminConfig
	Session       SessionConfig
	PDF           PDFConfig
}

const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
)

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	dataDir := getEnv("DATA_DIR", "instance")
	if abs, err := filepath.Abs(dataDir); err == nil {
		dataDir = abs
	}

	return &AppConfig{
		Port:          getEnv("PORT", "8080"),
		TimeZone:      getEnv("APP_TZ", "UTC"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Storage: StorageConfig{
			Driver:       getEnv("STORAGE_DRIVER", "local"),
			DocumentRoot: getEnv("DOCUMENT_ROOT", filepath.Join(dataDir, "docs")),
			UploadDir:    getEnv("UPLOAD_DIR", filepath.Join(dataDir, "uploads")),
		},
		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", DefaultAdminUsername),
			Password: getEnv("ADMIN_PASSWORD", DefaultAdminPassword),
		},
		Session: SessionConfig{
			SecretKey:     getEnv("SECRET_KEY", ""),
			TTLSec:        getEnvInt("SESSION_TTL_SEC", 12*60*60),
			CookieSecure:  getEnvBool("SESSION_COOKIE_SECURE", false),
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
		PDF: PDFConfig{
			Optimize:       getEnvBool("PDF_OPTIMIZE", true),
			MaxUploadBytes: getEnvInt("MAX_UPLOAD_BYTES", 16*1024*1024),
			CacheMaxAgeSec: getEnvInt("PDF_CACHE_MAX_AGE", 86400),
		},
	}
}

// Location resolves TimeZone, falling back to UTC for unknown names.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// UsesDefaultAdminPassword reports whether ADMIN_PASSWORD was left unset.
func (c *AppConfig) UsesDefaultAdminPassword() bool {
	return c.Admin.Password == DefaultAdminPassword
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
