// ==============================================
// CivicConnect Configuration
// Environment-driven configuration without YAML
// ==============================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultJWTSecret = "change-me-in-production"

// ==============================================
// Main Configuration Structure
// ==============================================

type Config struct {
	App        AppConfig
	Server     ServerConfig
	Database   DatabaseConfig
	Storage    StorageConfig
	Security   SecurityConfig
	Classifier ClassifierConfig
	Assistant  AssistantConfig
	Complaints ComplaintsConfig
}

// ==============================================
// Application Configuration
// ==============================================

type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Port        string
	Debug       bool
}

// ==============================================
// Server Configuration
// ==============================================

type ServerConfig struct {
	HTTP      HTTPConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
}

type HTTPConfig struct {
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     bool
	MaxMessageSize  int64
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// ==============================================
// Database Configuration
// ==============================================

type DatabaseConfig struct {
	MongoDB MongoConfig
	Redis   RedisConfig
}

type MongoConfig struct {
	URI                    string
	Database               string
	MaxPoolSize            uint64
	MinPoolSize            uint64
	MaxConnIdleTime        time.Duration
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
	HeartbeatInterval      time.Duration
}

// RedisConfig is optional; an empty URL disables Redis.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

// ==============================================
// Storage Configuration
// ==============================================

type StorageConfig struct {
	Driver        string // mongo or memory
	UploadDir     string
	PublicPrefix  string
	MaxUploadSize int64
}

// ==============================================
// Security Configuration
// ==============================================

type SecurityConfig struct {
	JWT       JWTConfig
	RateLimit RateLimitConfig
}

type JWTConfig struct {
	Secret       string
	Issuer       string
	AccessTTL    time.Duration
	CookieName   string
	CookieSecure bool
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	Burst             int
	AuthPerMinute     int
}

// ==============================================
// External Services Configuration
// ==============================================

type ClassifierConfig struct {
	URL              string
	FakeDetectionURL string
	Timeout          time.Duration
	MediaTimeout     time.Duration
	FakeThreshold    float64
}

type AssistantConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// ==============================================
// Complaint Workflow Configuration
// ==============================================

type ComplaintsConfig struct {
	RejectDuplicateMedia bool
	LeaderboardSize      int
	NotificationLimit    int
}

// ==============================================
// Configuration Loading Functions
// ==============================================

func Load() *Config {
	cfg := &Config{
		App:        loadAppConfig(),
		Server:     loadServerConfig(),
		Database:   loadDatabaseConfig(),
		Storage:    loadStorageConfig(),
		Security:   loadSecurityConfig(),
		Classifier: loadClassifierConfig(),
		Assistant:  loadAssistantConfig(),
		Complaints: loadComplaintsConfig(),
	}
	cfg.ApplyEnvironmentOverrides()
	return cfg
}

func loadAppConfig() AppConfig {
	return AppConfig{
		Name:        getEnv("APP_NAME", "CivicConnect"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		Environment: getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "5000"),
		Debug:       getEnvAsBool("DEBUG", false),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		HTTP: HTTPConfig{
			Host:            getEnv("HTTP_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", "60s"),
			WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", "60s"),
			IdleTimeout:     getEnvAsDuration("HTTP_IDLE_TIMEOUT", "120s"),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", "15s"),
			MaxHeaderBytes:  getEnvAsInt("HTTP_MAX_HEADER_BYTES", 1048576),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER", 1024),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER", 1024),
			CheckOrigin:     getEnvAsBool("WS_CHECK_ORIGIN", true),
			MaxMessageSize:  getEnvAsInt64("WS_MAX_MESSAGE_SIZE", 4096),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getEnvAsSlice("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000"),
			AllowCredentials: getEnvAsBool("CORS_CREDENTIALS", true),
			MaxAge:           getEnvAsDuration("CORS_MAX_AGE", "12h"),
		},
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		MongoDB: MongoConfig{
			URI:                    getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:               getEnv("MONGODB_DATABASE", "civic_connect"),
			MaxPoolSize:            getEnvAsUint64("MONGODB_MAX_POOL_SIZE", 100),
			MinPoolSize:            getEnvAsUint64("MONGODB_MIN_POOL_SIZE", 5),
			MaxConnIdleTime:        getEnvAsDuration("MONGODB_MAX_IDLE_TIME", "30m"),
			ConnectTimeout:         getEnvAsDuration("MONGODB_CONNECT_TIMEOUT", "10s"),
			ServerSelectionTimeout: getEnvAsDuration("MONGODB_SERVER_SELECTION_TIMEOUT", "5s"),
			HeartbeatInterval:      getEnvAsDuration("MONGODB_HEARTBEAT_INTERVAL", "10s"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 10),
		},
	}
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Driver:        strings.ToLower(getEnv("STORAGE_DRIVER", "mongo")),
		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
		PublicPrefix:  getEnv("UPLOAD_PUBLIC_PREFIX", "/uploads"),
		MaxUploadSize: getEnvAsInt64("MAX_UPLOAD_SIZE", 50<<20),
	}
}

func loadSecurityConfig() SecurityConfig {
	return SecurityConfig{
		JWT: JWTConfig{
			Secret:       getEnv("ACCESS_TOKEN_SECRET", defaultJWTSecret),
			Issuer:       getEnv("JWT_ISSUER", "civicconnect"),
			AccessTTL:    getEnvAsDuration("ACCESS_TOKEN_TTL", "15m"),
			CookieName:   getEnv("ACCESS_TOKEN_COOKIE", "accessToken"),
			CookieSecure: getEnvAsBool("COOKIE_SECURE", false),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS", 300),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 50),
			AuthPerMinute:     getEnvAsInt("RATE_LIMIT_AUTH_REQUESTS", 20),
		},
	}
}

func loadClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		URL:              strings.TrimRight(getEnv("CLASSIFIER_URL", "http://localhost:5001"), "/"),
		FakeDetectionURL: strings.TrimRight(getEnv("FAKE_DETECTION_URL", ""), "/"),
		Timeout:          getEnvAsDuration("CLASSIFIER_TIMEOUT", "10s"),
		MediaTimeout:     getEnvAsDuration("CLASSIFIER_MEDIA_TIMEOUT", "60s"),
		FakeThreshold:    getEnvAsFloat64("FAKE_DETECTION_THRESHOLD", 0.8),
	}
}

func loadAssistantConfig() AssistantConfig {
	return AssistantConfig{
		APIKey:  getEnv("GEMINI_API_KEY", ""),
		Model:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		BaseURL: strings.TrimRight(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1"), "/"),
		Timeout: getEnvAsDuration("GEMINI_TIMEOUT", "30s"),
	}
}

func loadComplaintsConfig() ComplaintsConfig {
	return ComplaintsConfig{
		RejectDuplicateMedia: getEnvAsBool("REJECT_DUPLICATE_MEDIA", true),
		LeaderboardSize:      getEnvAsInt("LEADERBOARD_SIZE", 10),
		NotificationLimit:    getEnvAsInt("NOTIFICATION_LIMIT", 50),
	}
}

// ==============================================
// Helper Functions
// ==============================================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsSlice(key string, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ==============================================
// Configuration Validation
// ==============================================

func (c *Config) Validate() error {
	var errs []error

	if c.Security.JWT.Secret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET must be set"))
	}
	if c.IsProduction() && c.Security.JWT.Secret == defaultJWTSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET must be changed in production"))
	}
	if c.Security.JWT.AccessTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.Storage.MaxUploadSize <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_SIZE must be positive"))
	}
	switch c.Storage.Driver {
	case "mongo", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}
	if c.Classifier.FakeThreshold < 0 || c.Classifier.FakeThreshold > 1 {
		errs = append(errs, errors.New("FAKE_DETECTION_THRESHOLD must be within [0,1]"))
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// ==============================================
// Environment-specific Configuration
// ==============================================

func (c *Config) ApplyEnvironmentOverrides() {
	switch c.App.Environment {
	case "development":
		c.App.Debug = true
	case "production":
		c.App.Debug = false
		c.Security.JWT.CookieSecure = true
	}
}
