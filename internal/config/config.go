package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"-"` // SERVER_TIMEOUT_SECONDS

	// Database Configuration
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"-"` // DB_CONN_MAX_LIFETIME_MINUTES
	DBAutoMigrate     bool          `mapstructure:"DB_AUTO_MIGRATE"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// JWT
	JWTSecretKey                string        `mapstructure:"JWT_SECRET_KEY"`
	JWTAccessTokenExpiryMinutes time.Duration `mapstructure:"-"` // JWT_ACCESS_TOKEN_EXPIRY_MINUTES
	JWTRefreshTokenExpiryDays   time.Duration `mapstructure:"-"` // JWT_REFRESH_TOKEN_EXPIRY_DAYS

	// Deep link target for the mobile client after a social sign-in,
	// e.g. "bontroc://auth-callback".
	OAuthRedirectURI string `mapstructure:"OAUTH_REDIRECT_URI"`

	// Firebase Configuration (optional, enables social sign-in)
	FirebaseServiceAccountKeyPath string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_KEY_PATH"`
	FirebaseProjectID             string `mapstructure:"FIREBASE_PROJECT_ID"`

	// Elasticsearch Configuration (optional)
	ElasticsearchURL string `mapstructure:"ELASTICSEARCH_URL"`

	// Redis Configuration (optional, realtime fan-out across instances)
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// Object storage
	StorageDriver        string `mapstructure:"STORAGE_DRIVER"`
	StorageLocalPath     string `mapstructure:"STORAGE_LOCAL_PATH"`
	StoragePublicBaseURL string `mapstructure:"STORAGE_PUBLIC_BASE_URL"`
	S3Region             string `mapstructure:"S3_REGION"`
	S3Endpoint           string `mapstructure:"S3_ENDPOINT"`
	S3BucketPrefix       string `mapstructure:"S3_BUCKET_PREFIX"`
	MaxUploadSizeMB      int64  `mapstructure:"MAX_UPLOAD_SIZE_MB"`

	// Tracing
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Rate limiting (per client IP)
	RateLimitRPS   int `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int `mapstructure:"RATE_LIMIT_BURST"`

	// Cron Jobs
	ContractRecoveryJobSchedule string        `mapstructure:"CONTRACT_RECOVERY_JOB_SCHEDULE"`
	ContractRecoveryGrace       time.Duration `mapstructure:"-"` // CONTRACT_RECOVERY_GRACE_MINUTES
	ProposalExpiryJobSchedule   string        `mapstructure:"PROPOSAL_EXPIRY_JOB_SCHEDULE"`
	ProposalTTL                 time.Duration `mapstructure:"-"` // PROPOSAL_TTL_DAYS
	ContractGenerationTimeout   time.Duration `mapstructure:"-"` // CONTRACT_GENERATION_TIMEOUT_SECONDS

	// Feature flags
	FeatureChatEnabled     bool `mapstructure:"FEATURE_CHAT_ENABLED"`
	FeatureDisputesEnabled bool `mapstructure:"FEATURE_DISPUTES_ENABLED"`
	FeatureReportsEnabled  bool `mapstructure:"FEATURE_REPORTS_ENABLED"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()

	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "bontroc_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("JWT_ACCESS_TOKEN_EXPIRY_MINUTES", 60)
	v.SetDefault("JWT_REFRESH_TOKEN_EXPIRY_DAYS", 30)
	v.SetDefault("OAUTH_REDIRECT_URI", "bontroc://auth-callback")

	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", "")

	v.SetDefault("ELASTICSEARCH_URL", "")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("STORAGE_LOCAL_PATH", "./uploads")
	v.SetDefault("STORAGE_PUBLIC_BASE_URL", "http://localhost:8080/media")
	v.SetDefault("S3_REGION", "eu-west-3")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_BUCKET_PREFIX", "")
	v.SetDefault("MAX_UPLOAD_SIZE_MB", 10)

	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)

	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)

	v.SetDefault("CONTRACT_RECOVERY_JOB_SCHEDULE", "@every 10m")
	v.SetDefault("CONTRACT_RECOVERY_GRACE_MINUTES", 5)
	v.SetDefault("PROPOSAL_EXPIRY_JOB_SCHEDULE", "@daily")
	v.SetDefault("PROPOSAL_TTL_DAYS", 30)
	v.SetDefault("CONTRACT_GENERATION_TIMEOUT_SECONDS", 30)

	v.SetDefault("FEATURE_CHAT_ENABLED", true)
	v.SetDefault("FEATURE_DISPUTES_ENABLED", true)
	v.SetDefault("FEATURE_REPORTS_ENABLED", true)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Duration fields are whole-unit integers in the environment, so they
	// are skipped by Unmarshal and converted here.
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.JWTAccessTokenExpiryMinutes = time.Duration(v.GetInt("JWT_ACCESS_TOKEN_EXPIRY_MINUTES")) * time.Minute
	cfg.JWTRefreshTokenExpiryDays = time.Duration(v.GetInt("JWT_REFRESH_TOKEN_EXPIRY_DAYS")) * 24 * time.Hour
	cfg.ContractRecoveryGrace = time.Duration(v.GetInt("CONTRACT_RECOVERY_GRACE_MINUTES")) * time.Minute
	cfg.ProposalTTL = time.Duration(v.GetInt("PROPOSAL_TTL_DAYS")) * 24 * time.Hour
	cfg.ContractGenerationTimeout = time.Duration(v.GetInt("CONTRACT_GENERATION_TIMEOUT_SECONDS")) * time.Second

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecretKey) == "" {
		return fmt.Errorf("FATAL: JWT_SECRET_KEY is not set")
	}
	if c.FirebaseServiceAccountKeyPath != "" {
		if _, err := os.Stat(c.FirebaseServiceAccountKeyPath); os.IsNotExist(err) {
			return fmt.Errorf("FATAL: Firebase service account key file specified in FIREBASE_SERVICE_ACCOUNT_KEY_PATH (%s) not found", c.FirebaseServiceAccountKeyPath)
		}
	}
	switch c.StorageDriver {
	case "local", "s3":
	default:
		return fmt.Errorf("FATAL: STORAGE_DRIVER must be 'local' or 's3', got %q", c.StorageDriver)
	}
	return nil
}

// DSN returns the GORM postgres connection string built from the DB_* settings.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode, c.DBTimezone)
}
