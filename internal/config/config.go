package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port      string `yaml:"port" env:"SERVER_PORT"`
		Mode      string `yaml:"mode" env:"SERVER_MODE"`
		PublicURL string `yaml:"public_url" env:"SERVER_PUBLIC_URL"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
		SeedCourses     bool   `yaml:"seed_courses" env:"DB_SEED_COURSES"`
	} `yaml:"database"`

	Auth struct {
		JWTSecret        string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
		JWTPublicKeyFile string `yaml:"jwt_public_key_file" env:"AUTH_JWT_PUBLIC_KEY_FILE"`
		Issuer           string `yaml:"issuer" env:"AUTH_ISSUER"`
		Audience         string `yaml:"audience" env:"AUTH_AUDIENCE"`
		RoleClaim        string `yaml:"role_claim" env:"AUTH_ROLE_CLAIM"`
		AdminRole        string `yaml:"admin_role" env:"AUTH_ADMIN_ROLE"`
		// AdminSecretHash enables the legacy X-Admin-Secret header when set.
		AdminSecretHash string `yaml:"admin_secret_hash" env:"AUTH_ADMIN_SECRET_HASH"`
	} `yaml:"auth"`

	Storage struct {
		Driver         string        `yaml:"driver" env:"STORAGE_DRIVER"`
		LocalPath      string        `yaml:"local_path" env:"STORAGE_LOCAL_PATH"`
		SigningSecret  string        `yaml:"signing_secret" env:"STORAGE_SIGNING_SECRET"`
		UploadURLTTL   time.Duration `yaml:"upload_url_ttl" env:"STORAGE_UPLOAD_URL_TTL"`
		DownloadURLTTL time.Duration `yaml:"download_url_ttl" env:"STORAGE_DOWNLOAD_URL_TTL"`
		MaxUploadBytes int64         `yaml:"max_upload_bytes" env:"STORAGE_MAX_UPLOAD_BYTES"`

		OSS struct {
			Endpoint        string `yaml:"endpoint" env:"OSS_ENDPOINT"`
			Bucket          string `yaml:"bucket" env:"OSS_BUCKET"`
			AccessKeyID     string `yaml:"access_key_id" env:"OSS_ACCESS_KEY_ID"`
			AccessKeySecret string `yaml:"access_key_secret" env:"OSS_ACCESS_KEY_SECRET"`
			Prefix          string `yaml:"prefix" env:"OSS_PREFIX"`
		} `yaml:"oss"`
	} `yaml:"storage"`

	Redis struct {
		Addr           string        `yaml:"addr" env:"REDIS_ADDR"`
		Password       string        `yaml:"password" env:"REDIS_PASSWORD"`
		DB             int           `yaml:"db" env:"REDIS_DB"`
		IdempotencyTTL time.Duration `yaml:"idempotency_ttl" env:"REDIS_IDEMPOTENCY_TTL"`
		InFlightTTL    time.Duration `yaml:"in_flight_ttl" env:"REDIS_IN_FLIGHT_TTL"`
	} `yaml:"redis"`

	Kafka struct {
		Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS"`
		Topic   string   `yaml:"topic" env:"KAFKA_TOPIC"`
	} `yaml:"kafka"`

	Email struct {
		Host         string `yaml:"host" env:"SMTP_HOST"`
		Port         int    `yaml:"port" env:"SMTP_PORT"`
		Username     string `yaml:"username" env:"SMTP_USERNAME"`
		Password     string `yaml:"password" env:"SMTP_PASSWORD"`
		From         string `yaml:"from" env:"SMTP_FROM"`
		AdminAddress string `yaml:"admin_address" env:"ADMIN_EMAIL"`
	} `yaml:"email"`

	Membership struct {
		// ReconcileInterval of 0 disables the background reconciler.
		ReconcileInterval time.Duration `yaml:"reconcile_interval" env:"MEMBERSHIP_RECONCILE_INTERVAL"`
	} `yaml:"membership"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a YAML file, optional .env files and
// environment variables, in that order of precedence (last wins).
func LoadConfig(configPath string, envFiles ...string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// .env never overrides variables that are already exported
	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"

	config.Database.Driver = "postgres"
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "bearshare"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsDir = "migrations"

	config.Auth.RoleClaim = "role"
	config.Auth.AdminRole = "admin"

	config.Storage.Driver = "local"
	config.Storage.LocalPath = "uploads"
	config.Storage.UploadURLTTL = 15 * time.Minute
	config.Storage.DownloadURLTTL = time.Hour
	config.Storage.MaxUploadBytes = 25 << 20

	config.Redis.IdempotencyTTL = 24 * time.Hour
	config.Redis.InFlightTTL = time.Minute

	config.Kafka.Topic = "bearshare.activity"

	config.Email.Port = 587

	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case "postgres":
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if _, err := time.ParseDuration(config.Database.ConnMaxLifetime); err != nil {
			return fmt.Errorf("invalid database connection max lifetime: %w", err)
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.Auth.JWTSecret == "" && config.Auth.JWTPublicKeyFile == "" {
		return fmt.Errorf("either auth.jwt_secret or auth.jwt_public_key_file is required")
	}
	if config.Auth.RoleClaim == "" || config.Auth.AdminRole == "" {
		return fmt.Errorf("auth role claim and admin role must not be empty")
	}
	if config.Auth.AdminSecretHash != "" && !strings.HasPrefix(config.Auth.AdminSecretHash, "$2") {
		return fmt.Errorf("auth.admin_secret_hash must be a bcrypt hash")
	}

	switch config.Storage.Driver {
	case "local":
		if config.Storage.LocalPath == "" {
			return fmt.Errorf("storage local path is required")
		}
		if config.StorageSigningSecret() == "" {
			return fmt.Errorf("storage signing secret is required for the local driver")
		}
	case "oss":
		oss := config.Storage.OSS
		if oss.Endpoint == "" || oss.Bucket == "" || oss.AccessKeyID == "" || oss.AccessKeySecret == "" {
			return fmt.Errorf("oss endpoint, bucket and credentials are required")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}

	if config.Storage.UploadURLTTL <= 0 || config.Storage.DownloadURLTTL <= 0 {
		return fmt.Errorf("storage url ttls must be positive")
	}
	if config.Membership.ReconcileInterval < 0 {
		return fmt.Errorf("membership reconcile interval must not be negative")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// StorageSigningSecret falls back to the HMAC token secret when no dedicated
// signing secret is configured.
func (c *Config) StorageSigningSecret() string {
	if c.Storage.SigningSecret != "" {
		return c.Storage.SigningSecret
	}
	return c.Auth.JWTSecret
}

// PublicBaseURL is the externally reachable base URL used in signed links.
func (c *Config) PublicBaseURL() string {
	if c.Server.PublicURL != "" {
		return strings.TrimRight(c.Server.PublicURL, "/")
	}
	return "http://localhost:" + c.Server.Port
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Mode, "production")
}
