package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config holds everything the server needs at startup.
type Config struct {
	AppEnv  string `envconfig:"APP_ENV" default:"development"`
	AppPort string `envconfig:"APP_PORT" default:"8080"`

	ReadTimeout     time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"APP_SHUTDOWN_TIMEOUT" default:"10s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DBDSN string `envconfig:"DB_DSN"`

	JWTKey   string        `envconfig:"JWT_KEY"`
	TokenTTL time.Duration `envconfig:"TOKEN_TTL" default:"1h"`

	ClientURL string `envconfig:"CLIENT_URL"`

	StorageDriver  string `envconfig:"STORAGE_DRIVER" default:"local"`
	UploadDir      string `envconfig:"UPLOAD_DIR" default:"uploads"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"5242880"`

	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
	S3PathStyle bool   `envconfig:"S3_PATH_STYLE" default:"false"`
}

// Load reads .env files (current folder and up to two parents, so the binary
// can be started from cmd/server) and then binds the environment.
func Load() (*Config, error) {
	loadDotEnv(".env", filepath.Join("..", ".env"), filepath.Join("..", "..", ".env"))

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv overloads the environment with each file that exists, in
// order, so file values win and later files win over earlier ones.
func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Overload(p)
	}
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	var errs []error
	if c.DBDSN == "" {
		errs = append(errs, errors.New("DB_DSN is empty (check your .env)"))
	}
	if c.JWTKey == "" {
		errs = append(errs, errors.New("JWT_KEY is empty"))
	}
	switch strings.ToLower(c.StorageDriver) {
	case StorageLocal:
	case StorageS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when STORAGE_DRIVER=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.AppPort
}
