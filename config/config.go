package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultHost           = "0.0.0.0"
	DefaultPort           = 5001
	DefaultDBPath         = "mates.db"
	DefaultMaxUploadBytes = 50 * 1024 * 1024
	DefaultBlobTimeout    = 15 * time.Second
	DefaultTokenTTL       = 30 * 24 * time.Hour
)

// BlobConfig selects and configures the object-storage backend.
type BlobConfig struct {
	// Backend is "s3" or "local".
	Backend       string `toml:"backend"`
	Bucket        string `toml:"bucket"`
	Region        string `toml:"region"`
	Endpoint      string `toml:"endpoint"`
	PublicBaseURL string `toml:"public_base_url"`
	LocalRoot     string `toml:"local_root"`
	// TimeoutSeconds bounds each upload/delete call against the store.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Config defines runtime configuration for the server.
type Config struct {
	Host           string     `toml:"host"`
	Port           int        `toml:"port"`
	ServiceURL     string     `toml:"service_url"`
	DBPath         string     `toml:"db_path"`
	JWTSecret      string     `toml:"jwt_secret"`
	TokenTTLHours  int        `toml:"token_ttl_hours"`
	MaxUploadBytes int64      `toml:"max_upload_bytes"`
	Blob           BlobConfig `toml:"blob"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		Host:           DefaultHost,
		Port:           DefaultPort,
		DBPath:         DefaultDBPath,
		MaxUploadBytes: DefaultMaxUploadBytes,
		Blob: BlobConfig{
			Backend:        "local",
			LocalRoot:      "mates-media",
			TimeoutSeconds: int(DefaultBlobTimeout / time.Second),
		},
	}
}

// Load builds the effective configuration: defaults, then the TOML file at
// path if it exists, then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, err
		}
	}

	applyEnv(&cfg)

	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("jwt_secret is required (set MATES_JWT_SECRET or the config file)")
	}
	if cfg.Blob.Backend != "s3" && cfg.Blob.Backend != "local" {
		return cfg, fmt.Errorf("blob backend must be \"s3\" or \"local\", got %q", cfg.Blob.Backend)
	}
	if cfg.Blob.Backend == "s3" && cfg.Blob.Bucket == "" {
		return cfg, fmt.Errorf("blob bucket is required for the s3 backend")
	}
	return cfg, nil
}

func (c Config) TokenTTL() time.Duration {
	if c.TokenTTLHours > 0 {
		return time.Duration(c.TokenTTLHours) * time.Hour
	}
	return DefaultTokenTTL
}

func (c Config) BlobTimeout() time.Duration {
	if c.Blob.TimeoutSeconds > 0 {
		return time.Duration(c.Blob.TimeoutSeconds) * time.Second
	}
	return DefaultBlobTimeout
}

func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("MATES_HOST", &cfg.Host)
	setString("MATES_DB_PATH", &cfg.DBPath)
	setString("MATES_JWT_SECRET", &cfg.JWTSecret)
	setString("MATES_SERVICE_URL", &cfg.ServiceURL)
	setString("MATES_BLOB_BACKEND", &cfg.Blob.Backend)
	setString("MATES_BLOB_BUCKET", &cfg.Blob.Bucket)
	setString("MATES_BLOB_REGION", &cfg.Blob.Region)
	setString("MATES_BLOB_ENDPOINT", &cfg.Blob.Endpoint)
	setString("MATES_BLOB_PUBLIC_BASE_URL", &cfg.Blob.PublicBaseURL)
	setString("MATES_BLOB_LOCAL_ROOT", &cfg.Blob.LocalRoot)

	if v := os.Getenv("MATES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
}
