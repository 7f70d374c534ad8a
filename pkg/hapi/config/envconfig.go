package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type EnvConfig struct {
	Port        string `envconfig:"PORT" default:"9186"`
	BaseURL     string `envconfig:"BASE_URL" required:"true"`
	AuthSecret  string `envconfig:"AUTH_SECRET" required:"true"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"hivegate"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"password"`
	DBName     string `envconfig:"DB_NAME" default:"hivegate"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	ValkeyAddr     string `envconfig:"VALKEY_ADDR"`
	ValkeyPassword string `envconfig:"VALKEY_PASSWORD"`
	ValkeyDB       int    `envconfig:"VALKEY_DB" default:"0"`

	// UsageServiceURL points at the cluster's job-listing API, queried
	// for a submitter's occupied GPU counts.
	UsageServiceURL string `envconfig:"USAGE_SERVICE_URL" default:"http://localhost:9186"`

	// StrictQuota selects the failure policy when the usage service,
	// credential store or rule store is unreachable: false lets the
	// submission through assuming zero usage, true rejects it.
	StrictQuota bool `envconfig:"STRICT_QUOTA" default:"false"`

	// DefaultVirtualCluster is assumed when a submission does not name
	// one in defaults.virtualCluster.
	DefaultVirtualCluster string `envconfig:"DEFAULT_VIRTUAL_CLUSTER" default:"default"`
}

func IsDev() bool {
	env := os.Getenv("ENVIRONMENT")
	return env == "" || env == "development"
}

func ValidateEnv() (*EnvConfig, error) {
	if IsDev() {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found")
		} else {
			log.Println("Loaded .env file")
		}
	}

	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var errors []string

	if len(cfg.AuthSecret) < 32 {
		errors = append(errors, "  AUTH_SECRET must be at least 32 characters")
	}

	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		errors = append(errors, "  BASE_URL must be a valid URL")
	}

	if _, err := url.ParseRequestURI(cfg.UsageServiceURL); err != nil {
		errors = append(errors, "  USAGE_SERVICE_URL must be a valid URL")
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return &cfg, nil
}

func MaskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

func (c *EnvConfig) Print(fmtr func(string, ...interface{})) {
	fmtr("Configuration:\n")
	fmtr("  Environment: %s\n", c.Environment)
	fmtr("  Port: %s\n", c.Port)
	fmtr("  Base URL: %s\n", c.BaseURL)
	fmtr("  Auth Secret: %s\n", MaskSecret(c.AuthSecret))
	fmtr("  Database: %s@%s:%d/%s (sslmode=%s)\n", c.DBUser, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
	fmtr("  Usage service: %s\n", c.UsageServiceURL)
	fmtr("  Strict quota: %v\n", c.StrictQuota)
	fmtr("  Default VC: %s\n", c.DefaultVirtualCluster)

	if c.ValkeyAddr != "" {
		fmtr("  Valkey: %s (db %d)\n", c.ValkeyAddr, c.ValkeyDB)
	} else {
		fmtr("  Valkey: disabled (in-memory credential cache)\n")
	}
}
