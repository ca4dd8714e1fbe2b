package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Sheets backends
const (
	BackendGoogle = "google"
	BackendXLSX   = "xlsx"
	BackendMemory = "memory"
)

// Google credential modes
const (
	CredentialServiceAccount = "service_account"
	CredentialOAuth          = "oauth"
)

// Row id strategies
const (
	RowIDOffset = "offset"
	RowIDScan   = "scan"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port string `env:"PORT" envDefault:"3000"`

	// Database configuration. The app pool serves the management API (read/write),
	// the user pool serves the sheet data API (metadata reads only).
	DBType               string `env:"DB_TYPE" envDefault:"mysql"` // mysql, postgres, sqlite, sqlserver
	DBHost               string `env:"DB_HOST" envDefault:"localhost"`
	DBPort               string `env:"DB_PORT" envDefault:"3306"`
	DBAppDatabase        string `env:"DB_APP_DATABASE"`
	DBAppUser            string `env:"DB_APP_USER"`
	DBAppPassword        string `env:"DB_APP_PASSWORD"`
	DBAppConnectionLimit int    `env:"DB_APP_CONNECTION_LIMIT" envDefault:"5"`
	DBUser               string `env:"DB_USER"`
	DBPassword           string `env:"DB_PASSWORD"`
	DBConnectionLimit    int    `env:"DB_CONNECTION_LIMIT" envDefault:"5"`
	DBLogLevel           string `env:"DB_LOG_LEVEL" envDefault:"warn"`

	// Authorizer configuration (management API sessions)
	AuthzURL      string `env:"AUTHZ_URL"`
	AuthzClientID string `env:"AUTHZ_CLIENT_ID"`

	// Sheets backend configuration
	SheetsBackend        string        `env:"SHEETS_BACKEND" envDefault:"google"`
	SheetsCredentialMode string        `env:"SHEETS_CREDENTIAL_MODE" envDefault:"service_account"`
	GoogleCredentials    string        `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	GoogleClientID       string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string        `env:"GOOGLE_CLIENT_SECRET"`
	XLSXDir              string        `env:"XLSX_DIR" envDefault:"./data/xlsx"`
	StoreTimeout         time.Duration `env:"STORE_TIMEOUT" envDefault:"15s"`
	RowIDStrategy        string        `env:"ROW_ID_STRATEGY" envDefault:"offset"`
	SerializeWrites      bool          `env:"SERIALIZE_WRITES" envDefault:"true"`

	// Logging configuration
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // text, json
	LogFile   string `env:"LOG_FILE"`
}

// Load loads configuration from environment variables, after merging in
// the dotenv file named by ENV_FILE (or ./.env when present)
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required fields for the selected database and sheets backend
func (cfg *Config) Validate() error {
	if cfg.DBAppDatabase == "" {
		return fmt.Errorf("DB_APP_DATABASE is required")
	}
	if cfg.DBType != "sqlite" {
		if cfg.DBAppUser == "" {
			return fmt.Errorf("DB_APP_USER is required")
		}
		if cfg.DBUser == "" {
			return fmt.Errorf("DB_USER is required")
		}
	}

	switch cfg.SheetsBackend {
	case BackendGoogle:
		switch cfg.SheetsCredentialMode {
		case CredentialServiceAccount:
			if cfg.GoogleCredentials == "" {
				return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS is required for service_account mode")
			}
		case CredentialOAuth:
			if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
				return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required for oauth mode")
			}
		default:
			return fmt.Errorf("unsupported SHEETS_CREDENTIAL_MODE: %s", cfg.SheetsCredentialMode)
		}
	case BackendXLSX:
		if cfg.XLSXDir == "" {
			return fmt.Errorf("XLSX_DIR is required for the xlsx backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unsupported SHEETS_BACKEND: %s", cfg.SheetsBackend)
	}

	switch cfg.RowIDStrategy {
	case RowIDOffset, RowIDScan:
	default:
		return fmt.Errorf("unsupported ROW_ID_STRATEGY: %s", cfg.RowIDStrategy)
	}

	if cfg.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}

	return nil
}

// ManagementEnabled reports whether the Authorizer-backed management API can be served
func (cfg *Config) ManagementEnabled() bool {
	return cfg.AuthzURL != "" && cfg.AuthzClientID != ""
}

func loadEnvFile() error {
	filename := os.Getenv("ENV_FILE")
	if filename == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		filename = ".env"
	}

	// godotenv.Load never overrides variables already present in the environment
	if err := godotenv.Load(filename); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", filename, err)
	}
	return nil
}
