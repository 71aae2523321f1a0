package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"edugrant/pkg/platform/validation"
)

// Config is the process configuration. Values come from an optional YAML file
// and EDUGRANT_* environment variables; the environment wins.
type Config struct {
	Env      string `yaml:"env" env:"EDUGRANT_ENV" env-default:"development" validate:"oneof=development test production"`
	LogLevel string `yaml:"log_level" env:"EDUGRANT_LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`

	Ops    OpsServer `yaml:"ops"`
	Ledger Ledger    `yaml:"ledger"`
	Audit  Audit     `yaml:"audit"`
}

// OpsServer serves health and metrics only.
type OpsServer struct {
	Addr            string        `yaml:"address" env:"EDUGRANT_OPS_ADDR" env-default:":9090" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"EDUGRANT_SHUTDOWN_TIMEOUT" env-default:"10s" validate:"gt=0"`
}

type Ledger struct {
	Administrator  string        `yaml:"administrator" env:"EDUGRANT_ADMINISTRATOR" env-required:"true" validate:"required,max=128"`
	Verifiers      []string      `yaml:"verifiers" env:"EDUGRANT_VERIFIERS" env-separator:","`
	OpeningBalance int64         `yaml:"opening_balance" env:"EDUGRANT_OPENING_BALANCE" env-default:"0" validate:"gte=0"`
	Custody        Custody       `yaml:"custody"`
}

// Custody tunes the circuit breaker in front of the custody backend.
type Custody struct {
	FailureThreshold int           `yaml:"failure_threshold" env:"EDUGRANT_CUSTODY_FAILURE_THRESHOLD" env-default:"5" validate:"min=1"`
	SuccessThreshold int           `yaml:"success_threshold" env:"EDUGRANT_CUSTODY_SUCCESS_THRESHOLD" env-default:"2" validate:"min=1"`
	Cooldown         time.Duration `yaml:"cooldown" env:"EDUGRANT_CUSTODY_COOLDOWN" env-default:"30s" validate:"gt=0"`
}

type Audit struct {
	// Buffer is the async publisher queue size; 0 writes synchronously.
	// Defaults to DefaultAuditBuffer when neither the file nor the environment set it.
	Buffer int `yaml:"buffer" env:"EDUGRANT_AUDIT_BUFFER" validate:"gte=0"`
	// PostgresDSN enables the PostgreSQL audit store and wins over SQLitePath.
	PostgresDSN string `yaml:"postgres_dsn" env:"EDUGRANT_AUDIT_POSTGRES_DSN"`
	// SQLitePath enables the SQLite audit store. Empty keeps events in memory.
	SQLitePath string `yaml:"sqlite_path" env:"EDUGRANT_AUDIT_SQLITE_PATH"`
}

// DefaultAuditBuffer is seeded before reading because cleanenv's env-default
// would overwrite an explicit 0.
const DefaultAuditBuffer = 256

// IsProduction reports whether the process runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration. A .env file in the working directory is loaded
// first when present; path may be empty to read the environment only.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{Audit: Audit{Buffer: DefaultAuditBuffer}}
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
