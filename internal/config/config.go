package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds the configuration for a cell node.
// Environment variables are parsed from the CELLGOV_ prefix,
// e.g. CELLGOV_DB_DRIVER, CELLGOV_HTTP_PORT.
type Config struct {
	// NodeName identifies this cell node in logs and defaults to the
	// bare service; peers address it by the name configured in PEERS.
	NodeName string `envconfig:"NODE_NAME" default:"cell-node"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// DBDriver selects the durable store: sqlite (default) or postgres.
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"data/cellgov.db"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Governance policy
	Quorum       float64 `envconfig:"QUORUM" default:"0.5"`
	TiePasses    bool    `envconfig:"TIE_PASSES" default:"false"`
	StrictQuorum bool    `envconfig:"STRICT_QUORUM" default:"false"`

	// Dispute weighting
	RecoveryFactor    float64 `envconfig:"RECOVERY_FACTOR" default:"0.3"`
	VerifyEndorsement float64 `envconfig:"VERIFY_ENDORSEMENT" default:"1.0"`

	// Reputation projection
	ReputationHalfLife time.Duration `envconfig:"REPUTATION_HALF_LIFE" default:"720h"`
	ScarPenalty        float64       `envconfig:"SCAR_PENALTY" default:"0.05"`

	// Sync engine. Peers maps peer name to base URL,
	// e.g. CELLGOV_PEERS="bob:http://10.0.0.2:8080,carol:http://10.0.0.3:8080".
	SyncTimeout  time.Duration     `envconfig:"SYNC_TIMEOUT" default:"30s"`
	SyncInterval time.Duration     `envconfig:"SYNC_INTERVAL" default:"2s"`
	Peers        map[string]string `envconfig:"PEERS" default:""`

	// Optional relay broadcast (best-effort, never authoritative)
	RelayURLs      []string `envconfig:"RELAY_URLS" default:""`
	RelaySecretKey string   `envconfig:"RELAY_SECRET_KEY" default:""`
}

// ResolveDefaults validates the selected driver and its inputs.
func (c *Config) ResolveDefaults() error {
	switch c.DBDriver {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("CELLGOV_SQLITE_PATH must not be empty with the sqlite driver")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("CELLGOV_POSTGRES_DSN is required with the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.Quorum <= 0 || c.Quorum > 1 {
		return fmt.Errorf("quorum must be in (0,1], got %g", c.Quorum)
	}
	if c.RecoveryFactor <= 0 || c.RecoveryFactor >= 1 {
		return fmt.Errorf("recovery factor must be in (0,1), got %g", c.RecoveryFactor)
	}
	return nil
}

// New creates a Config by parsing environment variables.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("CELLGOV", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Int("port", cfg.HTTPPort).
		Float64("quorum", cfg.Quorum).
		Float64("recovery_factor", cfg.RecoveryFactor).
		Dur("reputation_half_life", cfg.ReputationHalfLife).
		Int("relays", len(cfg.RelayURLs)).
		Msg("Configuration loaded")

	return &cfg, nil
}
