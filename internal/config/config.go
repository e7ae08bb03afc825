// Package config loads ingestor configuration from the environment, with
// an optional .env file for local development: caarlos0/env struct tags
// for parsing and defaults, godotenv as a non-fatal convenience layer, and
// a Validate step before the rest of the program ever sees the struct.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/yurei-io/geyser-ingestor/internal/codec"
	"github.com/yurei-io/geyser-ingestor/internal/logging"
)

// minQueueCapacity is the floor under YUREI_QUEUE_CAPACITY.
const minQueueCapacity = 1024

// Config holds all ingestor configuration.
type Config struct {
	GeyserEndpoint  string `env:"YUREI_GEYSER_ENDPOINT" envDefault:"geyser.example.com:443"`
	GeyserAuthority string `env:"YUREI_GEYSER_AUTHORITY" envDefault:""`
	GeyserAuthToken string `env:"YUREI_GEYSER_AUTH_TOKEN" envDefault:""`
	DBURL           string `env:"YUREI_DB_URL" envDefault:"postgres://localhost:5432/geyser"`

	PumpfunProgram string `env:"YUREI_PUMPFUN_PROGRAM" envDefault:""`
	RaydiumProgram string `env:"YUREI_RAYDIUM_PROGRAM" envDefault:""`

	ResumeFromSlot uint64 `env:"YUREI_RESUME_FROM_SLOT" envDefault:"0"`
	QueueCapacity  int    `env:"YUREI_QUEUE_CAPACITY" envDefault:"65536"`

	LogLevel string `env:"YUREI_LOG_LEVEL" envDefault:"INFO"`
	LogColor bool   `env:"YUREI_LOG_COLOR" envDefault:"false"`

	// ResumeFromSlotSet records whether YUREI_RESUME_FROM_SLOT was present
	// in the environment at all, since 0 is itself a valid slot.
	ResumeFromSlotSet bool `env:"-"`
	// PumpfunEnabled/RaydiumEnabled mirror whether the corresponding
	// program id was supplied; the detector only matches against enabled
	// patterns.
	PumpfunEnabled bool `env:"-"`
	RaydiumEnabled bool `env:"-"`
}

// LoadConfig reads configuration from an optional .env file and the process
// environment, validates it, and returns the result. Priority: ENV vars >
// .env file > defaults.
func LoadConfig(logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Info().Msg("no .env file found, using environment variables only")
		}
	} else if logger != nil {
		logger.Info().Msg("loaded configuration from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}

	cfg.PumpfunEnabled = cfg.PumpfunProgram != ""
	cfg.RaydiumEnabled = cfg.RaydiumProgram != ""
	_, cfg.ResumeFromSlotSet = os.LookupEnv("YUREI_RESUME_FROM_SLOT")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	if logger != nil {
		logger.Info().Msg("configuration loaded and validated")
	}
	return cfg, nil
}

// Validate checks configuration invariants and floors the queue capacity.
// A malformed base58 program id is fatal at startup.
func (c *Config) Validate() error {
	if c.GeyserEndpoint == "" {
		return fmt.Errorf("YUREI_GEYSER_ENDPOINT is required")
	}
	if c.DBURL == "" {
		return fmt.Errorf("YUREI_DB_URL is required")
	}

	if c.QueueCapacity < minQueueCapacity {
		c.QueueCapacity = minQueueCapacity
	}

	if c.PumpfunEnabled {
		if _, err := codec.DecodeBase58To32(c.PumpfunProgram); err != nil {
			return fmt.Errorf("YUREI_PUMPFUN_PROGRAM: %w", err)
		}
	}
	if c.RaydiumEnabled {
		if _, err := codec.DecodeBase58To32(c.RaydiumProgram); err != nil {
			return fmt.Errorf("YUREI_RAYDIUM_PROGRAM: %w", err)
		}
	}
	// Neither program set is legal: the client subscribes without an
	// account filter and warns.

	switch c.LogLevel {
	case "TRACE", "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("YUREI_LOG_LEVEL must be one of TRACE, DEBUG, INFO, WARN, ERROR (got %q)", c.LogLevel)
	}

	return nil
}

// ParsedLogLevel converts LogLevel to the logging package's mutex-guarded
// Level type.
func (c *Config) ParsedLogLevel() logging.Level {
	switch c.LogLevel {
	case "TRACE":
		return logging.LevelTrace
	case "DEBUG":
		return logging.LevelDebug
	case "WARN":
		return logging.LevelWarn
	case "ERROR":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

// Print logs configuration for debugging (human-readable format)
// For production, use LogConfig() with structured logging
func (c *Config) Print() {
	fmt.Println("=== Ingestor Configuration ===")
	fmt.Printf("Geyser Endpoint:  %s\n", c.GeyserEndpoint)
	fmt.Printf("Geyser Authority: %s\n", c.GeyserAuthority)
	fmt.Printf("Auth Token:       %s\n", setOrUnset(c.GeyserAuthToken))
	fmt.Printf("DB URL:           %s\n", setOrUnset(c.DBURL))
	fmt.Println("\n=== Protocols ===")
	fmt.Printf("Pumpfun Program:  %s\n", valueOrDisabled(c.PumpfunProgram))
	fmt.Printf("Raydium Program:  %s\n", valueOrDisabled(c.RaydiumProgram))
	fmt.Println("\n=== Pipeline ===")
	if c.ResumeFromSlotSet {
		fmt.Printf("Resume From Slot: %d\n", c.ResumeFromSlot)
	} else {
		fmt.Println("Resume From Slot: (latest)")
	}
	fmt.Printf("Queue Capacity:   %d\n", c.QueueCapacity)
	fmt.Println("\n=== Logging ===")
	fmt.Printf("Level:            %s\n", c.LogLevel)
	fmt.Printf("Color:            %t\n", c.LogColor)
	fmt.Println("==============================")
}

func setOrUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return "(set)"
}

func valueOrDisabled(s string) string {
	if s == "" {
		return "(disabled)"
	}
	return s
}

// LogConfig emits configuration as a structured log line, redacting the
// auth token and DB URL the way a real deployment would want them kept out
// of log aggregation.
func (c *Config) LogConfig(logger zerolog.Logger) {
	logger.Info().
		Str("geyser_endpoint", c.GeyserEndpoint).
		Str("geyser_authority", c.GeyserAuthority).
		Bool("geyser_auth_token_set", c.GeyserAuthToken != "").
		Bool("db_url_set", c.DBURL != "").
		Bool("pumpfun_enabled", c.PumpfunEnabled).
		Bool("raydium_enabled", c.RaydiumEnabled).
		Uint64("resume_from_slot", c.ResumeFromSlot).
		Bool("resume_from_slot_set", c.ResumeFromSlotSet).
		Int("queue_capacity", c.QueueCapacity).
		Str("log_level", c.LogLevel).
		Bool("log_color", c.LogColor).
		Msg("ingestor configuration loaded")
}
