package config

import (
	"fmt"
	"os"
	"strconv"

	"tradewatch/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from a YAML file, with secrets
// overlaid from the environment (a .env file is loaded when present).
func NewConfig(configPath string) (*Config, error) {
	// Load .env if present; missing file is fine, real env still applies
	_ = godotenv.Load()

	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyEnvOverrides()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// applyEnvOverrides lets deployment secrets win over the YAML file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TRADEWATCH_POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("TRADEWATCH_REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv("TRADEWATCH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	switch c.Storage.CandleStore {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("redis address cannot be empty for redis candle store")
		}
	default:
		return fmt.Errorf("unknown candle store type: %s", c.Storage.CandleStore)
	}

	if c.Polling.StockIntervalSeconds <= 0 {
		return fmt.Errorf("stock poll interval must be greater than 0")
	}
	if c.Polling.AlertIntervalSeconds <= 0 {
		return fmt.Errorf("alert poll interval must be greater than 0")
	}
	if c.Polling.TradeIntervalSeconds <= 0 {
		return fmt.Errorf("trade poll interval must be greater than 0")
	}
	if c.Polling.CallTimeoutSeconds <= 0 {
		return fmt.Errorf("call timeout must be greater than 0")
	}

	return nil
}
