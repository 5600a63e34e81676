package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Timeouts TimeoutsConfig `yaml:"timeouts" json:"timeouts"`
	Quota    QuotaConfig    `yaml:"quota" json:"quota"`
	Repair   RepairConfig   `yaml:"repair" json:"repair"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// ServerConfig holds the control-plane endpoints
type ServerConfig struct {
	BaseURL string `yaml:"baseUrl" json:"baseUrl"`
	WSURL   string `yaml:"wsUrl" json:"wsUrl"`
}

// TimeoutsConfig bounds each pipeline stage
type TimeoutsConfig struct {
	Negotiate time.Duration `yaml:"negotiate" json:"negotiate"`
	Upload    time.Duration `yaml:"upload" json:"upload"`
	Submit    time.Duration `yaml:"submit" json:"submit"`
	Watchdog  time.Duration `yaml:"watchdog" json:"watchdog"`
	Download  time.Duration `yaml:"download" json:"download"`
}

// QuotaConfig holds the local daily invocation quota settings
type QuotaConfig struct {
	DailyLimit int    `yaml:"dailyLimit" json:"dailyLimit"`
	File       string `yaml:"file" json:"file"` // empty = limit.json next to the executable
}

// RepairConfig holds job submission defaults
type RepairConfig struct {
	Catalogue string `yaml:"catalogue" json:"catalogue"`
	Method    string `yaml:"method" json:"method"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// DefaultConfig Default configuration values
var DefaultConfig = Config{
	Server: ServerConfig{
		BaseURL: "https://api.fixlet.dev",
		WSURL:   "wss://api.fixlet.dev",
	},
	Timeouts: TimeoutsConfig{
		Negotiate: 60 * time.Second,
		Upload:    10 * time.Minute,
		Submit:    60 * time.Second,
		Watchdog:  10 * time.Minute,
		Download:  15 * time.Minute,
	},
	Quota: QuotaConfig{
		DailyLimit: 3,
	},
	Repair: RepairConfig{
		Catalogue: "document",
		Method:    "auto",
	},
	Logging: LoggingConfig{
		Level: "INFO",
	},
}

// LoadConfig loads configuration from multiple sources in order of precedence:
// 1. Environment variables (highest precedence)
// 2. Configuration file
// 3. Default values (lowest precedence)
func LoadConfig() (*Config, string, error) {
	config := DefaultConfig

	path, err := loadFromFile(&config)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config file: %w", err)
	}

	loadFromEnv(&config)

	if e := config.Validate(); e != nil {
		return nil, "", fmt.Errorf("configuration validation failed: %w", e)
	}

	return &config, path, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(config *Config) (string, error) {
	configPaths := []string{
		os.Getenv("FIXLET_CONFIG_PATH"), // Custom path from environment
		"./fixlet.yaml",                 // Current directory
		"/etc/fixlet/fixlet.yaml",       // System-wide
		"/opt/fixlet/fixlet.yaml",       // Installation directory
	}

	for _, path := range configPaths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return "", fmt.Errorf("failed to parse config file %s: %w", path, err)
		}

		return path, nil
	}

	return "built-in defaults (no config file found)", nil
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(config *Config) {
	if val := os.Getenv("FIXLET_SERVER_URL"); val != "" {
		config.Server.BaseURL = val
	}
	if val := os.Getenv("FIXLET_WS_URL"); val != "" {
		config.Server.WSURL = val
	}

	if val := os.Getenv("FIXLET_NEGOTIATE_TIMEOUT"); val != "" {
		if timeout, err := time.ParseDuration(val); err == nil {
			config.Timeouts.Negotiate = timeout
		}
	}
	if val := os.Getenv("FIXLET_UPLOAD_TIMEOUT"); val != "" {
		if timeout, err := time.ParseDuration(val); err == nil {
			config.Timeouts.Upload = timeout
		}
	}
	if val := os.Getenv("FIXLET_SUBMIT_TIMEOUT"); val != "" {
		if timeout, err := time.ParseDuration(val); err == nil {
			config.Timeouts.Submit = timeout
		}
	}
	if val := os.Getenv("FIXLET_WATCHDOG_TIMEOUT"); val != "" {
		if timeout, err := time.ParseDuration(val); err == nil {
			config.Timeouts.Watchdog = timeout
		}
	}
	if val := os.Getenv("FIXLET_DOWNLOAD_TIMEOUT"); val != "" {
		if timeout, err := time.ParseDuration(val); err == nil {
			config.Timeouts.Download = timeout
		}
	}

	if val := os.Getenv("FIXLET_QUOTA_LIMIT"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil {
			config.Quota.DailyLimit = limit
		}
	}
	if val := os.Getenv("FIXLET_QUOTA_FILE"); val != "" {
		config.Quota.File = val
	}

	if val := os.Getenv("FIXLET_CATALOGUE"); val != "" {
		config.Repair.Catalogue = val
	}
	if val := os.Getenv("FIXLET_METHOD"); val != "" {
		config.Repair.Method = val
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server base URL required")
	}
	if !strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://") {
		return fmt.Errorf("invalid server base URL: %s", c.Server.BaseURL)
	}

	if c.Server.WSURL == "" {
		return fmt.Errorf("websocket URL required")
	}
	if !strings.HasPrefix(c.Server.WSURL, "ws://") && !strings.HasPrefix(c.Server.WSURL, "wss://") {
		return fmt.Errorf("invalid websocket URL: %s", c.Server.WSURL)
	}

	if c.Quota.DailyLimit < 1 {
		return fmt.Errorf("invalid daily quota limit: %d", c.Quota.DailyLimit)
	}

	if c.Timeouts.Negotiate <= 0 || c.Timeouts.Upload <= 0 || c.Timeouts.Submit <= 0 ||
		c.Timeouts.Watchdog <= 0 || c.Timeouts.Download <= 0 {
		return fmt.Errorf("all stage timeouts must be positive")
	}

	validLevels := map[string]bool{
		"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true,
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// QuotaFilePath resolves the quota file location. An explicit path wins;
// otherwise limit.json sits next to the executable.
func (c *Config) QuotaFilePath() (string, error) {
	if c.Quota.File != "" {
		return c.Quota.File, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), "limit.json"), nil
}

func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Config) SaveToFile(path string) error {
	data, err := c.ToYAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadFromFile loads a specific configuration file
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}
