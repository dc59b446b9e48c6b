// Package config provides unified configuration for DynaRec.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the configuration for a DynaRec store.
type Config struct {
	// DataDir is the base directory for all data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Store configuration
	Store StoreConfig `json:"store" yaml:"store"`
}

// StoreConfig holds document store configuration.
type StoreConfig struct {
	// Path is the store database file path (defaults to DataDir/dynarec.db)
	Path string `json:"path" yaml:"path"`

	// BusyTimeout is the SQLite busy timeout
	BusyTimeout time.Duration `json:"busy_timeout" yaml:"busy_timeout"`

	// ReadPoolSize is the maximum number of concurrent read connections
	ReadPoolSize int `json:"read_pool_size" yaml:"read_pool_size"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/dynarec",
		Store: StoreConfig{
			Path:         "",
			BusyTimeout:  5 * time.Second,
			ReadPoolSize: 4,
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/dynarec"
	}
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(c.DataDir, "dynarec.db")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Store.ReadPoolSize < 1 {
		return fmt.Errorf("store.read_pool_size must be at least 1, got %d", c.Store.ReadPoolSize)
	}
	if c.Store.BusyTimeout < 0 {
		return fmt.Errorf("store.busy_timeout must not be negative")
	}
	return nil
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	if c.DataDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.DataDir, err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadDotenv loads a .env file into the process environment if present.
// A missing file is not an error.
func LoadDotenv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the DYNAREC_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("DYNAREC_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("DYNAREC_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("DYNAREC_STORE_BUSY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Store.BusyTimeout = d
		}
	}
	if v := os.Getenv("DYNAREC_STORE_READ_POOL_SIZE"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Store.ReadPoolSize)
	}
}
