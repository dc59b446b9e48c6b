package dynarec

import (
	"fmt"
	"time"

	"github.com/dynarec/dynarec/internal/config"
)

// Options configures the store a table gateway connects to.
type Options struct {
	// DataDir is the base directory for data files
	DataDir string

	// StorePath overrides the store database file path
	// (defaults to DataDir/dynarec.db)
	StorePath string

	// BusyTimeout is the store's busy timeout
	BusyTimeout time.Duration

	// ReadPoolSize is the maximum number of concurrent read connections
	ReadPoolSize int
}

// LoadOptions loads options from a config file (YAML or JSON), applying
// DYNAREC_-prefixed environment overrides. An empty path loads defaults
// plus environment only.
func LoadOptions(path string) (Options, error) {
	var cfg *config.Config
	if path == "" {
		cfg = config.DefaultConfig()
	} else {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return Options{}, err
		}
		cfg = loaded
	}

	config.LoadFromEnv(cfg)
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return Options{}, fmt.Errorf("dynarec: invalid configuration: %w", err)
	}

	return Options{
		DataDir:      cfg.DataDir,
		StorePath:    cfg.Store.Path,
		BusyTimeout:  cfg.Store.BusyTimeout,
		ReadPoolSize: cfg.Store.ReadPoolSize,
	}, nil
}

// storeConfig converts options to the store configuration, applying the
// same defaults as config.Resolve.
func (o Options) storeConfig() config.StoreConfig {
	cfg := config.Config{
		DataDir: o.DataDir,
		Store: config.StoreConfig{
			Path:         o.StorePath,
			BusyTimeout:  o.BusyTimeout,
			ReadPoolSize: o.ReadPoolSize,
		},
	}
	cfg.Resolve()
	return cfg.Store
}
