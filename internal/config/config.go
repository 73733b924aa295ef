package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/dshills/scrollspy/internal/config/loader"
	"github.com/dshills/scrollspy/internal/logging"
	"github.com/dshills/scrollspy/internal/nav"
	"github.com/dshills/scrollspy/internal/visibility"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "SCROLLSPY_"

// Config is the complete scrollspy configuration.
type Config struct {
	Log        logging.Config `yaml:"log"`
	Bus        BusConfig      `yaml:"bus"`
	Tracker    TrackerConfig  `yaml:"tracker"`
	Viewport   ViewportConfig `yaml:"viewport"`
	Metrics    MetricsConfig  `yaml:"metrics"`
	Navigation []nav.Item     `yaml:"navigation"`
}

// BusConfig configures the event bus.
type BusConfig struct {
	// Isolate recovers listener panics and keeps delivering after failures.
	Isolate bool `yaml:"isolate"`
}

// TrackerConfig configures the visibility tracker.
type TrackerConfig struct {
	ItemSelector string         `yaml:"itemSelector"`
	Delay        time.Duration  `yaml:"delay"`
	Observer     map[string]any `yaml:"observer"`
}

// Visibility converts the settings to a visibility.Config.
func (c TrackerConfig) Visibility() visibility.Config {
	return visibility.Config{
		ItemSelector:   c.ItemSelector,
		ObserverConfig: visibility.ObserverConfig(c.Observer).Clone(),
		Delay:          c.Delay,
	}
}

// ViewportConfig configures the reference viewport.
type ViewportConfig struct {
	// Root selects the element whose items are tracked.
	Root string `yaml:"root"`

	// Height is the number of visible rows.
	Height int `yaml:"height"`

	// DefaultRows is the height of items without a data-rows attribute.
	DefaultRows int `yaml:"defaultRows"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: logging.DefaultConfig(),
		Tracker: TrackerConfig{
			ItemSelector: "[data-scrollspy]",
			Delay:        visibility.DefaultDelay,
		},
		Viewport: ViewportConfig{
			Root:        "body",
			Height:      24,
			DefaultRows: 8,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs error
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := c.Tracker.Visibility().Validate(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.Viewport.Height < 1 {
		errs = multierr.Append(errs, fmt.Errorf("viewport height must be positive, got %d", c.Viewport.Height))
	}
	if c.Viewport.DefaultRows < 1 {
		errs = multierr.Append(errs, fmt.Errorf("viewport defaultRows must be positive, got %d", c.Viewport.DefaultRows))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = multierr.Append(errs, errors.New("metrics enabled without an address"))
	}
	for i, it := range c.Navigation {
		if it.ID == "" {
			errs = multierr.Append(errs, fmt.Errorf("navigation item %d has no id", i))
		}
	}
	if errs != nil {
		return fmt.Errorf("%w: %w", ErrValidationFailed, errs)
	}
	return nil
}

// Load reads defaults, then path (if not empty), then SCROLLSPY_*
// environment variables, and validates the result.
func Load(path string) (*Config, error) {
	return LoadFS(loader.DefaultFS(), path)
}

// LoadFS is Load over a custom file system.
func LoadFS(fsys loader.FileSystem, path string) (*Config, error) {
	cfg := Default()

	var file map[string]any
	if path != "" {
		l, err := loader.ForPath(fsys, path)
		if err != nil {
			return nil, err
		}
		if _, err := fsys.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}
			return nil, err
		}
		if file, err = l.LoadFrom(path); err != nil {
			return nil, err
		}
	}

	env, err := loader.NewEnvLoader(EnvPrefix).Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.apply(loader.DeepMerge(file, env)); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// apply overlays a loaded map onto c. Keys absent from data keep their
// current value.
func (c *Config) apply(data map[string]any) error {
	if len(data) == 0 {
		return nil
	}
	raw, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, c)
}
