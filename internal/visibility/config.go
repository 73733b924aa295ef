package visibility

import (
	"fmt"
	"strings"
	"time"
)

// DefaultDelay is the settle delay used when Config.Delay is zero.
const DefaultDelay = time.Second

// Config configures a Tracker.
type Config struct {
	// ItemSelector selects the tracked descendants of the root. Required.
	ItemSelector string

	// ObserverConfig is forwarded to the ObserverFactory.
	ObserverConfig ObserverConfig

	// Delay is the quiet period before a burst of entries is published.
	Delay time.Duration
}

// Validate reports configuration errors wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ItemSelector) == "" {
		return fmt.Errorf("%w: item selector is required", ErrInvalidConfig)
	}
	if c.Delay < 0 {
		return fmt.Errorf("%w: negative delay %s", ErrInvalidConfig, c.Delay)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Delay == 0 {
		c.Delay = DefaultDelay
	}
	return c
}
