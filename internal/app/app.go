// Package app wires the scrollspy components together and manages their
// lifecycle.
//
// Components are provided through an fx module. Starting the application
// binds the navigation and metrics listeners to the bus, activates the
// visibility tracker (or its no-op stand-in), and optionally starts the
// config watcher and the metrics endpoint.
package app

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dshills/scrollspy/internal/config"
	"github.com/dshills/scrollspy/internal/dom"
	"github.com/dshills/scrollspy/internal/event"
	"github.com/dshills/scrollspy/internal/logging"
	"github.com/dshills/scrollspy/internal/metrics"
	"github.com/dshills/scrollspy/internal/nav"
	"github.com/dshills/scrollspy/internal/viewport"
	"github.com/dshills/scrollspy/internal/visibility"
)

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the configuration file. Empty means
	// defaults plus environment.
	ConfigPath string

	// Config is used instead of loading ConfigPath when set.
	Config *config.Config

	// DocumentPath is the HTML document to track.
	DocumentPath string

	// Document is used instead of parsing DocumentPath when set.
	Document *dom.Document

	// Watch reloads ConfigPath when it changes.
	Watch bool

	// LogLevel overrides the configured log level.
	LogLevel string

	// MetricsAddr enables the metrics endpoint on this address.
	MetricsAddr string

	// NoObserver simulates a host without an intersection capability.
	NoObserver bool

	// OnChange runs after the navigation applied a CHANGE_ITEM event.
	OnChange func(nav.Item)

	// Logger replaces the logger built from the configuration.
	Logger *logging.Logger

	// Clock drives every timer. Defaults to the real clock.
	Clock clock.Clock
}

// override applies command line settings on top of a loaded config.
func (o Options) override(cfg *config.Config) {
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.MetricsAddr != "" {
		cfg.Metrics = config.MetricsConfig{Enabled: true, Addr: o.MetricsAddr}
	}
}

// Application is the central coordinator for all scrollspy components.
type Application struct {
	fx *fx.App

	logger     *logging.Logger
	bus        *event.Bus
	document   *dom.Document
	viewport   *viewport.Viewport
	navigation *nav.Navigation
	collector  *metrics.Collector
	registry   *prometheus.Registry
	runtime    *runtime
}

// New builds the application. Nothing runs until Start.
func New(opts Options) (*Application, error) {
	a := &Application{}
	a.fx = fx.New(
		Module(opts),
		fx.Populate(
			&a.logger,
			&a.bus,
			&a.document,
			&a.viewport,
			&a.navigation,
			&a.collector,
			&a.registry,
			&a.runtime,
		),
		fx.NopLogger,
	)
	if err := a.fx.Err(); err != nil {
		return nil, err
	}
	return a, nil
}

// Start binds the listeners and activates tracking.
func (a *Application) Start(ctx context.Context) error {
	return a.fx.Start(ctx)
}

// Stop closes everything Start opened.
func (a *Application) Stop(ctx context.Context) error {
	return a.fx.Stop(ctx)
}

// Config returns the configuration in effect.
func (a *Application) Config() *config.Config { return a.runtime.currentConfig() }

// Logger returns the root logger.
func (a *Application) Logger() *logging.Logger { return a.logger }

// Bus returns the event bus.
func (a *Application) Bus() *event.Bus { return a.bus }

// Document returns the tracked document.
func (a *Application) Document() *dom.Document { return a.document }

// Layout returns the row layout of the tracked items.
func (a *Application) Layout() *viewport.StackLayout { return a.runtime.currentLayout() }

// Viewport returns the scrolling viewport.
func (a *Application) Viewport() *viewport.Viewport { return a.viewport }

// Navigation returns the navigation list.
func (a *Application) Navigation() *nav.Navigation { return a.navigation }

// Registry returns the Prometheus registry holding the collector.
func (a *Application) Registry() *prometheus.Registry { return a.registry }

// Tracker returns the running tracker, or nil when tracking is disabled.
func (a *Application) Tracker() *visibility.Tracker { return a.runtime.currentTracker() }

// Flush publishes pending visibility entries immediately.
func (a *Application) Flush() bool {
	t := a.Tracker()
	if t == nil {
		return false
	}
	return t.Flush()
}

// Reload applies a new configuration as the config watcher would.
func (a *Application) Reload(cfg *config.Config) error {
	return a.runtime.apply(context.Background(), cfg)
}

// MetricsAddr returns the address of the metrics endpoint, or "" when it
// is not serving.
func (a *Application) MetricsAddr() string { return a.runtime.serverAddr() }
