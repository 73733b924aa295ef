package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dshills/scrollspy/internal/config"
	"github.com/dshills/scrollspy/internal/config/watcher"
	"github.com/dshills/scrollspy/internal/event"
	"github.com/dshills/scrollspy/internal/logging"
	"github.com/dshills/scrollspy/internal/metrics"
	"github.com/dshills/scrollspy/internal/nav"
	"github.com/dshills/scrollspy/internal/viewport"
	"github.com/dshills/scrollspy/internal/visibility"
)

const readHeaderTimeout = 5 * time.Second

// runtime owns the components that are replaced on reload or started and
// stopped with the application.
type runtime struct {
	mu sync.Mutex

	opts     Options
	clock    clock.Clock
	logger   *logging.Logger
	bus      *event.Bus
	root     *trackedRoot
	viewport *viewport.Viewport

	config  *config.Config
	layout  *viewport.StackLayout
	tracker *visibility.Tracker
	active  visibility.Activator

	watcher     *watcher.Watcher
	server      *http.Server
	metricsAddr string
}

type runtimeParams struct {
	fx.In

	Opts     Options
	Clock    clock.Clock
	Config   *config.Config
	Logger   *logging.Logger
	Bus      *event.Bus
	Root     *trackedRoot
	Layout   *viewport.StackLayout
	Viewport *viewport.Viewport
}

func provideRuntime(p runtimeParams) *runtime {
	return &runtime{
		opts:     p.Opts,
		clock:    p.Clock,
		logger:   p.Logger,
		bus:      p.Bus,
		root:     p.Root,
		viewport: p.Viewport,
		config:   p.Config,
		layout:   p.Layout,
	}
}

type lifecycleParams struct {
	fx.In

	LC         fx.Lifecycle
	Runtime    *runtime
	Navigation *nav.Navigation
	Collector  *metrics.Collector
	Registry   *prometheus.Registry
}

func registerLifecycle(p lifecycleParams) {
	rt := p.Runtime
	p.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Navigation.Bind()
			p.Collector.Bind()

			if err := rt.startTracker(ctx); err != nil {
				return err
			}
			if err := rt.startWatcher(); err != nil {
				return multierr.Append(err, rt.stopTracker())
			}
			if err := rt.startServer(p.Registry); err != nil {
				return multierr.Combine(err, rt.stopWatcher(), rt.stopTracker())
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			err := rt.stopServer(ctx)
			err = multierr.Append(err, rt.stopWatcher())
			err = multierr.Append(err, rt.stopTracker())
			p.Collector.Unbind()
			p.Navigation.Unbind()
			return err
		},
	})
}

func (rt *runtime) currentConfig() *config.Config {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.config
}

func (rt *runtime) currentLayout() *viewport.StackLayout {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.layout
}

func (rt *runtime) currentTracker() *visibility.Tracker {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if _, ok := rt.active.(*visibility.Tracker); !ok {
		return nil
	}
	return rt.tracker
}

func (rt *runtime) trackerStats() visibility.Stats {
	if t := rt.currentTracker(); t != nil {
		return t.Stats()
	}
	return visibility.Stats{}
}

func (rt *runtime) startTracker(ctx context.Context) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.activateLocked(ctx)
}

func (rt *runtime) activateLocked(ctx context.Context) error {
	var factory visibility.ObserverFactory
	if !rt.opts.NoObserver {
		factory = viewport.Factory(rt.viewport, rt.layout)
	}
	t := visibility.New(rt.bus, rt.root, factory, rt.config.Tracker.Visibility(),
		visibility.WithClock(rt.clock),
		visibility.WithLogger(logging.Component(rt.logger.Logger, "tracker")))

	active, err := visibility.ActivateOrNoop(ctx, t, rt.logger.Logger)
	if err != nil {
		return componentError("tracker", "activate", err)
	}
	rt.tracker, rt.active = t, active
	return nil
}

func (rt *runtime) stopTracker() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.closeLocked()
}

func (rt *runtime) closeLocked() error {
	if rt.active == nil {
		return nil
	}
	err := rt.active.Close()
	rt.tracker, rt.active = nil, nil
	return componentError("tracker", "close", err)
}

func (rt *runtime) startWatcher() error {
	if !rt.opts.Watch || rt.opts.ConfigPath == "" {
		return nil
	}
	w, err := watcher.New(rt.opts.ConfigPath,
		watcher.WithClock(rt.clock),
		watcher.WithDispatcher(rt.bus),
		watcher.WithLogger(logging.Component(rt.logger.Logger, "config")),
		watcher.OnReload(rt.onReload))
	if err != nil {
		return componentError("watcher", "create", err)
	}
	if err := w.Start(); err != nil {
		return componentError("watcher", "start", err)
	}

	rt.mu.Lock()
	rt.watcher = w
	rt.mu.Unlock()
	return nil
}

func (rt *runtime) stopWatcher() error {
	rt.mu.Lock()
	w := rt.watcher
	rt.watcher = nil
	rt.mu.Unlock()

	if w == nil {
		return nil
	}
	return componentError("watcher", "close", w.Close())
}

func (rt *runtime) onReload(cfg *config.Config, err error) {
	if err != nil {
		return
	}
	if cfg != nil {
		rt.opts.override(cfg)
	}
	if err := rt.apply(context.Background(), cfg); err != nil {
		rt.logger.Error("apply reloaded config", zap.Error(err))
	}
}

// apply switches to cfg. Tracker settings restart the tracker; the log
// level and viewport height change in place. Bus, metrics and navigation
// settings take effect on the next start.
func (rt *runtime) apply(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return componentError("config", "apply", errors.New("nil config"))
	}
	if err := cfg.Validate(); err != nil {
		return componentError("config", "apply", err)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	old := rt.config
	if err := rt.logger.SetLevel(cfg.Log.Level); err != nil {
		return componentError("logging", "set level", err)
	}

	if old.Bus != cfg.Bus || old.Metrics != cfg.Metrics ||
		old.Viewport.Root != cfg.Viewport.Root ||
		!reflect.DeepEqual(old.Navigation, cfg.Navigation) {
		rt.logger.Info("some settings apply after restart",
			zap.Bool("bus", old.Bus != cfg.Bus),
			zap.Bool("metrics", old.Metrics != cfg.Metrics),
			zap.Bool("root", old.Viewport.Root != cfg.Viewport.Root),
			zap.Bool("navigation", !reflect.DeepEqual(old.Navigation, cfg.Navigation)))
	}

	restart := !reflect.DeepEqual(old.Tracker, cfg.Tracker) ||
		old.Viewport.DefaultRows != cfg.Viewport.DefaultRows
	rt.config = cfg

	if !restart {
		rt.viewport.Resize(cfg.Viewport.Height)
		return nil
	}

	wasActive := rt.active != nil
	if err := rt.closeLocked(); err != nil {
		return err
	}
	layout, err := rt.root.layout(cfg.Tracker.ItemSelector, cfg.Viewport.DefaultRows)
	if err != nil {
		return componentError("viewport", "layout", err)
	}
	rt.layout = layout
	rt.viewport.SetMaxRow(layout.Rows())
	rt.viewport.Resize(cfg.Viewport.Height)

	if !wasActive {
		return nil
	}
	if err := rt.activateLocked(ctx); err != nil {
		return err
	}
	rt.logger.Info("tracker restarted",
		zap.String("selector", cfg.Tracker.ItemSelector),
		zap.Duration("delay", cfg.Tracker.Delay))
	return nil
}

func (rt *runtime) startServer(g prometheus.Gatherer) error {
	cfg := rt.currentConfig()
	if !cfg.Metrics.Enabled {
		return nil
	}
	ln, err := net.Listen("tcp", cfg.Metrics.Addr)
	if err != nil {
		return componentError("metrics", "listen", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout}

	rt.mu.Lock()
	rt.server = srv
	rt.metricsAddr = ln.Addr().String()
	rt.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Error("metrics server", zap.Error(err))
		}
	}()
	rt.logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return nil
}

func (rt *runtime) stopServer(ctx context.Context) error {
	rt.mu.Lock()
	srv := rt.server
	rt.server = nil
	rt.mu.Unlock()

	if srv == nil {
		return nil
	}
	return componentError("metrics", "shutdown", srv.Shutdown(ctx))
}

func (rt *runtime) serverAddr() string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.metricsAddr
}
