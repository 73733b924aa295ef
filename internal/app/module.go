package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dshills/scrollspy/internal/config"
	"github.com/dshills/scrollspy/internal/dom"
	"github.com/dshills/scrollspy/internal/event"
	"github.com/dshills/scrollspy/internal/logging"
	"github.com/dshills/scrollspy/internal/metrics"
	"github.com/dshills/scrollspy/internal/nav"
	"github.com/dshills/scrollspy/internal/viewport"
	"github.com/dshills/scrollspy/internal/visibility"
)

// RowsAttr sets the height in rows of a tracked item.
const RowsAttr = "data-rows"

// TitleAttr sets the navigation title of a tracked item. Without it the
// title is the item's first heading.
const TitleAttr = "data-title"

const headingSelector = "h1, h2, h3, h4, h5, h6"

// Module provides every scrollspy component and registers the lifecycle.
func Module(opts Options) fx.Option {
	return fx.Module("scrollspy",
		fx.Supply(opts),
		fx.Provide(
			provideClock,
			provideConfig,
			provideLogger,
			provideBus,
			provideDocument,
			provideRoot,
			provideLayout,
			provideViewport,
			provideNavigation,
			provideRuntime,
			provideMetrics,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideClock(opts Options) clock.Clock {
	if opts.Clock != nil {
		return opts.Clock
	}
	return clock.New()
}

func provideConfig(opts Options) (*config.Config, error) {
	var cfg *config.Config
	if opts.Config != nil {
		c := *opts.Config
		cfg = &c
	} else {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, componentError("config", "load", err)
		}
		cfg = loaded
	}
	opts.override(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, componentError("config", "validate", err)
	}
	return cfg, nil
}

func provideLogger(lc fx.Lifecycle, opts Options, cfg *config.Config) (*logging.Logger, error) {
	if opts.Logger != nil {
		return opts.Logger, nil
	}
	l, err := logging.New(cfg.Log)
	if err != nil {
		return nil, componentError("logging", "init", err)
	}
	lc.Append(fx.StopHook(l.Close))
	return l, nil
}

func provideBus(cfg *config.Config, logger *logging.Logger, clk clock.Clock) *event.Bus {
	opts := []event.BusOption{
		event.WithLogger(logging.Component(logger.Logger, "bus")),
		event.WithClock(clk),
	}
	if cfg.Bus.Isolate {
		opts = append(opts, event.WithIsolation())
	}
	return event.NewBus(opts...)
}

func provideDocument(opts Options) (*dom.Document, error) {
	if opts.Document != nil {
		return opts.Document, nil
	}
	if opts.DocumentPath == "" {
		return nil, componentError("document", "open", ErrNoDocument)
	}
	f, err := os.Open(opts.DocumentPath)
	if err != nil {
		return nil, componentError("document", "open", err)
	}
	defer f.Close()

	doc, err := dom.Parse(f)
	if err != nil {
		return nil, componentError("document", "parse", err)
	}
	return doc, nil
}

func provideRoot(doc *dom.Document, cfg *config.Config, logger *logging.Logger) (*trackedRoot, error) {
	node, err := doc.Query(cfg.Viewport.Root)
	if err != nil {
		if errors.Is(err, dom.ErrNotFound) {
			err = fmt.Errorf("%w: %s", ErrRootNotFound, cfg.Viewport.Root)
		}
		return nil, componentError("document", "root", err)
	}
	return &trackedRoot{node: node, logger: logging.Component(logger.Logger, "document")}, nil
}

func provideLayout(root *trackedRoot, cfg *config.Config) (*viewport.StackLayout, error) {
	layout, err := root.layout(cfg.Tracker.ItemSelector, cfg.Viewport.DefaultRows)
	if err != nil {
		return nil, componentError("viewport", "layout", err)
	}
	return layout, nil
}

func provideViewport(cfg *config.Config, layout *viewport.StackLayout, bus *event.Bus, logger *logging.Logger) *viewport.Viewport {
	return viewport.New(cfg.Viewport.Height, layout.Rows(),
		viewport.WithDispatcher(bus),
		viewport.WithLogger(logging.Component(logger.Logger, "viewport")))
}

func provideNavigation(opts Options, cfg *config.Config, root *trackedRoot, bus *event.Bus, logger *logging.Logger) (*nav.Navigation, error) {
	items := cfg.Navigation
	if len(items) == 0 {
		derived, err := root.items(cfg.Tracker.ItemSelector)
		if err != nil {
			return nil, componentError("navigation", "derive items", err)
		}
		items = derived
	}
	return nav.New(bus, items,
		nav.WithLogger(logging.Component(logger.Logger, "navigation")),
		nav.WithOnChange(opts.OnChange)), nil
}

func provideMetrics(bus *event.Bus, rt *runtime) (*metrics.Collector, *prometheus.Registry, error) {
	collector := metrics.New(bus, metrics.WithTrackerStats(rt.trackerStats))
	reg := prometheus.NewRegistry()
	if err := reg.Register(collector); err != nil {
		return nil, nil, componentError("metrics", "register", err)
	}
	return collector, reg, nil
}

// trackedRoot is the tracking root. Items without an id are skipped because
// they can neither be laid out nor reported.
type trackedRoot struct {
	node   *dom.Node
	logger *zap.Logger
}

// QueryAll implements visibility.Root.
func (r *trackedRoot) QueryAll(selector string) ([]visibility.Element, error) {
	nodes, err := r.nodes(selector)
	if err != nil {
		return nil, err
	}
	out := make([]visibility.Element, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out, nil
}

func (r *trackedRoot) nodes(selector string) ([]*dom.Node, error) {
	all, err := r.node.QueryNodes(selector)
	if err != nil {
		return nil, err
	}
	out := make([]*dom.Node, 0, len(all))
	for _, n := range all {
		if n.ID() == "" {
			r.logger.Warn("item without id skipped",
				zap.String("selector", selector),
				zap.String("tag", n.Tag()))
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// layout stacks the items matching selector. An item's height comes from
// its data-rows attribute.
func (r *trackedRoot) layout(selector string, defaultRows int) (*viewport.StackLayout, error) {
	nodes, err := r.nodes(selector)
	if err != nil {
		return nil, err
	}
	l := viewport.NewStackLayout()
	for _, n := range nodes {
		l.Append(n.ID(), n.IntAttr(RowsAttr, defaultRows))
	}
	return l, nil
}

// items derives navigation entries from the items matching selector.
func (r *trackedRoot) items(selector string) ([]nav.Item, error) {
	nodes, err := r.nodes(selector)
	if err != nil {
		return nil, err
	}
	items := make([]nav.Item, 0, len(nodes))
	for _, n := range nodes {
		title, _ := n.Attr(TitleAttr)
		if title == "" {
			if h, err := n.Query(headingSelector); err == nil {
				title = h.Text()
			} else {
				title = n.Text()
			}
		}
		items = append(items, nav.Item{ID: n.ID(), Title: title})
	}
	return items, nil
}
