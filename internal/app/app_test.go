package app

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dshills/scrollspy/internal/config"
	"github.com/dshills/scrollspy/internal/dom"
	"github.com/dshills/scrollspy/internal/event"
	"github.com/dshills/scrollspy/internal/logging"
	"github.com/dshills/scrollspy/internal/nav"
)

const page = `<!doctype html>
<html><body>
<main>
  <section id="intro" data-scrollspy data-rows="10"><h2>Introduction</h2><p>Hello.</p></section>
  <section id="usage" data-scrollspy data-rows="10"><h2>Usage</h2></section>
  <section id="api" data-scrollspy data-rows="10" data-title="API Reference"><h2>API</h2></section>
  <section data-scrollspy><h2>Anonymous</h2></section>
</main>
</body></html>`

type recorder struct {
	mu    sync.Mutex
	items []nav.Item
}

func (r *recorder) record(it nav.Item) {
	r.mu.Lock()
	r.items = append(r.items, it)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []nav.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]nav.Item(nil), r.items...)
}

func (r *recorder) take() []nav.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.items
	r.items = nil
	return out
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Viewport.Height = 10
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) (*Application, *recorder, *clock.Mock) {
	t.Helper()
	doc, err := dom.ParseString(page)
	require.NoError(t, err)

	rec := &recorder{}
	mock := clock.NewMock()
	a, err := New(Options{
		Config:   cfg,
		Document: doc,
		Clock:    mock,
		Logger:   logging.Nop(),
		OnChange: rec.record,
	})
	require.NoError(t, err)
	return a, rec, mock
}

func TestApplication_DerivesNavigation(t *testing.T) {
	a, _, _ := newTestApp(t, testConfig())

	assert.Equal(t, []nav.Item{
		{ID: "intro", Title: "Introduction"},
		{ID: "usage", Title: "Usage"},
		{ID: "api", Title: "API Reference"},
	}, a.Navigation().Items())
	assert.Equal(t, 30, a.Layout().Rows())
	assert.Equal(t, 10, a.Viewport().Height())
}

func TestApplication_ConfiguredNavigationWins(t *testing.T) {
	cfg := testConfig()
	cfg.Navigation = []nav.Item{{ID: "api", Title: "Reference"}}
	a, _, _ := newTestApp(t, cfg)

	assert.Equal(t, []nav.Item{{ID: "api", Title: "Reference"}}, a.Navigation().Items())
}

func TestApplication_ScrollUpdatesNavigation(t *testing.T) {
	a, rec, mock := newTestApp(t, testConfig())
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))
	defer func() { require.NoError(t, a.Stop(ctx)) }()

	require.NotNil(t, a.Tracker())
	assert.Contains(t, a.Bus().Events(), "Navigation listen for 'CHANGE_ITEM'")

	// Initial reports settle after the delay.
	assert.Empty(t, a.Navigation().Visible())
	mock.Add(time.Second)
	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"intro"}, a.Navigation().Visible())
	rec.take()

	a.Viewport().ScrollTo(10)
	assert.Equal(t, []string{"intro"}, a.Navigation().Visible(), "changes wait for the settle delay")
	require.True(t, a.Flush())

	assert.Equal(t, []string{"usage"}, a.Navigation().Visible())
	assert.Equal(t, []nav.Item{
		{ID: "intro", Title: "Introduction", Visible: false},
		{ID: "usage", Title: "Usage", Visible: true},
	}, rec.take())

	active, ok := a.Navigation().Active()
	require.True(t, ok)
	assert.Equal(t, "usage", active.ID)
}

func TestApplication_StopUnbinds(t *testing.T) {
	a, _, _ := newTestApp(t, testConfig())
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))
	require.True(t, a.Navigation().IsBound())

	require.NoError(t, a.Stop(ctx))
	assert.False(t, a.Navigation().IsBound())
	assert.Nil(t, a.Tracker())
	assert.Equal(t, 0, a.Viewport().Observers())
}

func TestApplication_NoObserverFallsBack(t *testing.T) {
	doc, err := dom.ParseString(page)
	require.NoError(t, err)
	a, err := New(Options{
		Config:     testConfig(),
		Document:   doc,
		Logger:     logging.Nop(),
		NoObserver: true,
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, a.Start(ctx))
	defer func() { require.NoError(t, a.Stop(ctx)) }()

	assert.Nil(t, a.Tracker())
	assert.False(t, a.Flush())
	a.Viewport().ScrollTo(10)
	assert.Empty(t, a.Navigation().Visible())
}

func TestApplication_ReloadRestartsTracker(t *testing.T) {
	a, _, _ := newTestApp(t, testConfig())
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))
	defer func() { require.NoError(t, a.Stop(ctx)) }()

	first := a.Tracker()
	require.NotNil(t, first)

	same := testConfig()
	same.Viewport.Height = 20
	require.NoError(t, a.Reload(same))
	assert.Same(t, first, a.Tracker())
	assert.Equal(t, 20, a.Viewport().Height())

	narrowed := testConfig()
	narrowed.Tracker.ItemSelector = "#api"
	require.NoError(t, a.Reload(narrowed))

	second := a.Tracker()
	require.NotNil(t, second)
	assert.NotSame(t, first, second)
	assert.False(t, first.IsActive())
	assert.Equal(t, 10, a.Layout().Rows())
	assert.Equal(t, "#api", a.Config().Tracker.ItemSelector)
	assert.Equal(t, 1, second.Stats().Observed)

	invalid := testConfig()
	invalid.Tracker.ItemSelector = ""
	assert.ErrorIs(t, a.Reload(invalid), config.ErrValidationFailed)
	assert.Same(t, second, a.Tracker())
}

func TestApplication_Errors(t *testing.T) {
	_, err := New(Options{Config: testConfig(), Logger: logging.Nop()})
	assert.ErrorIs(t, err, ErrNoDocument)

	doc, err := dom.ParseString(page)
	require.NoError(t, err)
	cfg := testConfig()
	cfg.Viewport.Root = "#missing"
	_, err = New(Options{Config: cfg, Document: doc, Logger: logging.Nop()})
	assert.ErrorIs(t, err, ErrRootNotFound)

	var ce *ComponentError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "document", ce.Component)

	_, err = New(Options{Config: testConfig(), Document: doc, Logger: logging.Nop(), LogLevel: "shout"})
	assert.ErrorIs(t, err, config.ErrValidationFailed)
}

func TestApplication_DocumentPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(page), 0o644))

	a, err := New(Options{Config: testConfig(), DocumentPath: path, Logger: logging.Nop()})
	require.NoError(t, err)
	assert.Len(t, a.Navigation().Items(), 3)

	_, err = New(Options{Config: testConfig(), DocumentPath: path + ".missing", Logger: logging.Nop()})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplication_MetricsEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics = config.MetricsConfig{Enabled: true, Addr: "127.0.0.1:0"}
	a, _, _ := newTestApp(t, cfg)

	ctx := context.Background()
	require.NoError(t, a.Start(ctx))
	defer func() { require.NoError(t, a.Stop(ctx)) }()

	require.True(t, a.Flush())

	addr := a.MetricsAddr()
	require.NotEmpty(t, addr)
	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `scrollspy_item_changes_total{show="true"} 1`)
	assert.Contains(t, string(body), `scrollspy_item_changes_total{show="false"} 2`)
}

func TestModule_Fxtest(t *testing.T) {
	doc, err := dom.ParseString(page)
	require.NoError(t, err)

	var (
		bus        *event.Bus
		navigation *nav.Navigation
	)
	app := fxtest.New(t,
		Module(Options{Config: testConfig(), Document: doc, Logger: logging.Nop()}),
		fx.Populate(&bus, &navigation),
	)
	app.RequireStart()
	assert.Contains(t, bus.Events(), "Navigation listen for 'CHANGE_ITEM'")
	assert.Contains(t, bus.Events(), "Metrics listen for 'CHANGE_ITEM'")
	app.RequireStop()
	assert.NotContains(t, bus.Events(), "CHANGE_ITEM")
}
