package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/scrollspy/internal/event"
	"github.com/dshills/scrollspy/internal/event/events"
	"github.com/dshills/scrollspy/internal/visibility"
)

func TestCollector_CountsChanges(t *testing.T) {
	bus := event.NewBus()
	c := New(bus)
	require.True(t, c.Bind())
	require.False(t, c.Bind())

	ctx := context.Background()
	for _, show := range []bool{true, true, false} {
		require.NoError(t, bus.Dispatch(ctx, events.ChangeItem, events.ItemChange{ID: "a", ShowFlag: show}))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(c.changes.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.changes.WithLabelValues("false")))

	c.Unbind()
	require.NoError(t, bus.Dispatch(ctx, events.ChangeItem, events.ItemChange{ID: "a", ShowFlag: true}))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.changes.WithLabelValues("true")))
}

func TestCollector_BusStats(t *testing.T) {
	bus := event.NewBus()
	c := New(bus)
	c.Bind()

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	require.NoError(t, bus.Dispatch(context.Background(), events.ChangeItem, events.ItemChange{ID: "a", ShowFlag: true}))
	require.NoError(t, bus.Dispatch(context.Background(), "unheard"))

	expected := `
# HELP scrollspy_bus_delivered_total Listener invocations that succeeded.
# TYPE scrollspy_bus_delivered_total counter
scrollspy_bus_delivered_total 1
# HELP scrollspy_bus_dispatched_total Dispatch calls on the event bus.
# TYPE scrollspy_bus_dispatched_total counter
scrollspy_bus_dispatched_total 2
# HELP scrollspy_bus_listeners Registered listeners.
# TYPE scrollspy_bus_listeners gauge
scrollspy_bus_listeners 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"scrollspy_bus_delivered_total", "scrollspy_bus_dispatched_total", "scrollspy_bus_listeners")
	assert.NoError(t, err)
}

func TestCollector_TrackerStats(t *testing.T) {
	c := New(event.NewBus(), WithTrackerStats(func() visibility.Stats {
		return visibility.Stats{Observed: 4, Pending: 2, Batches: 7, Failures: 1}
	}))
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	expected := `
# HELP scrollspy_tracker_observed_items Items observed by the visibility tracker.
# TYPE scrollspy_tracker_observed_items gauge
scrollspy_tracker_observed_items 4
# HELP scrollspy_tracker_batches_total Settled batches published by the tracker.
# TYPE scrollspy_tracker_batches_total counter
scrollspy_tracker_batches_total 7
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"scrollspy_tracker_observed_items", "scrollspy_tracker_batches_total")
	assert.NoError(t, err)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(New(event.NewBus())))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "scrollspy_bus_dispatched_total 0")
}
