// Package metrics exposes bus, tracker and navigation activity to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/scrollspy/internal/event"
	"github.com/dshills/scrollspy/internal/event/events"
	"github.com/dshills/scrollspy/internal/visibility"
)

// Namespace prefixes every metric name.
const Namespace = "scrollspy"

var (
	busDispatchedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "bus", "dispatched_total"),
		"Dispatch calls on the event bus.", nil, nil)
	busDeliveredDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "bus", "delivered_total"),
		"Listener invocations that succeeded.", nil, nil)
	busFailedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "bus", "failed_total"),
		"Listener invocations that returned an error.", nil, nil)
	busPanickedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "bus", "panicked_total"),
		"Listener panics recovered by the bus.", nil, nil)
	busListenersDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "bus", "listeners"),
		"Registered listeners.", nil, nil)

	trackerObservedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "tracker", "observed_items"),
		"Items observed by the visibility tracker.", nil, nil)
	trackerPendingDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "tracker", "pending_entries"),
		"Intersection entries waiting for the settle delay.", nil, nil)
	trackerBatchesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "tracker", "batches_total"),
		"Settled batches published by the tracker.", nil, nil)
	trackerFailuresDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "tracker", "dispatch_failures_total"),
		"CHANGE_ITEM dispatches that returned an error.", nil, nil)
)

// Collector is a prometheus.Collector over a bus and, optionally, a tracker.
// Once bound it also counts CHANGE_ITEM events by direction.
type Collector struct {
	bus     *event.Bus
	tracker func() visibility.Stats
	changes *prometheus.CounterVec
	handler *event.FuncHandler
}

// Option configures a Collector.
type Option func(*Collector)

// WithTrackerStats adds tracker gauges read from stats on every scrape.
func WithTrackerStats(stats func() visibility.Stats) Option {
	return func(c *Collector) {
		c.tracker = stats
	}
}

// New creates a collector for bus.
func New(bus *event.Bus, opts ...Option) *Collector {
	c := &Collector{
		bus: bus,
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "item_changes_total",
			Help:      "CHANGE_ITEM events by visibility direction.",
		}, []string{"show"}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.handler = event.On(func(_ context.Context, change events.ItemChange) error {
		c.changes.WithLabelValues(strconv.FormatBool(change.ShowFlag)).Inc()
		return nil
	})
	return c
}

// Name implements event.Named.
func (c *Collector) Name() string {
	return "Metrics"
}

// Bind starts counting CHANGE_ITEM events.
func (c *Collector) Bind() bool {
	if c.bus.HasEventListener(events.ChangeItem, c.handler, c) {
		return false
	}
	c.bus.AddEventListener(events.ChangeItem, c.handler, c)
	return true
}

// Unbind stops counting CHANGE_ITEM events.
func (c *Collector) Unbind() {
	c.bus.RemoveEventListener(events.ChangeItem, c.handler, c)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- busDispatchedDesc
	ch <- busDeliveredDesc
	ch <- busFailedDesc
	ch <- busPanickedDesc
	ch <- busListenersDesc
	if c.tracker != nil {
		ch <- trackerObservedDesc
		ch <- trackerPendingDesc
		ch <- trackerBatchesDesc
		ch <- trackerFailuresDesc
	}
	c.changes.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.bus.Stats()
	ch <- prometheus.MustNewConstMetric(busDispatchedDesc, prometheus.CounterValue, float64(s.Dispatched))
	ch <- prometheus.MustNewConstMetric(busDeliveredDesc, prometheus.CounterValue, float64(s.Delivered))
	ch <- prometheus.MustNewConstMetric(busFailedDesc, prometheus.CounterValue, float64(s.Failed))
	ch <- prometheus.MustNewConstMetric(busPanickedDesc, prometheus.CounterValue, float64(s.Panicked))
	ch <- prometheus.MustNewConstMetric(busListenersDesc, prometheus.GaugeValue, float64(s.Listeners))

	if c.tracker != nil {
		ts := c.tracker()
		ch <- prometheus.MustNewConstMetric(trackerObservedDesc, prometheus.GaugeValue, float64(ts.Observed))
		ch <- prometheus.MustNewConstMetric(trackerPendingDesc, prometheus.GaugeValue, float64(ts.Pending))
		ch <- prometheus.MustNewConstMetric(trackerBatchesDesc, prometheus.CounterValue, float64(ts.Batches))
		ch <- prometheus.MustNewConstMetric(trackerFailuresDesc, prometheus.CounterValue, float64(ts.Failures))
	}
	c.changes.Collect(ch)
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
