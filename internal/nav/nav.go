// Package nav implements a navigation list that follows CHANGE_ITEM events.
//
// Each Item mirrors one tracked element. When the visibility tracker
// reports a transition, the matching item's Visible flag is set to the
// event's ShowFlag. Events for unknown ids are ignored.
package nav

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dshills/scrollspy/internal/event"
	"github.com/dshills/scrollspy/internal/event/events"
)

// Item is one navigation entry.
type Item struct {
	ID      string `yaml:"id" toml:"id" json:"id"`
	Title   string `yaml:"title,omitempty" toml:"title" json:"title,omitempty"`
	Visible bool   `yaml:"visible,omitempty" toml:"visible" json:"visible,omitempty"`
}

// Navigation is a CHANGE_ITEM consumer.
type Navigation struct {
	mu      sync.RWMutex
	bus     *event.Bus
	items   []Item
	index   map[string]int
	handler *event.FuncHandler
	logger  *zap.Logger

	onChange func(Item)
}

// Option configures a Navigation.
type Option func(*Navigation)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(n *Navigation) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithOnChange registers fn to run after an item's flag was applied.
func WithOnChange(fn func(Item)) Option {
	return func(n *Navigation) {
		n.onChange = fn
	}
}

// New creates a navigation list over items. Later duplicates of an id are
// dropped. The list does not listen until Bind.
func New(bus *event.Bus, items []Item, opts ...Option) *Navigation {
	n := &Navigation{
		bus:    bus,
		index:  make(map[string]int, len(items)),
		logger: zap.NewNop(),
	}
	for _, it := range items {
		if _, dup := n.index[it.ID]; dup || it.ID == "" {
			continue
		}
		n.index[it.ID] = len(n.items)
		n.items = append(n.items, it)
	}
	for _, opt := range opts {
		opt(n)
	}
	n.handler = event.On(n.handleChange)
	return n
}

// Name implements event.Named.
func (n *Navigation) Name() string {
	return "Navigation"
}

// Bind subscribes to CHANGE_ITEM unless already subscribed.
// It reports whether a listener was added.
func (n *Navigation) Bind() bool {
	if n.bus.HasEventListener(events.ChangeItem, n.handler, n) {
		return false
	}
	n.bus.AddEventListener(events.ChangeItem, n.handler, n)
	return true
}

// Unbind removes the CHANGE_ITEM subscription.
func (n *Navigation) Unbind() {
	n.bus.RemoveEventListener(events.ChangeItem, n.handler, n)
}

// IsBound reports whether the navigation is subscribed.
func (n *Navigation) IsBound() bool {
	return n.bus.HasEventListener(events.ChangeItem, n.handler, n)
}

func (n *Navigation) handleChange(ctx context.Context, change events.ItemChange) error {
	item, ok := n.Apply(change)
	if !ok {
		n.logger.Debug("change for unknown item ignored", zap.String("id", change.ID))
		return nil
	}
	n.logger.Debug("item visibility changed",
		zap.String("id", item.ID),
		zap.Bool("visible", item.Visible))
	if n.onChange != nil {
		n.onChange(item)
	}
	return nil
}

// Apply sets the visibility flag of the item named by change.
// It returns false when no item has that id.
func (n *Navigation) Apply(change events.ItemChange) (Item, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	i, ok := n.index[change.ID]
	if !ok {
		return Item{}, false
	}
	n.items[i].Visible = change.ShowFlag
	return n.items[i], true
}

// Items returns a copy of the list.
func (n *Navigation) Items() []Item {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]Item(nil), n.items...)
}

// Item returns the item with the given id.
func (n *Navigation) Item(id string) (Item, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	i, ok := n.index[id]
	if !ok {
		return Item{}, false
	}
	return n.items[i], true
}

// Visible returns the ids of visible items in list order.
func (n *Navigation) Visible() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	var ids []string
	for _, it := range n.items {
		if it.Visible {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

// Active returns the first visible item, the one a scrollspy highlights.
func (n *Navigation) Active() (Item, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, it := range n.items {
		if it.Visible {
			return it, true
		}
	}
	return Item{}, false
}

// LoadItems reads a YAML list of items.
func LoadItems(r io.Reader) ([]Item, error) {
	var items []Item
	if err := yaml.NewDecoder(r).Decode(&items); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode navigation items: %w", err)
	}
	return items, nil
}
