package viewport

import (
	"fmt"
	"sort"

	"github.com/dshills/scrollspy/internal/visibility"
)

// Span is a row range occupied by one item.
type Span struct {
	Top    int
	Height int
}

// Bottom returns the last row of the span.
func (s Span) Bottom() int {
	return s.Top + s.Height - 1
}

// Layout places items on rows.
type Layout interface {
	Bounds(id string) (Span, bool)
}

// StackLayout stacks items vertically in the order they were added.
type StackLayout struct {
	spans map[string]Span
	order []string
	total int
}

// NewStackLayout creates an empty stack.
func NewStackLayout() *StackLayout {
	return &StackLayout{spans: make(map[string]Span)}
}

// StackElements lays out els top to bottom using rows to size each one.
// Elements without an id take up rows but cannot be looked up.
func StackElements(els []visibility.Element, rows func(visibility.Element) int) *StackLayout {
	l := NewStackLayout()
	for _, el := range els {
		l.Append(el.ID(), rows(el))
	}
	return l
}

// Append places an item of height rows below the current stack.
// Heights below 1 are raised to 1. Re-adding an id moves it to the end.
func (l *StackLayout) Append(id string, height int) Span {
	if height < 1 {
		height = 1
	}
	s := Span{Top: l.total, Height: height}
	l.total += height
	if id == "" {
		return s
	}
	if _, ok := l.spans[id]; !ok {
		l.order = append(l.order, id)
	}
	l.spans[id] = s
	return s
}

// Bounds implements Layout.
func (l *StackLayout) Bounds(id string) (Span, bool) {
	s, ok := l.spans[id]
	return s, ok
}

// Rows returns the total number of rows.
func (l *StackLayout) Rows() int {
	return l.total
}

// IDs returns the laid out ids in top-to-bottom order.
func (l *StackLayout) IDs() []string {
	ids := append([]string(nil), l.order...)
	sort.SliceStable(ids, func(i, j int) bool {
		return l.spans[ids[i]].Top < l.spans[ids[j]].Top
	})
	return ids
}

// At returns the id of the item covering row.
func (l *StackLayout) At(row int) (string, error) {
	for _, id := range l.order {
		s := l.spans[id]
		if row >= s.Top && row <= s.Bottom() {
			return id, nil
		}
	}
	return "", fmt.Errorf("no item at row %d", row)
}
