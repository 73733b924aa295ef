package viewport

import (
	"errors"
	"testing"

	"github.com/dshills/scrollspy/internal/visibility"
)

type item string

func (i item) ID() string { return string(i) }

type entryLog struct {
	calls [][]visibility.Entry
}

func (l *entryLog) record(entries []visibility.Entry) {
	l.calls = append(l.calls, append([]visibility.Entry(nil), entries...))
}

func (l *entryLog) last() []visibility.Entry {
	if len(l.calls) == 0 {
		return nil
	}
	return l.calls[len(l.calls)-1]
}

// layout: a rows 0-9, b rows 10-19, c rows 20-39
func testLayout() *StackLayout {
	l := NewStackLayout()
	l.Append("a", 10)
	l.Append("b", 10)
	l.Append("c", 20)
	return l
}

func TestStackLayout(t *testing.T) {
	l := testLayout()

	if l.Rows() != 40 {
		t.Errorf("expected 40 rows, got %d", l.Rows())
	}
	s, ok := l.Bounds("c")
	if !ok || s.Top != 20 || s.Bottom() != 39 {
		t.Errorf("unexpected span for c: %+v", s)
	}
	if id, err := l.At(15); err != nil || id != "b" {
		t.Errorf("At(15) = %q, %v", id, err)
	}
	if _, err := l.At(40); err == nil {
		t.Error("expected error past the end")
	}
	ids := l.IDs()
	if len(ids) != 3 || ids[0] != "a" || ids[2] != "c" {
		t.Errorf("unexpected order %v", ids)
	}

	anon := l.Append("", 0)
	if anon.Height != 1 || l.Rows() != 41 {
		t.Errorf("anonymous item should still take a row: %+v", anon)
	}
}

func TestStackElements(t *testing.T) {
	els := []visibility.Element{item("x"), item("y")}
	l := StackElements(els, func(el visibility.Element) int {
		if el.ID() == "x" {
			return 3
		}
		return 4
	})

	if s, _ := l.Bounds("y"); s.Top != 3 || s.Height != 4 {
		t.Errorf("unexpected span for y: %+v", s)
	}
}

func TestObserver_InitialReport(t *testing.T) {
	v := New(10, 40)
	log := &entryLog{}
	o := NewObserver(v, testLayout(), nil, log.record)

	if err := o.Observe(item("a")); err != nil {
		t.Fatal(err)
	}
	if err := o.Observe(item("b")); err != nil {
		t.Fatal(err)
	}

	if len(log.calls) != 2 {
		t.Fatalf("expected one report per Observe, got %d", len(log.calls))
	}
	if !log.calls[0][0].IsIntersecting {
		t.Error("a should start visible")
	}
	if log.calls[1][0].IsIntersecting {
		t.Error("b should start hidden")
	}
}

func TestObserver_ReportsTransitions(t *testing.T) {
	v := New(10, 40)
	log := &entryLog{}
	o := NewObserver(v, testLayout(), nil, log.record)
	for _, id := range []string{"a", "b", "c"} {
		if err := o.Observe(item(id)); err != nil {
			t.Fatal(err)
		}
	}
	log.calls = nil

	v.ScrollTo(5) // rows 5-14: a and b
	got := log.last()
	if len(got) != 1 || got[0].Target.ID() != "b" || !got[0].IsIntersecting {
		t.Fatalf("expected b to appear, got %+v", got)
	}

	v.ScrollTo(10) // rows 10-19: only b
	got = log.last()
	if len(got) != 1 || got[0].Target.ID() != "a" || got[0].IsIntersecting {
		t.Fatalf("expected a to disappear, got %+v", got)
	}

	calls := len(log.calls)
	v.ScrollTo(10)
	if len(log.calls) != calls {
		t.Error("no report expected when nothing changed")
	}

	v.ScrollTo(25) // rows 25-34: only c
	got = log.last()
	if len(got) != 2 || got[0].Target.ID() != "b" || got[1].Target.ID() != "c" {
		t.Fatalf("expected b hidden then c visible, got %+v", got)
	}

	vis := o.Visible()
	if len(vis) != 1 || vis[0] != "c" {
		t.Errorf("Visible() = %v", vis)
	}
}

func TestObserver_Threshold(t *testing.T) {
	v := New(10, 40)
	log := &entryLog{}
	o := NewObserver(v, testLayout(), visibility.ObserverConfig{ThresholdKey: 0.5}, log.record)
	if err := o.Observe(item("b")); err != nil {
		t.Fatal(err)
	}

	v.ScrollTo(6) // b rows 10-15 visible: 6 of 10
	if got := log.last(); len(got) != 1 || !got[0].IsIntersecting {
		t.Fatalf("60%% visible should meet a 0.5 threshold, got %+v", got)
	}

	v.ScrollTo(16) // rows 16-25: b rows 16-19, 4 of 10
	if got := log.last(); len(got) != 1 || got[0].IsIntersecting {
		t.Fatalf("40%% visible should not meet a 0.5 threshold, got %+v", got)
	}
}

func TestObserver_RootMargin(t *testing.T) {
	v := New(10, 40)
	log := &entryLog{}
	o := NewObserver(v, testLayout(), visibility.ObserverConfig{RootMarginKey: 2}, log.record)
	if err := o.Observe(item("b")); err != nil {
		t.Fatal(err)
	}

	// rows 0-9 grown to -2..11 reach into b
	if !log.last()[0].IsIntersecting {
		t.Error("margin should extend the window into b")
	}
}

func TestObserver_Errors(t *testing.T) {
	v := New(10, 40)
	o := NewObserver(v, testLayout(), nil, nil)

	if err := o.Observe(item("missing")); !errors.Is(err, ErrNotLaidOut) {
		t.Errorf("expected ErrNotLaidOut, got %v", err)
	}

	o.Disconnect()
	o.Disconnect()
	if err := o.Observe(item("a")); !errors.Is(err, ErrDisconnected) {
		t.Errorf("expected ErrDisconnected, got %v", err)
	}
	if v.Observers() != 0 {
		t.Errorf("disconnect should detach, %d observers left", v.Observers())
	}
}

func TestObserver_Unobserve(t *testing.T) {
	v := New(10, 40)
	log := &entryLog{}
	o := NewObserver(v, testLayout(), nil, log.record)
	_ = o.Observe(item("a"))
	o.Unobserve(item("a"))
	log.calls = nil

	v.ScrollTo(30)
	if len(log.calls) != 0 {
		t.Errorf("unobserved item reported: %+v", log.calls)
	}
}

func TestFactory(t *testing.T) {
	v := New(10, 40)
	factory := Factory(v, testLayout())

	obs, err := factory(nil, visibility.ObserverConfig{ThresholdKey: 1.0}, func([]visibility.Entry) {})
	if err != nil {
		t.Fatal(err)
	}
	if err := obs.Observe(item("c")); err != nil {
		t.Fatal(err)
	}
	obs.Disconnect()

	if _, err := Factory(nil, nil)(nil, nil, nil); err == nil {
		t.Error("expected error without viewport")
	}
}
