package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/rivo/uniseg"

	"github.com/dshills/scrollspy/internal/app"
	"github.com/dshills/scrollspy/internal/event/topic"
	"github.com/dshills/scrollspy/internal/nav"
)

const commandHelp = `  down [n]   scroll down n rows (default: half a page)
  up [n]     scroll up n rows (default: half a page)
  pgdn       scroll down one page
  pgup       scroll up one page
  goto <n>   show row n at the top
  top        scroll to the first row
  bottom     scroll to the last row
  flush      publish pending changes now
  nav        print the navigation list
  events [p] print the bus listeners, optionally under topic p
  stats      print tracker counters
  help       print this list
  quit       exit
`

// syncWriter serializes writes from the shell and from change callbacks.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newSyncWriter(w io.Writer) *syncWriter {
	return &syncWriter{w: w}
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func printChange(w io.Writer) func(nav.Item) {
	return func(it nav.Item) {
		mark := "-"
		if it.Visible {
			mark = "+"
		}
		fmt.Fprintf(w, "%s %s %s\n", mark, it.ID, it.Title)
	}
}

const idColumn = 16

type shell struct {
	app    *app.Application
	out    io.Writer
	prompt string
}

func newShell(a *app.Application, out io.Writer) *shell {
	return &shell{app: a, out: out}
}

// run executes commands until quit or EOF.
func (s *shell) run(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for {
		fmt.Fprint(s.out, s.prompt)
		if !sc.Scan() {
			break
		}
		quit, err := s.exec(sc.Text())
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
	return sc.Err()
}

// exec runs one command line.
func (s *shell) exec(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	vp := s.app.Viewport()

	switch cmd, args := fields[0], fields[1:]; cmd {
	case "down", "j":
		n, err := countArg(args, 0)
		if err != nil {
			return false, err
		}
		if n == 0 {
			vp.HalfPageDown()
		} else {
			vp.ScrollBy(n)
		}
	case "up", "k":
		n, err := countArg(args, 0)
		if err != nil {
			return false, err
		}
		if n == 0 {
			vp.HalfPageUp()
		} else {
			vp.ScrollBy(-n)
		}
	case "pgdn":
		vp.PageDown()
	case "pgup":
		vp.PageUp()
	case "goto":
		if len(args) != 1 {
			return false, fmt.Errorf("goto needs a row")
		}
		n, err := countArg(args, 0)
		if err != nil {
			return false, err
		}
		vp.ScrollTo(n)
	case "top":
		vp.ScrollToTop()
	case "bottom":
		vp.ScrollToBottom()
	case "flush":
		if !s.app.Flush() {
			fmt.Fprintln(s.out, "nothing pending")
		}
		return false, nil
	case "nav":
		s.printNav()
		return false, nil
	case "events":
		var prefix topic.Topic
		if len(args) > 0 {
			prefix = topic.Topic(args[0])
			if err := prefix.Validate(); err != nil {
				return false, err
			}
		}
		fmt.Fprint(s.out, s.app.Bus().EventsUnder(prefix))
		return false, nil
	case "stats":
		s.printStats()
		return false, nil
	case "help", "?":
		fmt.Fprint(s.out, commandHelp)
		return false, nil
	case "quit", "q", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q", cmd)
	}

	start, end := vp.VisibleRange()
	fmt.Fprintf(s.out, "rows %d-%d of %d (%d%%)\n", start, end, vp.MaxRow(), vp.ScrollPercent())
	return false, nil
}

func (s *shell) printNav() {
	active, hasActive := s.app.Navigation().Active()
	for _, it := range s.app.Navigation().Items() {
		mark := " "
		switch {
		case hasActive && it.ID == active.ID:
			mark = ">"
		case it.Visible:
			mark = "*"
		}
		pad := max(idColumn-uniseg.StringWidth(it.ID), 0)
		fmt.Fprintf(s.out, "%s %s%s %s\n", mark, it.ID, strings.Repeat(" ", pad), it.Title)
	}
}

func (s *shell) printStats() {
	t := s.app.Tracker()
	if t == nil {
		fmt.Fprintln(s.out, "tracking disabled")
		return
	}
	st := t.Stats()
	bs := s.app.Bus().Stats()
	fmt.Fprintf(s.out, "observed=%d pending=%d batches=%d dispatched=%d failures=%d delivered=%d\n",
		st.Observed, st.Pending, st.Batches, st.Dispatched, st.Failures, bs.Delivered)
}

func countArg(args []string, def int) (int, error) {
	if len(args) == 0 {
		return def, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid count %q", args[0])
	}
	return n, nil
}
