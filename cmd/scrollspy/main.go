// Package main is the entry point for the scrollspy simulator.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/dshills/scrollspy/internal/app"
	"github.com/dshills/scrollspy/internal/logging"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const stopTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	out := newSyncWriter(os.Stdout)
	opts.OnChange = printChange(out)

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start: %v\n", err)
		return 1
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := application.Stop(stopCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: shutdown: %v\n", err)
		}
	}()

	sh := newShell(application, out)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		sh.prompt = "> "
	}
	done := make(chan error, 1)
	go func() { done <- sh.run(os.Stdin) }()

	select {
	case <-ctx.Done():
		return 0
	case err := <-done:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}
}

func parseFlags() app.Options {
	var opts app.Options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file (.toml, .yaml)")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.DocumentPath, "doc", "", "HTML document to track")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.MetricsAddr, "metrics", "", "Serve Prometheus metrics on this address")
	flag.BoolVar(&opts.Watch, "watch", false, "Reload the configuration file when it changes")
	flag.BoolVar(&opts.NoObserver, "no-observer", false, "Run without intersection observation")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "scrollspy - report which sections of a document are in view\n\n")
		fmt.Fprintf(os.Stderr, "Usage: scrollspy [options] [document.html]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands (read from stdin):\n")
		fmt.Fprint(os.Stderr, commandHelp)
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  scrollspy page.html                  Track [data-scrollspy] items\n")
		fmt.Fprintf(os.Stderr, "  scrollspy -c scrollspy.toml -watch   Reload settings on change\n")
		fmt.Fprintf(os.Stderr, "  scrollspy -metrics :9090 page.html   Expose metrics\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("scrollspy %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if opts.LogLevel != "" {
		if _, err := logging.ParseLevel(opts.LogLevel); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if opts.DocumentPath == "" && flag.NArg() > 0 {
		opts.DocumentPath = flag.Arg(0)
	}

	return opts
}
