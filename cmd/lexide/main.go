// Package main is the entry point for the lexide daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lexide/lexide/internal/app"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()

	if err := application.WaitSandboxReady(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: sandbox did not come up: %v\n", err)
		return 1
	}

	if names := application.Config().Plugins.Autoload; len(names) > 0 {
		params := map[string][]string{"names": names}
		if _, err := application.CallSandbox(ctx, "loadPlugins", params); err != nil {
			fmt.Fprintf(os.Stderr, "Error: plugin autoload failed: %v\n", err)
			return 1
		}
	}

	if err := application.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() app.Options {
	var opts app.Options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.StorePath, "store", "", "Path to the persistent option store")
	flag.StringVar(&opts.Locale, "locale", "", "Override the detected locale")
	flag.BoolVar(&opts.WatchConfig, "watch", false, "Reload configuration on change")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Lexide - dictionary lookup and flashcard daemon\n\n")
		fmt.Fprintf(os.Stderr, "Usage: lexide [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  lexide                       Run with defaults\n")
		fmt.Fprintf(os.Stderr, "  lexide -c lexide.toml        Run with a configuration file\n")
		fmt.Fprintf(os.Stderr, "  lexide -c lexide.toml -watch Reload configuration on change\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("Lexide %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	return opts
}
