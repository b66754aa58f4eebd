// Package main is the entry point for windbus.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/dshills/windbus/internal/app"
	"github.com/dshills/windbus/internal/config"
	"github.com/dshills/windbus/internal/eventloop"
	"github.com/dshills/windbus/internal/logging"
	"github.com/dshills/windbus/internal/platform"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// The event loop must own the main OS thread.
func init() {
	runtime.LockOSThread()
}

type options struct {
	configPath string
	logLevel   string
}

func main() {
	os.Exit(run(parseFlags()))
}

func run(opts options) int {
	var cfgOpts []config.Option
	if opts.configPath != "" {
		cfgOpts = append(cfgOpts, config.WithFile(opts.configPath))
	}
	cfg := config.New(cfgOpts...)
	if err := cfg.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		return 1
	}

	closeLog, err := setupLogging(cfg.Log(), opts.logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeLog()
	log := logging.Logger()

	application, err := app.New(app.Options{Config: cfg, Logger: log})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	loopCfg := cfg.Loop()
	handoff := make(chan *eventloop.Proxy, 1)
	appErr := make(chan error, 1)

	go func() {
		proxy := <-handoff
		appErr <- application.Run(context.Background(), proxy)
	}()

	// Run returns once the application sends Exit.
	if err := eventloop.Run(platform.NewTerminal(), handoff,
		eventloop.WithClosePolicy(loopCfg.ClosePolicy),
		eventloop.WithCommandBuffer(loopCfg.CommandBuffer),
		eventloop.WithLogger(log),
	); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if err := <-appErr; err != nil && !errors.Is(err, app.ErrLoopStopped) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// setupLogging installs the package logger. The terminal owns stderr, so
// logs only go to a file; an empty file name disables logging.
func setupLogging(lc config.LogConfig, levelOverride string) (func(), error) {
	if lc.File == "" {
		return func() {}, nil
	}
	if levelOverride != "" {
		lc.Level = levelOverride
	}

	f, err := logging.OpenFile(lc.File)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	var out io.Writer = f
	logger, err := logging.New(logging.Config{Level: lc.Level, Format: lc.Format, Output: out})
	if err != nil {
		f.Close()
		return nil, err
	}
	logging.SetLogger(logger)

	return func() {
		logging.SetLogger(logging.Nop())
		f.Close()
	}, nil
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file (.toml, .yaml)")
	flag.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "windbus - terminal window driven over a cross-thread command bus\n\n")
		fmt.Fprintf(os.Stderr, "Usage: windbus [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  WINDBUS_<SECTION>_<KEY> overrides a config key, e.g. WINDBUS_WINDOW_TITLE\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  windbus                       Default window, q quits\n")
		fmt.Fprintf(os.Stderr, "  windbus -c windbus.toml       Use a config file (reloaded on change)\n")
		fmt.Fprintf(os.Stderr, "  windbus -log-level debug      Log every dispatched command\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("windbus %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if opts.logLevel != "" {
		if _, err := logging.ParseLevel(opts.logLevel); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.logLevel)
			os.Exit(1)
		}
	}

	return opts
}
