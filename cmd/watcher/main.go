// Command watcher supervises a drop directory:
//
//	watcher [-config file] <directory> <script>
//
// For every entry created in the directory it spawns `<script> <directory>
// <name>`. It runs until SIGINT or SIGTERM and optionally exposes spawn
// metrics over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/infodancer/maildrop/internal/config"
	"github.com/infodancer/maildrop/internal/logging"
	"github.com/infodancer/maildrop/internal/metrics"
	"github.com/infodancer/maildrop/internal/watcher"
)

func main() {
	configPath := flag.String("config", "./maildrop.toml", "Path to configuration file")
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <directory> <script>\n", filepath.Base(os.Args[0]))
		os.Exit(1)
	}
	dir, script := flag.Arg(0), flag.Arg(1)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "watcher: error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "watcher: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.WatcherLogLevel())

	var collector metrics.Collector = &metrics.NoopCollector{}
	if cfg.Watcher.Metrics.Enabled {
		collector = metrics.NewPrometheusCollector(prometheus.DefaultRegisterer)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	if cfg.Watcher.Metrics.Enabled {
		metricsServer := metrics.NewPrometheusServer(cfg.Watcher.Metrics.Address, cfg.Watcher.Metrics.Path)
		go func() {
			if err := metricsServer.Start(ctx); err != nil && err != context.Canceled {
				logger.Error("metrics server error", "error", err.Error())
			}
		}()
		logger.Info("metrics server started",
			"address", cfg.Watcher.Metrics.Address, "path", cfg.Watcher.Metrics.Path)
	}

	w, err := watcher.New(dir, script, logger, collector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "watcher: %v\n", err)
		os.Exit(1)
	}

	logger.Info("watching directory", "dir", dir, "script", script)
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "watcher: %v\n", err)
		os.Exit(1)
	}
	logger.Info("watcher stopped")
}
