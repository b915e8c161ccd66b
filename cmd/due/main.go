// Command due runs executables once their wall-clock deadlines pass:
//
//	due <unix-timestamp> <executable> [<unix-timestamp> <executable>...]
//
// Timestamps are expected in increasing order. The wait survives system
// clock jumps: a changed clock cancels the sleep and the deadline is
// re-checked against the new time.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/infodancer/maildrop/internal/due"
	"github.com/infodancer/maildrop/internal/logging"
)

func main() {
	jobs, err := due.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Usage: %s <timestamp> <executable> [<timestamp> <executable>...]\n",
			filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "due: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger("info")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := due.Run(ctx, jobs, logger); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "due: %v\n", err)
		os.Exit(1)
	}
}
