// Command pop3 serves one POP3 session on stdin/stdout:
//
//	pop3 [-config file] <mail directory> <journal file>
//
// It is meant to be spawned per-connection by an inetd-style supervisor.
// Exit codes: 0 for a clean session (QUIT or client EOF between commands),
// 1 for a fatal startup or protocol error, 2 when the output stream broke.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/infodancer/maildrop/internal/config"
	"github.com/infodancer/maildrop/internal/creds"
	"github.com/infodancer/maildrop/internal/journal"
	"github.com/infodancer/maildrop/internal/logging"
	"github.com/infodancer/maildrop/internal/metrics"
	"github.com/infodancer/maildrop/internal/pop3"
)

func main() {
	configPath := flag.String("config", "./maildrop.toml", "Path to configuration file")
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <mail directory> <journal file>\n",
			filepath.Base(os.Args[0]))
		os.Exit(1)
	}
	mailDir, journalPath := flag.Arg(0), flag.Arg(1)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pop3: error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "pop3: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Pop3LogLevel())

	checker, err := creds.FromConfig(cfg.Pop3.Auth)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pop3: %v\n", err)
		os.Exit(1)
	}

	// Some spawners hand us stdout opened with O_APPEND, which sendfile
	// refuses; clear it before any streaming happens.
	if flags, err := unix.FcntlInt(os.Stdout.Fd(), unix.F_GETFL, 0); err == nil {
		_, _ = unix.FcntlInt(os.Stdout.Fd(), unix.F_SETFL, flags&^unix.O_APPEND)
	}

	jf, err := os.Open(journalPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pop3: unable to open journal file %q: %v\n", journalPath, err)
		os.Exit(1)
	}
	defer jf.Close()

	sess := pop3.New(pop3.Config{
		MailDir:        mailDir,
		Loader:         journal.Loader{File: jf},
		Checker:        checker,
		Implementation: cfg.Pop3.Implementation,
		Logger:         logger,
		Collector:      &metrics.NoopCollector{},
	}, os.Stdin, os.Stdout)

	if err := sess.Run(context.Background()); err != nil {
		if errors.Is(err, pop3.ErrWriteFailed) {
			// The client stream is gone; nothing more can be said to it.
			logger.Error("session aborted", "error", err.Error())
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "pop3: %v\n", err)
		os.Exit(1)
	}
}
