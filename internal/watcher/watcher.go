// Package watcher spawns a handler process for every file created in a
// watched directory. It is the ingestion supervisor: the SMTP front-end (or
// any other producer) drops a file, and the watcher hands its name to the
// configured script.
package watcher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/infodancer/maildrop/internal/metrics"
)

// eventBufSize holds a batch of inotify events; each event is the fixed
// header plus a NUL-padded name.
const eventBufSize = 10 * 1024

// Watcher watches one directory for created entries.
type Watcher struct {
	dir    string
	script string

	file      *os.File
	logger    *slog.Logger
	collector metrics.Collector
}

// New sets up an inotify watch on dir. The watch is create-only, refuses
// non-directories, and never follows symlinks. For every created name the
// watcher runs `script dir name`.
func New(dir, script string, logger *slog.Logger, collector metrics.Collector) (*Watcher, error) {
	// Non-blocking so os.NewFile registers the fd with the runtime poller;
	// only then does Close interrupt a pending Read.
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("inotify_init1: %w", err)
	}
	file := os.NewFile(uintptr(fd), "inotify")

	if _, err := unix.InotifyAddWatch(fd, dir, unix.IN_CREATE|unix.IN_ONLYDIR|unix.IN_DONT_FOLLOW|unix.IN_MASK_CREATE); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("watching directory %s: %w", dir, err)
	}

	if collector == nil {
		collector = &metrics.NoopCollector{}
	}
	return &Watcher{
		dir:       dir,
		script:    script,
		file:      file,
		logger:    logger,
		collector: collector,
	}, nil
}

// Run reads events until the context is canceled. Handler processes are
// started without waiting for them; each is reaped in the background so the
// event loop never blocks on a slow handler.
func (w *Watcher) Run(ctx context.Context) error {
	// Closing the inotify fd is the only way to interrupt the blocking
	// read below.
	stop := context.AfterFunc(ctx, func() {
		_ = w.file.Close()
	})
	defer stop()
	defer w.file.Close()

	buf := make([]byte, eventBufSize)
	for {
		n, err := w.file.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading inotify events: %w", err)
		}
		for _, name := range eventNames(buf[:n]) {
			w.spawn(name)
		}
	}
}

// eventNames extracts the created entry names from a raw inotify buffer.
func eventNames(buf []byte) []string {
	var names []string
	for off := 0; off+unix.SizeofInotifyEvent <= len(buf); {
		ev := (*unix.InotifyEvent)(unsafe.Pointer(&buf[off]))
		nameStart := off + unix.SizeofInotifyEvent
		nameEnd := nameStart + int(ev.Len)
		if nameEnd > len(buf) {
			break
		}
		if name := string(bytes.TrimRight(buf[nameStart:nameEnd], "\x00")); name != "" {
			names = append(names, name)
		}
		off = nameEnd
	}
	return names
}

// spawn starts `script dir name` and reaps it asynchronously.
func (w *Watcher) spawn(name string) {
	cmd := exec.Command(w.script, w.dir, name)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		w.logger.Error("failed to start handler",
			"script", w.script, "name", name, "error", err.Error())
		return
	}
	w.collector.ChildSpawned(w.dir)
	w.logger.Debug("spawned handler", "script", w.script, "name", name, "pid", cmd.Process.Pid)

	go func() {
		if err := cmd.Wait(); err != nil {
			w.logger.Warn("handler exited abnormally",
				"script", w.script, "name", name, "error", err.Error())
		}
	}()
}
