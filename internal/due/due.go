// Package due runs scheduled jobs once their wall-clock deadline passes.
//
// Deadlines are absolute unix timestamps. The wait is armed on a
// CLOCK_REALTIME timerfd with cancel-on-clock-change, so a jump of the
// system clock (NTP step, manual set) cancels the sleep and the deadline is
// re-evaluated against the new clock instead of drifting.
package due

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

// Job pairs a deadline with the executable to run when it passes.
type Job struct {
	When int64
	Path string
}

// ParseArgs turns alternating timestamp/executable arguments into jobs.
func ParseArgs(args []string) ([]Job, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no jobs given")
	}
	if len(args)%2 != 0 {
		return nil, fmt.Errorf("arguments must be timestamp/executable pairs")
	}
	jobs := make([]Job, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		when, err := strconv.ParseInt(args[i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp %q: %w", args[i], err)
		}
		jobs = append(jobs, Job{When: when, Path: args[i+1]})
	}
	return jobs, nil
}

// Run waits out each job's deadline in order and runs its executable. A
// job that fails to start or exits abnormally is logged and does not stop
// later jobs.
func Run(ctx context.Context, jobs []Job, logger *slog.Logger) error {
	for _, job := range jobs {
		if err := waitUntil(ctx, job.When); err != nil {
			return err
		}
		logger.Info("deadline reached", "when", job.When, "exe", job.Path)
		cmd := exec.CommandContext(ctx, job.Path)
		if err := cmd.Run(); err != nil {
			logger.Warn("job exited abnormally", "exe", job.Path, "error", err.Error())
		}
	}
	return nil
}

// waitUntil blocks until the wall clock passes the unix timestamp when.
func waitUntil(ctx context.Context, when int64) error {
	fd, err := unix.TimerfdCreate(unix.CLOCK_REALTIME, unix.TFD_CLOEXEC)
	if err != nil {
		return fmt.Errorf("timerfd_create: %w", err)
	}
	defer unix.Close(fd)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if time.Now().Unix() >= when {
			return nil
		}

		spec := unix.ItimerSpec{Value: unix.NsecToTimespec(when * int64(time.Second))}
		flags := unix.TFD_TIMER_ABSTIME | unix.TFD_TIMER_CANCEL_ON_SET
		if err := unix.TimerfdSettime(fd, flags, &spec, nil); err != nil {
			return fmt.Errorf("timerfd_settime: %w", err)
		}

		var buf [8]byte
		_, err := unix.Read(fd, buf[:])
		switch err {
		case nil:
			return nil
		case unix.ECANCELED:
			// Clock changed under us; recompute against the new time.
			continue
		case unix.EINTR:
			continue
		default:
			return fmt.Errorf("waiting on timer: %w", err)
		}
	}
}
