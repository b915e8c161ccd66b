package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Create initializes a fresh, empty journal at path. The file is created
// exclusively with mode 0600, its commit marker is set to zero, and the
// result is synced to disk before returning.
func Create(path string) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("creating journal %s: %w", path, err)
	}
	defer closeFile(f, &err)

	if err := setOffsetAttr(f, EndMarkerAttr, 0, 0); err != nil {
		return err
	}
	if err := unix.Fsync(int(f.Fd())); err != nil {
		return fmt.Errorf("syncing journal %s: %w", path, err)
	}
	return nil
}

// Rebuild constructs a new journal at tempPath from the contents of mailDir,
// carries the per-user window attributes over from the live journal at
// journalPath, and atomically exchanges the two directory entries. The old
// journal, now at tempPath, is unlinked last.
//
// A failure before the exchange leaves the live journal untouched. A failure
// between exchange and unlink leaves an orphan temp file holding the old
// journal, but the live path is already correct.
func Rebuild(journalPath, tempPath, mailDir string) error {
	if err := buildJournal(tempPath, journalPath, mailDir); err != nil {
		return err
	}
	err := unix.Renameat2(unix.AT_FDCWD, journalPath, unix.AT_FDCWD, tempPath, unix.RENAME_EXCHANGE)
	if err != nil {
		return fmt.Errorf("exchanging %s and %s: %w", journalPath, tempPath, err)
	}
	if err := os.Remove(tempPath); err != nil {
		return fmt.Errorf("removing old journal %s: %w", tempPath, err)
	}
	return nil
}

// buildJournal writes the replacement journal at tempPath, fully synced and
// closed, without touching the live journal's directory entry.
func buildJournal(tempPath, journalPath, mailDir string) (err error) {
	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("creating journal %s: %w", tempPath, err)
	}
	defer closeFile(f, &err)

	written, err := writeMailDir(f, mailDir)
	if err != nil {
		return err
	}
	if err := copyUserAttrs(f, journalPath); err != nil {
		return err
	}
	if err := setOffsetAttr(f, EndMarkerAttr, written, 0); err != nil {
		return err
	}
	if err := unix.Fsync(int(f.Fd())); err != nil {
		return fmt.Errorf("syncing journal %s: %w", tempPath, err)
	}
	return nil
}

// writeMailDir appends one record per regular file in mailDir and returns
// the number of bytes written. Symlinks and other non-regular entries are
// skipped without being followed.
func writeMailDir(f *os.File, mailDir string) (int64, error) {
	entries, err := os.ReadDir(mailDir)
	if err != nil {
		return 0, fmt.Errorf("reading mail directory %s: %w", mailDir, err)
	}

	var written int64
	buf := make([]byte, RecordSize)
	for _, entry := range entries {
		rec, ok, err := recordForEntry(mailDir, entry.Name())
		if err != nil {
			return written, err
		}
		if !ok {
			continue
		}
		rec.Marshal(buf)
		if _, err := f.Write(buf); err != nil {
			return written, fmt.Errorf("writing record for %s: %w", entry.Name(), err)
		}
		written += RecordSize
	}
	return written, nil
}

// recordForEntry builds the record for one directory entry. ok is false for
// entries that are skipped (symlinks, directories, devices).
func recordForEntry(mailDir, name string) (rec Record, ok bool, err error) {
	mf, err := os.OpenFile(filepath.Join(mailDir, name), os.O_RDONLY|unix.O_NOFOLLOW, 0)
	if err != nil {
		// O_NOFOLLOW turns a symlink into ELOOP; skip it like any
		// other non-regular entry.
		if errors.Is(err, unix.ELOOP) {
			return rec, false, nil
		}
		return rec, false, fmt.Errorf("opening message %s: %w", name, err)
	}
	defer mf.Close()

	st, err := mf.Stat()
	if err != nil {
		return rec, false, fmt.Errorf("stat message %s: %w", name, err)
	}
	if !st.Mode().IsRegular() {
		return rec, false, nil
	}

	top, err := getOffsetAttr(mf, TopLimitAttr)
	if err != nil {
		return rec, false, fmt.Errorf("message %s has no end-of-headers marker: %w", name, err)
	}

	rec.Size = st.Size()
	rec.TopLimit = top
	rec.Active = true
	if err := rec.SetName(name); err != nil {
		return rec, false, err
	}
	return rec, true, nil
}

// copyUserAttrs replicates every user.* attribute except the commit marker
// from the live journal onto the open replacement file.
func copyUserAttrs(f *os.File, journalPath string) error {
	size, err := unix.Listxattr(journalPath, nil)
	if err != nil {
		return fmt.Errorf("listing attributes of %s: %w", journalPath, err)
	}
	buf := make([]byte, size)
	size, err = unix.Listxattr(journalPath, buf)
	if err != nil {
		return fmt.Errorf("listing attributes of %s: %w", journalPath, err)
	}

	for _, attr := range strings.Split(strings.TrimRight(string(buf[:size]), "\x00"), "\x00") {
		if attr == "" || attr == EndMarkerAttr || !strings.HasPrefix(attr, userAttrPrefix) {
			continue
		}
		var val [8]byte
		n, err := unix.Getxattr(journalPath, attr, val[:])
		if err != nil || n != len(val) {
			return fmt.Errorf("invalid attribute %q on %s", attr, journalPath)
		}
		if err := unix.Fsetxattr(int(f.Fd()), attr, val[:], 0); err != nil {
			return fmt.Errorf("copying attribute %q: %w", attr, err)
		}
	}
	return nil
}

// closeFile closes f and surfaces the close error when no earlier error is
// pending.
func closeFile(f *os.File, err *error) {
	if cerr := f.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("closing %s: %w", f.Name(), cerr)
	}
}
