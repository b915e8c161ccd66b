package journal

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Append consumes the record stream from in and appends it to the open
// journal, starting at the current commit marker. The marker is advanced
// exactly once, after all data has been written and synced, so a crash at
// any earlier point leaves the committed prefix untouched.
//
// The journal must be open read/write. Append takes a blocking exclusive
// flock on it; the lock is released when the caller closes the file. The
// stream is treated as opaque bytes: the producer is trusted to emit whole
// records, and a crash mid-record is harmless because the marker still
// points at the previous boundary.
func Append(f *os.File, in io.Reader) (int64, error) {
	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX); err != nil {
		return 0, fmt.Errorf("locking journal: %w", err)
	}

	end, err := DataEnd(f)
	if err != nil {
		return 0, err
	}

	if _, err := f.Seek(end, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seeking to end marker %d: %w", end, err)
	}
	// io.Copy lets os.File take over via ReadFrom, which uses
	// copy_file_range or splice when the input supports it. Short writes
	// are resumed by the copy loop; the running offset is the file
	// position, advanced only by bytes actually written.
	copied, err := io.Copy(f, in)
	if err != nil {
		return 0, fmt.Errorf("copying record stream to journal: %w", err)
	}
	end += copied

	// Durability ordering: data first, then the marker, then the marker's
	// own sync. Readers that open before the marker update ignore the new
	// bytes entirely.
	if err := unix.Fdatasync(fd); err != nil {
		return 0, fmt.Errorf("syncing journal data: %w", err)
	}
	if err := setOffsetAttr(f, EndMarkerAttr, end, unix.XATTR_REPLACE); err != nil {
		return 0, fmt.Errorf("advancing end marker: %w", err)
	}
	if err := unix.Fsync(fd); err != nil {
		return 0, fmt.Errorf("syncing end marker: %w", err)
	}
	return end, nil
}
