package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	// EndMarkerAttr is the commit marker attribute on a journal file.
	// Bytes [0, data_end) are committed; anything beyond is garbage.
	EndMarkerAttr = "user.data_end"

	// TopLimitAttr is the attribute on a message file that marks the end
	// of its header block.
	TopLimitAttr = "user.top_limit"

	userAttrPrefix = "user."
	limitSuffix    = "_limit"

	// maxAttrName is the kernel's XATTR_NAME_MAX.
	maxAttrName = 255
)

// ErrNoAttr reports that a requested extended attribute does not exist.
var ErrNoAttr = errors.New("attribute not present")

// limitAttr returns the per-user window attribute name for user, or an
// error when the name would exceed the kernel limit.
func limitAttr(user string) (string, error) {
	name := userAttrPrefix + user + limitSuffix
	if len(name) > maxAttrName {
		return "", fmt.Errorf("username %q is too long", user)
	}
	return name, nil
}

// getOffsetAttr reads an 8-byte offset attribute from the open file.
// Returns ErrNoAttr when the attribute is absent.
func getOffsetAttr(f *os.File, attr string) (int64, error) {
	var buf [8]byte
	n, err := unix.Fgetxattr(int(f.Fd()), attr, buf[:])
	if err != nil {
		if errors.Is(err, unix.ENODATA) {
			return 0, fmt.Errorf("%s: %w", attr, ErrNoAttr)
		}
		return 0, fmt.Errorf("reading attribute %s: %w", attr, err)
	}
	if n != len(buf) {
		return 0, fmt.Errorf("attribute %s has size %d, want %d", attr, n, len(buf))
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

// setOffsetAttr writes an 8-byte offset attribute on the open file.
// flags is 0, unix.XATTR_CREATE, or unix.XATTR_REPLACE.
func setOffsetAttr(f *os.File, attr string, val int64, flags int) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(val))
	if err := unix.Fsetxattr(int(f.Fd()), attr, buf[:], flags); err != nil {
		return fmt.Errorf("writing attribute %s: %w", attr, err)
	}
	return nil
}

// removeAttr deletes an attribute from the open file.
func removeAttr(f *os.File, attr string) error {
	if err := unix.Fremovexattr(int(f.Fd()), attr); err != nil {
		if errors.Is(err, unix.ENODATA) {
			return fmt.Errorf("%s: %w", attr, ErrNoAttr)
		}
		return fmt.Errorf("removing attribute %s: %w", attr, err)
	}
	return nil
}

// DataEnd returns the journal's commit marker. A missing or malformed
// marker is an error; callers must refuse to operate on such a journal.
func DataEnd(f *os.File) (int64, error) {
	end, err := getOffsetAttr(f, EndMarkerAttr)
	if err != nil {
		return 0, fmt.Errorf("journal is missing its end marker: %w", err)
	}
	if end < 0 {
		return 0, fmt.Errorf("journal end marker is negative: %d", end)
	}
	return end, nil
}

// checkPrefix validates that off can delimit a committed prefix: it must be
// non-negative and an exact multiple of the record size.
func checkPrefix(off int64) error {
	if off < 0 {
		return fmt.Errorf("invalid journal size: negative (%d)", off)
	}
	if off%RecordSize != 0 {
		return fmt.Errorf("invalid journal size: %d is not divisible by the record size", off)
	}
	return nil
}
