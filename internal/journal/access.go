package journal

import (
	"os"

	"golang.org/x/sys/unix"
)

// Deny pins user's read window at the current commit marker. Records
// appended after this point are invisible to the user. Fails if a window
// already exists for the user.
func Deny(f *os.File, user string) error {
	return setLimit(f, user, unix.XATTR_CREATE)
}

// Update moves user's read window to the current commit marker, creating
// it if necessary.
func Update(f *os.File, user string) error {
	return setLimit(f, user, 0)
}

// Grant removes user's read window so the user sees the full committed
// prefix again. Fails if no window exists.
func Grant(f *os.File, user string) error {
	attr, err := limitAttr(user)
	if err != nil {
		return err
	}
	return removeAttr(f, attr)
}

func setLimit(f *os.File, user string, flags int) error {
	attr, err := limitAttr(user)
	if err != nil {
		return err
	}
	end, err := DataEnd(f)
	if err != nil {
		return err
	}
	return setOffsetAttr(f, attr, end, flags)
}
