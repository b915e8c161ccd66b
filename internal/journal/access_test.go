package journal

import (
	"strings"
	"testing"
)

func TestDeny(t *testing.T) {
	dir := xattrDir(t)
	path := newJournal(t, dir, mustRecord(t, "m1", 100, 40))
	f := openJournal(t, path)

	if err := Deny(f, "carol"); err != nil {
		t.Fatalf("Deny() error = %v", err)
	}
	limit, err := getOffsetAttr(f, "user.carol_limit")
	if err != nil {
		t.Fatalf("reading limit: %v", err)
	}
	if limit != RecordSize {
		t.Errorf("limit = %d, want %d", limit, RecordSize)
	}

	if err := Deny(f, "carol"); err == nil {
		t.Error("second Deny() succeeded, want attribute-exists error")
	}
}

func TestUpdate(t *testing.T) {
	dir := xattrDir(t)
	path := newJournal(t, dir, mustRecord(t, "m1", 100, 40))
	f := openJournal(t, path)

	// Update creates the window when absent and moves it once the marker
	// has advanced.
	if err := Update(f, "carol"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := setOffsetAttr(f, EndMarkerAttr, 2*RecordSize, 0); err != nil {
		t.Fatalf("advancing marker: %v", err)
	}
	if err := Update(f, "carol"); err != nil {
		t.Fatalf("second Update() error = %v", err)
	}

	limit, err := getOffsetAttr(f, "user.carol_limit")
	if err != nil {
		t.Fatalf("reading limit: %v", err)
	}
	if limit != 2*RecordSize {
		t.Errorf("limit = %d, want %d", limit, 2*RecordSize)
	}
}

func TestGrant(t *testing.T) {
	dir := xattrDir(t)
	path := newJournal(t, dir, mustRecord(t, "m1", 100, 40))
	f := openJournal(t, path)

	if err := Deny(f, "carol"); err != nil {
		t.Fatalf("Deny() error = %v", err)
	}
	if err := Grant(f, "carol"); err != nil {
		t.Fatalf("Grant() error = %v", err)
	}
	if _, err := getOffsetAttr(f, "user.carol_limit"); err == nil {
		t.Error("limit attribute survived Grant()")
	}

	if err := Grant(f, "carol"); err == nil {
		t.Error("Grant() without a window succeeded, want error")
	}
}

func TestAccessRejectsOversizeUsername(t *testing.T) {
	dir := xattrDir(t)
	path := newJournal(t, dir)
	f := openJournal(t, path)

	long := strings.Repeat("x", 300)
	if err := Deny(f, long); err == nil {
		t.Error("Deny() accepted an oversized username")
	}
	if err := Update(f, long); err == nil {
		t.Error("Update() accepted an oversized username")
	}
	if err := Grant(f, long); err == nil {
		t.Error("Grant() accepted an oversized username")
	}
}
