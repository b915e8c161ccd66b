package journal

import (
	"errors"
	"fmt"
	"os"
)

// Snapshot is a session-private view of the committed journal prefix,
// captured once at login. Deletion marks flipped on it are visible only to
// the holding session and are never written back; concurrent appends and
// other sessions' deletes cannot change it.
//
// The snapshot is a heap copy of the prefix rather than a private mapping:
// records below the commit marker are immutable and the marker is read once,
// so a single positioned read gives the same isolation guarantee.
type Snapshot struct {
	records []Record
}

// NewSnapshot wraps already-decoded records in a session-private snapshot.
func NewSnapshot(records []Record) *Snapshot {
	return &Snapshot{records: records}
}

// Load captures the maildrop visible to user from the open journal.
//
// The limit is the user's window attribute when present, otherwise the
// global commit marker. Absence of the window is the normal fallback; any
// other failure, including a missing marker, is fatal to the caller. A zero
// limit yields an empty snapshot.
func Load(f *os.File, user string) (*Snapshot, error) {
	attr, err := limitAttr(user)
	if err != nil {
		return nil, err
	}
	limit, err := getOffsetAttr(f, attr)
	if errors.Is(err, ErrNoAttr) {
		limit, err = DataEnd(f)
	}
	if err != nil {
		return nil, err
	}
	if err := checkPrefix(limit); err != nil {
		return nil, err
	}
	if limit == 0 {
		return &Snapshot{}, nil
	}

	buf := make([]byte, limit)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("reading journal prefix [0, %d): %w", limit, err)
	}

	records := make([]Record, limit/RecordSize)
	for i := range records {
		if err := records[i].Unmarshal(buf[i*RecordSize:]); err != nil {
			return nil, err
		}
	}
	return &Snapshot{records: records}, nil
}

// Len returns the total number of records in the snapshot, active or not.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// Record returns the record at 0-based index i. The pointer aliases the
// snapshot so flipping Active is visible to later calls.
func (s *Snapshot) Record(i int) *Record {
	return &s.records[i]
}

// Stat returns the number of active records and their total size in bytes.
func (s *Snapshot) Stat() (active int, totalSize int64) {
	for i := range s.records {
		if s.records[i].Active {
			active++
			totalSize += s.records[i].Size
		}
	}
	return active, totalSize
}

// HasInactive reports whether any record is marked deleted.
func (s *Snapshot) HasInactive() bool {
	for i := range s.records {
		if !s.records[i].Active {
			return true
		}
	}
	return false
}

// ResetActive restores every record's active flag, undoing all session
// deletion marks.
func (s *Snapshot) ResetActive() {
	for i := range s.records {
		s.records[i].Active = true
	}
}

// Loader loads snapshots from an open journal file. It adapts the package
// function to the interface the POP3 session consumes.
type Loader struct {
	File *os.File
}

// Load implements the session loader contract.
func (l Loader) Load(user string) (*Snapshot, error) {
	return Load(l.File, user)
}
