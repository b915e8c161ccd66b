// Package journal implements the fixed-record maildrop index file.
//
// A journal is a flat file holding an append-only sequence of 48-byte message
// records. The committed prefix is delimited by the user.data_end extended
// attribute rather than by file length: bytes at or beyond the marker are
// garbage left behind by an interrupted append and are ignored by every
// reader. Per-user read windows are additional user.<name>_limit attributes
// that shrink the prefix a named user may observe.
package journal

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	// RecordSize is the on-disk size of one message record. The layout is
	// part of the on-disk contract and must be stable across builds.
	RecordSize = 48

	// MaxNameLen is the longest message filename a record can hold,
	// excluding the terminating NUL.
	MaxNameLen = nameFieldLen - 1

	nameFieldLen = 31
)

// Record describes one message file in the mail directory.
//
// Records are encoded little-endian: size at offset 0, top_limit at offset 8,
// the active flag at offset 16, and the NUL-terminated name filling the
// remaining 31 bytes.
type Record struct {
	// Size is the byte length of the message file at ingest time.
	Size int64

	// TopLimit is the offset of the end of the message's header block,
	// as recorded in the message file's user.top_limit attribute.
	TopLimit int64

	// Active is the session-local "not deleted" flag. True on ingest;
	// flipped by DELE, restored by RSET, never written back to disk.
	Active bool

	name [nameFieldLen]byte
}

// SetName stores the message filename, rejecting anything that is not a
// plain basename short enough for the fixed-width field.
func (r *Record) SetName(name string) error {
	if name == "" {
		return fmt.Errorf("empty message filename")
	}
	if len(name) > MaxNameLen {
		return fmt.Errorf("message filename %q is too long (max %d bytes)", name, MaxNameLen)
	}
	if strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("message filename %q is not a basename", name)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("message filename %q is not a basename", name)
	}
	r.name = [nameFieldLen]byte{}
	copy(r.name[:], name)
	return nil
}

// Name returns the message filename.
func (r *Record) Name() string {
	for i, b := range r.name {
		if b == 0 {
			return string(r.name[:i])
		}
	}
	return string(r.name[:])
}

// Marshal encodes the record into b, which must hold at least RecordSize
// bytes.
func (r *Record) Marshal(b []byte) {
	_ = b[:RecordSize]
	binary.LittleEndian.PutUint64(b[0:8], uint64(r.Size))
	binary.LittleEndian.PutUint64(b[8:16], uint64(r.TopLimit))
	if r.Active {
		b[16] = 1
	} else {
		b[16] = 0
	}
	copy(b[17:RecordSize], r.name[:])
}

// Unmarshal decodes a record from the first RecordSize bytes of b.
func (r *Record) Unmarshal(b []byte) error {
	if len(b) < RecordSize {
		return fmt.Errorf("short record: %d bytes", len(b))
	}
	r.Size = int64(binary.LittleEndian.Uint64(b[0:8]))
	r.TopLimit = int64(binary.LittleEndian.Uint64(b[8:16]))
	r.Active = b[16] != 0
	copy(r.name[:], b[17:RecordSize])
	return nil
}

// Validate checks the record invariants: a non-negative size, a top_limit
// within the message, and a usable basename.
func (r *Record) Validate() error {
	if r.Size < 0 {
		return fmt.Errorf("record %q: negative size %d", r.Name(), r.Size)
	}
	if r.TopLimit < 0 || r.TopLimit > r.Size {
		return fmt.Errorf("record %q: top limit %d outside [0, %d]", r.Name(), r.TopLimit, r.Size)
	}
	name := r.Name()
	if name == "" || strings.ContainsRune(name, '/') || name == "." || name == ".." {
		return fmt.Errorf("record has invalid message filename %q", name)
	}
	return nil
}
