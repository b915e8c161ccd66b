package pop3

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// sendfile chunks are capped so the count always fits the syscall argument,
// even for pathologically large records.
const maxStreamChunk = 1 << 30

// responseWriter writes protocol responses. When the client stream is a
// real file descriptor, message bodies bypass the buffered writer and go
// through sendfile.
type responseWriter struct {
	w    *bufio.Writer
	file *os.File
}

func newResponseWriter(out io.Writer) *responseWriter {
	rw := &responseWriter{w: bufio.NewWriter(out)}
	if f, ok := out.(*os.File); ok {
		rw.file = f
	}
	return rw
}

// line writes s followed by CRLF. Any failure is wrapped in ErrWriteFailed:
// once the output stream is broken there is no way to report anything
// further to the client.
func (rw *responseWriter) line(s string) error {
	if _, err := rw.w.WriteString(s); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if _, err := rw.w.WriteString("\r\n"); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

func (rw *responseWriter) flush() error {
	if err := rw.w.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// streamFile copies exactly n bytes of f to the client, resuming on short
// transfers. The buffered writer is flushed first so the body lands after
// any pending status line.
//
// The body is streamed as-is: no dot-stuffing is applied. Messages are
// expected to be stuffed on ingest; see the maildrop design notes.
func (rw *responseWriter) streamFile(f *os.File, n int64) error {
	if err := rw.flush(); err != nil {
		return err
	}
	if rw.file == nil {
		if _, err := io.CopyN(rw.w, f, n); err != nil {
			return fmt.Errorf("streaming message: %w", err)
		}
		return rw.flush()
	}

	var off int64
	for off < n {
		chunk := n - off
		if chunk > maxStreamChunk {
			chunk = maxStreamChunk
		}
		sent, err := unix.Sendfile(int(rw.file.Fd()), int(f.Fd()), &off, int(chunk))
		if err != nil {
			return fmt.Errorf("sendfile: %w", err)
		}
		if sent == 0 {
			// The file is shorter than the record says; there is no
			// way to make the client whole mid-body.
			return fmt.Errorf("streaming message: %w", io.ErrUnexpectedEOF)
		}
	}
	return nil
}
