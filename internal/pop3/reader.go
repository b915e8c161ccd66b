package pop3

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
)

// LineLimit is the longest argument a command line may carry. Longer lines
// are reported as oversized and their remainder discarded.
const LineLimit = 1023

// LineReader consumes the client side of the protocol: 4-character command
// tokens followed by a bounded argument line. CRLF is the canonical
// terminator; a lone CR or lone LF is tolerated with an operator-log
// warning.
type LineReader struct {
	r      *bufio.Reader
	logger *slog.Logger
}

// NewLineReader wraps in for protocol reading. Warnings about malformed
// input go to logger.
func NewLineReader(in io.Reader, logger *slog.Logger) *LineReader {
	return &LineReader{
		r:      bufio.NewReader(in),
		logger: logger,
	}
}

// ReadCommand reads the 4-character command token. Alphabetic bytes are
// lowercased into the token; the first other byte ends it, padding the
// remaining slots with spaces. The byte after the token must be a space,
// CR, or LF, otherwise the token is unrecognizable and tokenUnknown is
// returned with the offending line still unconsumed.
//
// io.EOF is returned untouched when the stream ends inside the token; the
// session treats that as the client hanging up cleanly.
func (lr *LineReader) ReadCommand() (string, error) {
	var tok [4]byte
	n := 0
	for n < 4 {
		c, err := lr.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return "", io.EOF
			}
			return "", fmt.Errorf("reading command: %w", err)
		}
		if isAlpha(c) {
			tok[n] = c | 0x20
			n++
			continue
		}
		if c != ' ' && c != '\r' && c != '\n' {
			lr.logger.Warn("unexpected byte in command token", "byte", c)
		}
		if err := lr.r.UnreadByte(); err != nil {
			return "", err
		}
		break
	}
	for ; n < 4; n++ {
		tok[n] = ' '
	}

	// The token must be delimited; a fifth command byte means the whole
	// line is unrecognizable.
	c, err := lr.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			return tokenUnknown, nil
		}
		return "", fmt.Errorf("reading command: %w", err)
	}
	if c != ' ' && c != '\r' && c != '\n' {
		return tokenUnknown, nil
	}
	if err := lr.r.UnreadByte(); err != nil {
		return "", err
	}
	return string(tok[:]), nil
}

// ReadArg reads the remainder of the command line up to but not including
// the terminator. ok is false when the argument exceeded LineLimit bytes;
// the remainder of the line has then already been discarded.
func (lr *LineReader) ReadArg() (arg string, ok bool, err error) {
	var buf []byte
	for len(buf) <= LineLimit {
		c, err := lr.r.ReadByte()
		if err != nil {
			return "", false, fmt.Errorf("unexpected end of input in argument: %w", err)
		}
		if c == '\r' || c == '\n' {
			if err := lr.r.UnreadByte(); err != nil {
				return "", false, err
			}
			if err := lr.eatNewline(); err != nil {
				return "", false, err
			}
			return string(buf), true, nil
		}
		buf = append(buf, c)
	}
	if err := lr.DiscardLine(); err != nil {
		return "", false, err
	}
	return "", false, nil
}

// DiscardLine consumes the rest of the current line including its
// terminator.
func (lr *LineReader) DiscardLine() error {
	for {
		c, err := lr.r.ReadByte()
		if err != nil {
			return fmt.Errorf("unexpected end of input: %w", err)
		}
		if c == '\r' || c == '\n' {
			if err := lr.r.UnreadByte(); err != nil {
				return err
			}
			return lr.eatNewline()
		}
	}
}

// eatNewline consumes CRLF, or a lone CR or lone LF with a warning. The
// next byte must be CR or LF.
func (lr *LineReader) eatNewline() error {
	c, err := lr.r.ReadByte()
	if err != nil {
		return fmt.Errorf("unexpected end of input at line terminator: %w", err)
	}
	if c == '\n' {
		lr.logger.Warn("unpaired LF in input")
		return nil
	}
	if c != '\r' {
		return fmt.Errorf("line terminator expected, got byte %d", c)
	}
	c, err = lr.r.ReadByte()
	if err == io.EOF {
		lr.logger.Warn("unpaired CR in input")
		return nil
	}
	if err != nil {
		return err
	}
	if c != '\n' {
		if err := lr.r.UnreadByte(); err != nil {
			return err
		}
		lr.logger.Warn("unpaired CR in input")
	}
	return nil
}

func isAlpha(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
