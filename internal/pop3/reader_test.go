package pop3

import (
	"io"
	"log/slog"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReadCommand(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain command", input: "QUIT\r\n", want: tokenQuit},
		{name: "lowercase command", input: "quit\r\n", want: tokenQuit},
		{name: "mixed case", input: "QuIt\r\n", want: tokenQuit},
		{name: "command with argument", input: "USER alice\r\n", want: tokenUser},
		{name: "top keeps its space", input: "TOP 1 0\r\n", want: tokenTop},
		{name: "short command pads", input: "AB\r\n", want: "ab  "},
		{name: "five command letters", input: "QUITX\r\n", want: tokenUnknown},
		{name: "garbage byte in token", input: "QU!T\r\n", want: tokenUnknown},
		{name: "lf terminated", input: "QUIT\n", want: tokenQuit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLineReader(strings.NewReader(tt.input), testLogger())
			got, err := lr.ReadCommand()
			if err != nil {
				t.Fatalf("ReadCommand() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadCommandEOF(t *testing.T) {
	lr := NewLineReader(strings.NewReader(""), testLogger())
	if _, err := lr.ReadCommand(); err != io.EOF {
		t.Errorf("ReadCommand() on empty stream error = %v, want io.EOF", err)
	}

	// EOF mid-token is still the client hanging up.
	lr = NewLineReader(strings.NewReader("QU"), testLogger())
	if _, err := lr.ReadCommand(); err != io.EOF {
		t.Errorf("ReadCommand() on truncated token error = %v, want io.EOF", err)
	}
}

func TestReadArg(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantArg string
		wantOK  bool
	}{
		{name: "crlf", input: " alice\r\n", wantArg: " alice", wantOK: true},
		{name: "empty line", input: "\r\n", wantArg: "", wantOK: true},
		{name: "lone lf", input: " alice\n", wantArg: " alice", wantOK: true},
		{name: "lone cr", input: " alice\rQUIT\r\n", wantArg: " alice", wantOK: true},
		{name: "at limit", input: strings.Repeat("a", LineLimit) + "\r\n", wantArg: strings.Repeat("a", LineLimit), wantOK: true},
		{name: "one over limit", input: strings.Repeat("a", LineLimit+1) + "\r\n", wantArg: "", wantOK: false},
		{name: "over limit", input: strings.Repeat("a", LineLimit+100) + "\r\n", wantArg: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLineReader(strings.NewReader(tt.input), testLogger())
			arg, ok, err := lr.ReadArg()
			if err != nil {
				t.Fatalf("ReadArg() error = %v", err)
			}
			if ok != tt.wantOK {
				t.Errorf("ReadArg() ok = %v, want %v", ok, tt.wantOK)
			}
			if arg != tt.wantArg {
				t.Errorf("ReadArg() arg = %q, want %q", arg, tt.wantArg)
			}
		})
	}
}

func TestReadArgConsumesWholeLongLine(t *testing.T) {
	input := strings.Repeat("a", LineLimit+500) + "\r\nQUIT\r\n"
	lr := NewLineReader(strings.NewReader(input), testLogger())

	if _, ok, err := lr.ReadArg(); err != nil || ok {
		t.Fatalf("ReadArg() = ok %v, err %v; want oversized", ok, err)
	}

	// The next command must start cleanly after the discarded remainder.
	cmd, err := lr.ReadCommand()
	if err != nil {
		t.Fatalf("ReadCommand() error = %v", err)
	}
	if cmd != tokenQuit {
		t.Errorf("ReadCommand() after long line = %q, want %q", cmd, tokenQuit)
	}
}

func TestReadArgEOF(t *testing.T) {
	lr := NewLineReader(strings.NewReader(" alice"), testLogger())
	if _, _, err := lr.ReadArg(); err == nil {
		t.Error("ReadArg() with EOF before terminator succeeded, want error")
	}
}

func TestDiscardLine(t *testing.T) {
	lr := NewLineReader(strings.NewReader("junk to ignore\r\nNOOP\r\n"), testLogger())
	if err := lr.DiscardLine(); err != nil {
		t.Fatalf("DiscardLine() error = %v", err)
	}
	cmd, err := lr.ReadCommand()
	if err != nil {
		t.Fatalf("ReadCommand() error = %v", err)
	}
	if cmd != tokenNoop {
		t.Errorf("ReadCommand() after discard = %q, want %q", cmd, tokenNoop)
	}
}
