package pop3

import (
	"testing"
)

func TestCanonicalUsername(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "lowercase", raw: "alice", want: "alice"},
		{name: "uppercase folds", raw: "Alice", want: "alice"},
		{name: "all caps", raw: "ALICE", want: "alice"},
		{name: "digits after first", raw: "bob2", want: "bob2"},
		{name: "dot underscore dash", raw: "a.b_c-d", want: "a.b_c-d"},
		{name: "mixed case with digits", raw: "Carol99", want: "carol99"},
		{name: "empty", raw: "", wantErr: true},
		{name: "leading digit", raw: "1abc", wantErr: true},
		{name: "leading dot", raw: ".abc", wantErr: true},
		{name: "embedded space", raw: "a b", wantErr: true},
		{name: "at sign", raw: "a@b", wantErr: true},
		{name: "non-ascii", raw: "älice", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalUsername(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CanonicalUsername(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("CanonicalUsername(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseIndex(t *testing.T) {
	tests := []struct {
		name   string
		arg    string
		want   uint64
		wantOK bool
	}{
		{name: "plain", arg: "3", want: 3, wantOK: true},
		{name: "leading space", arg: " 3", want: 3, wantOK: true},
		{name: "leading plus", arg: " +3", want: 3, wantOK: true},
		{name: "zero parses", arg: "0", want: 0, wantOK: true},
		{name: "empty", arg: "", wantOK: false},
		{name: "spaces only", arg: "   ", wantOK: false},
		{name: "trailing junk", arg: "3x", wantOK: false},
		{name: "two numbers", arg: "3 4", wantOK: false},
		{name: "not a number", arg: "abc", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseIndex(tt.arg)
			if ok != tt.wantOK {
				t.Fatalf("parseIndex(%q) ok = %v, want %v", tt.arg, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("parseIndex(%q) = %d, want %d", tt.arg, got, tt.want)
			}
		})
	}
}

func TestParseTopArgs(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		wantIdx uint64
		wantErr topArgError
	}{
		{name: "index and zero", arg: " 2 0", wantIdx: 2, wantErr: topArgOK},
		{name: "no leading space", arg: "2 0", wantIdx: 2, wantErr: topArgOK},
		{name: "nonzero second arg", arg: " 2 5", wantErr: topArgNonzero},
		{name: "second arg with suffix", arg: " 2 00", wantErr: topArgNonzero},
		{name: "only index", arg: " 2", wantErr: topArgMissing},
		{name: "empty", arg: "", wantErr: topArgMissing},
		{name: "spaces only", arg: "   ", wantErr: topArgMissing},
		{name: "no digits", arg: " x 0", wantErr: topArgMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, argErr := parseTopArgs(tt.arg)
			if argErr != tt.wantErr {
				t.Fatalf("parseTopArgs(%q) err = %v, want %v", tt.arg, argErr, tt.wantErr)
			}
			if argErr == topArgOK && idx != tt.wantIdx {
				t.Errorf("parseTopArgs(%q) idx = %d, want %d", tt.arg, idx, tt.wantIdx)
			}
		})
	}
}
