package pop3

import "errors"

// Session-fatal errors. Per-command protocol errors are reported to the
// client as -ERR responses and never surface here.
var (
	// ErrWriteFailed means the client output stream is gone. There is no
	// way to deliver even a final error response, so the session must
	// terminate immediately; the CLI maps this to exit code 2.
	ErrWriteFailed = errors.New("write to client failed")
)
