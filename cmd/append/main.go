// Command append extends a maildrop journal with the record stream on its
// standard input, then advances the commit marker durably:
//
//	append <journal>
//
// Concurrent appenders serialize on the journal's exclusive advisory lock.
// A crash at any point before the final marker update leaves the journal
// exactly as readers last saw it.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/infodancer/maildrop/internal/journal"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <journal file>\n", filepath.Base(os.Args[0]))
		os.Exit(1)
	}
	path := os.Args[1]

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "append: unable to open journal file %s: %v\n", path, err)
		os.Exit(1)
	}

	if _, err := journal.Append(f, os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "append: %v\n", err)
		os.Exit(1)
	}

	// Closing releases the lock; a close failure after the marker sync
	// is still a failed run.
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "append: closing journal: %v\n", err)
		os.Exit(1)
	}
}
