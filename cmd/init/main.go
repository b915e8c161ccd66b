// Command init creates or rebuilds a maildrop journal.
//
// With one argument it creates a fresh, empty journal. With three it builds
// a replacement journal from a mail directory and atomically swaps it in
// for the live one:
//
//	init <new-file>
//	init <existing-journal> <temp-name> <mail-dir>
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/infodancer/maildrop/internal/journal"
)

func main() {
	args := os.Args[1:]

	var err error
	switch len(args) {
	case 1:
		err = journal.Create(args[0])
	case 3:
		err = journal.Rebuild(args[0], args[1], args[2])
	default:
		fmt.Fprintf(os.Stderr, "Usage: %s <journal file> ([temp file name] [folder with emails])\n",
			filepath.Base(os.Args[0]))
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
}
