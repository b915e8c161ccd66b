// Command access manages the per-user read windows of a maildrop journal:
//
//	access <journal> -d <user>...   deny: pin each user's window at the
//	                                current commit marker (fails if set)
//	access <journal> -u <user>...   update: move each window to the
//	                                current commit marker
//	access <journal> -a <user>...   allow: remove each window
//
// Usernames are applied in order; the first failure stops the run.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/infodancer/maildrop/internal/journal"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [journal file] [-a|-d|-u] username(s)...\n",
		filepath.Base(os.Args[0]))
	os.Exit(1)
}

func main() {
	args := os.Args[1:]
	if len(args) < 3 {
		usage()
	}
	path, mode, users := args[0], args[1], args[2:]

	var apply func(*os.File, string) error
	switch mode {
	case "-d":
		apply = journal.Deny
	case "-u":
		apply = journal.Update
	case "-a":
		apply = journal.Grant
	default:
		usage()
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "access: unable to open journal file %q: %v\n", path, err)
		os.Exit(1)
	}
	defer f.Close()

	for _, user := range users {
		if err := apply(f, user); err != nil {
			fmt.Fprintf(os.Stderr, "access: user %q: %v\n", user, err)
			os.Exit(1)
		}
	}
}
