// Command sstablectl is a small operational CLI for the SSTable storage
// layer: put, get, rm, and inspect SSTable files against a configured
// object-store backend.
package main

import (
	"fmt"
	"os"

	"github.com/brookdb/brookdb/cmd/sstablectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
