// Command jobctl is a terminal client for the job tracker. Reads fall back to
// the local cache when the API is unreachable; writes need connectivity.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
