// Package main provides the rvpipe command, a cycle-accurate 5-stage RV32I
// pipeline simulator.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
