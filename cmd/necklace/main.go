// Package main is the entry point for the necklace assistant daemon.
//
// Usage:
//
//	necklace [flags] <command>
//
// Commands:
//
//	run        - Run the assistant daemon
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/necklaceai/necklace/go/cmd/necklace/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
