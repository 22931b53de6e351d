// Package main is the entry point for the data-watchdog daemon and CLI.
package main

import (
	"os"

	"github.com/j-veylop/data-watchdog/cmd/dwd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
