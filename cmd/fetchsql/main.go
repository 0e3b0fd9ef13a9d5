// Package main provides the fetchsql command-line tool.
package main

import (
	"os"

	"github.com/leapstack-labs/fetchsql/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
