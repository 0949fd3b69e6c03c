// Package main provides the CLI for the LeapCRM entity list client.
package main

import (
	"os"

	"github.com/leapstack-labs/leapcrm/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
