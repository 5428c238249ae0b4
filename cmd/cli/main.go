// Package main is the entry point for the kbhub CLI binary.
package main

import (
	"os"

	cli "kbhub/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
