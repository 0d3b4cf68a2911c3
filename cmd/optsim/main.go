package main

import (
	"os"

	"github.com/raviyer/optsim/cmd/optsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
