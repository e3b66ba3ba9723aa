package main

import (
	"os"

	"github.com/plexsweep/plexsweep/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
