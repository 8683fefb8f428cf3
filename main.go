package main

import (
	"os"

	"github.com/sidharthv96/caprover/cmd"
)

var (
	version string
	commit  string
)

func main() {
	cmd.SetVersion(version, commit)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
