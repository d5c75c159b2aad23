package main

import (
	"os"

	"github.com/solatis/cohortkeeper/cmd/cohortkeeper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
