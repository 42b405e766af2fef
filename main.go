package main

import (
	"os"

	"github.com/capsule-dev/capsule/cmd"
	"github.com/capsule-dev/capsule/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
