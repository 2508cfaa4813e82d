package main

import (
	"os"

	"github.com/dmckenna-gumgum/component-builder/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
