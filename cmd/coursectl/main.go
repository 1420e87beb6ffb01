package main

import (
	"os"
)

var version = "0.1.0-dev"

func main() {
	if err := NewRootCommand(version).Execute(); err != nil {
		os.Exit(1)
	}
}
