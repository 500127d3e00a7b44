package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	exitCode := 0
	root := buildRoot(&exitCode)
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}
