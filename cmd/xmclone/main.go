// Package main is the entry point for the xmclone CLI.
package main

import (
	"fmt"
	"os"

	"github.com/homemade/xmclone/cmd/xmclone/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
