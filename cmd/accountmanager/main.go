package main

import (
	"os"

	"github.com/rustyeddy/accountmanager/cmd/accountmanager/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
