package main

import (
	"os"

	"go-disaster-id-scan/cmd/idscan/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
