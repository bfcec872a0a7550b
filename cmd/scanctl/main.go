package main

import (
	"os"

	"github.com/mohamedkhairy/fire-scanner/cmd/scanctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
