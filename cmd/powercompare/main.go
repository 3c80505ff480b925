package main

import (
	"os"

	"github.com/jgoulah/powercompare/internal/logging"
)

func main() {
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
