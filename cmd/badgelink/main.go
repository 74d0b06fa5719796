package main

import (
	"fmt"
	"os"

	"github.com/badgeops/badgelink/internal/logging"
)

func main() {
	logging.ConfigureRuntime()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "badgelink: %v\n", err)
		os.Exit(1)
	}
}
