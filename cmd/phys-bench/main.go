package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time via -ldflags "-X main.version=..."
var version = "dev"

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "phys-bench",
		Short: "Cross-engine robotic grasp benchmark",
		Long: `phys-bench runs the same grasp-lift-shake manipulation test against
multiple physics engines and compares how well each one holds on.
Runs produce videos and JSON verdicts; sweeps aggregate them into
reports, a dashboard and a terminal matrix.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
