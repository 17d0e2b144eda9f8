// Package main provides the entry point for the hourglass CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/hourglass/cmd/hourglass/commands"
	"github.com/Sumatoshi-tech/hourglass/pkg/version"
)

func main() {
	version.Init()

	rootCmd := &cobra.Command{
		Use:   "hourglass",
		Short: "Estimate the hours contributors spent on a git repository",
		Long: `Hourglass walks a repository's history and estimates the working hours
of every contributor from the gaps between their commits.

Commands:
  hours     Estimate hours per contributor
  rules     Print identity rules in canonical order`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewHoursCommand())
	rootCmd.AddCommand(commands.NewRulesCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
