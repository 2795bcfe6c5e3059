package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   appName + " <command>",
	Short: "Combine datasets from CSV files and SQLite databases",
	Long: appName + " executes pipeline documents that load datasets, match their rows\n" +
		"exactly or fuzzily, join or union them and write the result.",
}
