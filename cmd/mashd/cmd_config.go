package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := cfg.YAML()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if cfg.Source != "" {
			fmt.Fprintf(w, "# loaded from %s\n", cfg.Source)
		} else {
			fmt.Fprintln(w, "# built-in defaults")
		}
		_, err = w.Write(data)
		return err
	},
}
