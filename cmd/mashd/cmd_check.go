package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thomasrohde/mashd/pkg/diagnostics"
	"github.com/thomasrohde/mashd/pkg/runtime"
)

var checkCmd = &cobra.Command{
	Use:   "check <pipeline.yaml>",
	Short: "Validate a pipeline document without loading any data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkPipeline(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0])
	},
}

func checkPipeline(stdout, stderr io.Writer, file string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	diags := runtime.New(runtime.WithConfig(cfg)).Check(file)
	if len(diags) > 0 {
		fmt.Fprintln(stderr, diagnostics.FormatDiagnostics(diags, flagPretty))
		return exitCode(exitCodeForDiag(diags[0].Code))
	}

	if flagPretty {
		fmt.Fprintln(stdout, "No errors found.")
	} else {
		fmt.Fprintln(stdout, "[]")
	}
	return nil
}
