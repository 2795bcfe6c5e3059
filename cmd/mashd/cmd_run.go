package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/thomasrohde/mashd/pkg/diagnostics"
	"github.com/thomasrohde/mashd/pkg/evaluator"
	"github.com/thomasrohde/mashd/pkg/export"
	"github.com/thomasrohde/mashd/pkg/runtime"
	"github.com/thomasrohde/mashd/pkg/value"
)

var (
	flagJSON  bool
	flagTrace string
)

var runCmd = &cobra.Command{
	Use:   "run <pipeline.yaml>",
	Short: "Execute a pipeline document and print its result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0])
	},
}

func init() {
	runCmd.Flags().BoolVar(&flagJSON, "json", false, "print the result as JSON regardless of output.format")
	runCmd.Flags().StringVar(&flagTrace, "trace", "", "write trace events as NDJSON to this file")
}

// countingWriter records whether the program rendered anything itself.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}

func runPipeline(ctx context.Context, stdout, stderr io.Writer, file string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := &countingWriter{w: stdout}
	opts := []runtime.Option{
		runtime.WithConfig(cfg),
		runtime.WithLogger(newLogger(stderr, cfg)),
		runtime.WithOutput(out),
	}

	if flagTrace != "" {
		f, err := os.Create(flagTrace)
		if err != nil {
			return err
		}
		defer f.Close()
		enc := json.NewEncoder(f)
		opts = append(opts, runtime.WithTrace(func(e evaluator.TraceEvent) {
			_ = enc.Encode(e)
		}))
	}

	res, err := runtime.New(opts...).RunPipeline(ctx, file)
	if err != nil {
		d := runtime.Diagnose(err)
		fmt.Fprintln(stderr, diagnostics.FormatDiagnostic(d, flagPretty))
		return exitCode(exitCodeForDiag(d.Code))
	}

	format := cfg.Output.Format
	if flagJSON {
		format = "json"
	}
	return writeResult(stdout, res.Value, format, out.n > 0)
}

// writeResult prints the program's final value. In table format a
// dataset the program already rendered is not repeated.
func writeResult(w io.Writer, v value.Value, format string, rendered bool) error {
	if format == "json" {
		return export.WriteJSON(w, v)
	}
	if rendered {
		return nil
	}
	if ds, ok := v.(*value.Dataset); ok {
		return export.WriteTable(w, ds)
	}
	_, err := fmt.Fprintln(w, value.ToJSONString(v))
	return err
}
