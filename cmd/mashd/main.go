// Command mashd runs Mashd pipeline documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/thomasrohde/mashd/pkg/config"
	"github.com/thomasrohde/mashd/pkg/diagnostics"
)

const appName = "mashd"

var (
	flagConfig  string
	flagPretty  bool
	flagVerbose bool
)

// exitCode ends the process with the given status once its diagnostics
// have been printed.
type exitCode int

func (c exitCode) Error() string {
	return fmt.Sprintf("exit status %d", int(c))
}

func main() {
	rootCmd.AddCommand(runCmd, checkCmd, configCmd, traceCmd, docsCmd)

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "",
		"configuration file (default: $"+config.EnvVar+", ./"+config.ProjectFile+" or ~/.config/"+appName+"/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagPretty, "pretty", false,
		"print diagnostics for humans instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"log at debug level")

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var code exitCode
		if errors.As(err, &code) {
			os.Exit(int(code))
		}
		fmt.Fprintln(os.Stderr, "Error:", err.Error())
		os.Exit(1)
	}
}

// loadConfig reads --config when given, otherwise the layered lookup
// rooted at the working directory.
func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.LoadFile(flagConfig)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.Load(cwd)
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := cfg.SlogLevel()
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func exitCodeForDiag(code string) int {
	switch code {
	case diagnostics.EPipeline, diagnostics.EValidation:
		return 2
	case diagnostics.EDatasetLoad:
		return 3
	case diagnostics.EIO:
		return 1
	default:
		return 4
	}
}
