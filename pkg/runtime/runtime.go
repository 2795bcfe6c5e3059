// Package runtime provides the top-level Mashd runtime orchestrator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/thomasrohde/mashd/pkg/adapter"
	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/config"
	"github.com/thomasrohde/mashd/pkg/diagnostics"
	"github.com/thomasrohde/mashd/pkg/engine"
	"github.com/thomasrohde/mashd/pkg/evaluator"
	"github.com/thomasrohde/mashd/pkg/pipeline"
	"github.com/thomasrohde/mashd/pkg/stdlib"
	"github.com/thomasrohde/mashd/pkg/value"
)

// Result holds the outcome of a program execution.
type Result struct {
	RunID    string
	Value    value.Value
	Globals  []value.Value
	Warnings []engine.Warning
}

// Runtime wires together all Mashd components for program execution.
type Runtime struct {
	adapters *adapter.Registry
	methods  *stdlib.Registry
	config   *config.Config
	logger   *slog.Logger
	output   io.Writer
	runID    string
	trace    func(event evaluator.TraceEvent)
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithAdapters sets the adapter registry.
func WithAdapters(r *adapter.Registry) Option {
	return func(rt *Runtime) {
		rt.adapters = r
	}
}

// WithMethods sets the scalar method registry.
func WithMethods(r *stdlib.Registry) Option {
	return func(rt *Runtime) {
		rt.methods = r
	}
}

// WithConfig sets the configuration.
func WithConfig(c *config.Config) Option {
	return func(rt *Runtime) {
		rt.config = c
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// WithOutput sets where toTable() renders.
func WithOutput(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.output = w
	}
}

// WithRunID sets the run ID for trace events. Without it every run gets
// a fresh random ID.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// New creates a new Runtime with the given options.
// By default the built-in adapters and methods are registered and the
// built-in configuration applies.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		adapters: adapter.Defaults(),
		methods:  stdlib.Defaults(),
		config:   config.Defaults(),
		logger:   slog.Default(),
		output:   io.Discard,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Adapters returns the adapters datasets may use under the configuration.
func (rt *Runtime) Adapters() *adapter.Registry {
	return rt.adapters.Restrict(rt.config.Adapters.Allow)
}

// Run executes a resolved program. On failure the result still carries
// the global storage as the failing statement left it.
func (rt *Runtime) Run(ctx context.Context, program *ast.Program) (*Result, error) {
	runID := rt.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := rt.logger.With(slog.String("run_id", runID))

	res, err := evaluator.Execute(ctx, program, rt.buildExecOptions(runID, logger))
	out := &Result{RunID: runID}
	if res != nil {
		out.Value = res.Value
		out.Globals = res.Globals
		out.Warnings = res.Warnings
	}
	if err != nil {
		logger.Debug("run failed", slog.String("error", err.Error()))
		return out, err
	}
	logger.Debug("run complete", slog.Int("warnings", len(out.Warnings)))
	return out, nil
}

// RunPipeline builds the pipeline document at path and executes it.
func (rt *Runtime) RunPipeline(ctx context.Context, path string) (*Result, error) {
	program, err := pipeline.Load(path)
	if err != nil {
		return nil, err
	}
	return rt.Run(ctx, program)
}

// Check builds the pipeline document at path without executing it and
// reports document errors and datasets using adapters that are not
// available.
func (rt *Runtime) Check(path string) []diagnostics.Diagnostic {
	program, err := pipeline.Load(path)
	if err != nil {
		return []diagnostics.Diagnostic{Diagnose(err)}
	}

	adapters := rt.Adapters()
	var diags []diagnostics.Diagnostic
	for _, stmt := range program.Statements {
		decl, ok := stmt.(*ast.VarDeclStmt)
		if !ok || decl.Decl.Type != ast.TypeDataset {
			continue
		}
		obj, ok := decl.Value.(*ast.ObjectExpr)
		if !ok {
			continue
		}
		name, ok := obj.Get("adapter").(*ast.TextLiteral)
		if !ok {
			continue
		}
		if _, found := adapters.Get(name.Value); !found {
			span := name.Span
			diags = append(diags, diagnostics.MakeDiag(diagnostics.EValidation,
				fmt.Sprintf("dataset '%s' uses unsupported adapter '%s' (available: %s)",
					decl.Decl.Name, name.Value, strings.Join(adapters.Names(), ", ")),
				&span, ""))
		}
	}
	return diags
}

func (rt *Runtime) buildExecOptions(runID string, logger *slog.Logger) evaluator.ExecOptions {
	return evaluator.ExecOptions{
		Adapters:             rt.Adapters(),
		Methods:              rt.methods,
		Output:               rt.output,
		Logger:               logger,
		Trace:                rt.trace,
		RunID:                runID,
		CartesianWarningRows: rt.config.Join.CartesianWarningRows,
		DefaultDelimiter:     rt.config.CSV.Delimiter,
	}
}

// Diagnose converts an error returned by Run, RunPipeline or pipeline
// loading into a diagnostic.
func Diagnose(err error) diagnostics.Diagnostic {
	var rtErr *evaluator.RuntimeError
	if errors.As(err, &rtErr) {
		return rtErr.Diagnostic()
	}
	var pErr *pipeline.Error
	if errors.As(err, &pErr) {
		return pErr.Diagnostic()
	}
	return diagnostics.MakeDiag(diagnostics.EIO, err.Error(), nil, "")
}
