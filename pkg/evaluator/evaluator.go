// Package evaluator executes resolved Mashd programs.
package evaluator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/thomasrohde/mashd/pkg/adapter"
	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/diagnostics"
	"github.com/thomasrohde/mashd/pkg/engine"
	"github.com/thomasrohde/mashd/pkg/stdlib"
	"github.com/thomasrohde/mashd/pkg/value"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart         TraceEventType = "run_start"
	TraceRunEnd           TraceEventType = "run_end"
	TraceStmtStart        TraceEventType = "stmt_start"
	TraceStmtEnd          TraceEventType = "stmt_end"
	TraceFnCallStart      TraceEventType = "fn_call_start"
	TraceFnCallEnd        TraceEventType = "fn_call_end"
	TraceDatasetLoadStart TraceEventType = "dataset_load_start"
	TraceDatasetLoadEnd   TraceEventType = "dataset_load_end"
	TraceJoinStart        TraceEventType = "join_start"
	TraceJoinEnd          TraceEventType = "join_end"
	TraceUnionStart       TraceEventType = "union_start"
	TraceUnionEnd         TraceEventType = "union_end"
	TraceWarning          TraceEventType = "warning"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string         `json:"ts"`
	RunID     string         `json:"runId"`
	Event     TraceEventType `json:"event"`
	Span      *ast.Span      `json:"span,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// ExecOptions configures program execution.
type ExecOptions struct {
	// Adapters resolves dataset adapter names. Nil means adapter.Defaults().
	Adapters *adapter.Registry
	// Methods holds scalar methods. Nil means stdlib.Defaults().
	Methods *stdlib.Registry
	// Output receives toTable() renderings. Nil discards them.
	Output io.Writer
	// Logger for structured logging. Nil means slog.Default().
	Logger *slog.Logger
	Trace  func(event TraceEvent)
	RunID  string
	// CartesianWarningRows overrides engine.DefaultCartesianWarningRows.
	CartesianWarningRows int
	// DefaultDelimiter is used by datasets that do not set one.
	DefaultDelimiter string
}

// ExecResult holds the result of a program execution.
type ExecResult struct {
	// Value is the value of the last top-level statement.
	Value value.Value
	// Globals is global storage indexed by declaration slot.
	Globals  []value.Value
	Warnings []engine.Warning
}

// Global returns the value stored for a global declaration, or nil.
func (r *ExecResult) Global(d *ast.VarDecl) value.Value {
	if d == nil || d.Local || d.Slot >= len(r.Globals) {
		return nil
	}
	return r.Globals[d.Slot]
}

// outcome tells how a statement list finished.
type outcome int

const (
	completed outcome = iota
	returned
)

// completion is the tagged result of executing statements: the value of
// the last statement when completed, the returned value when returned.
type completion struct {
	outcome outcome
	value   value.Value
}

type evaluator struct {
	ctx      context.Context
	opts     ExecOptions
	logger   *slog.Logger
	globals  []value.Value
	frames   [][]value.Value
	rows     []*value.RowContext
	engine   *engine.Engine
	warnings []engine.Warning
}

func (ev *evaluator) emit(event TraceEventType, span *ast.Span) {
	ev.emitWithData(event, span, nil)
}

func (ev *evaluator) emitWithData(event TraceEventType, span *ast.Span, data map[string]any) {
	if ev.opts.Trace != nil {
		ev.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     ev.opts.RunID,
			Event:     event,
			Span:      span,
			Data:      data,
		})
	}
}

// Execute runs a resolved program. The returned result is never nil: on
// failure it still carries the global storage as it was when the failing
// statement aborted the run.
func Execute(ctx context.Context, program *ast.Program, opts ExecOptions) (*ExecResult, error) {
	if opts.Adapters == nil {
		opts.Adapters = adapter.Defaults()
	}
	if opts.Methods == nil {
		opts.Methods = stdlib.Defaults()
	}
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if opts.DefaultDelimiter == "" {
		opts.DefaultDelimiter = adapter.DefaultDelimiter
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ev := &evaluator{
		ctx:     ctx,
		opts:    opts,
		logger:  logger,
		globals: make([]value.Value, program.GlobalCount),
	}
	ev.engine = engine.New(ev,
		engine.WithLogger(logger),
		engine.WithCartesianWarningRows(opts.CartesianWarningRows),
		engine.WithWarningHandler(ev.onWarning),
	)

	span := program.Span
	ev.emit(TraceRunStart, &span)

	c, err := ev.execBlock(program.Statements)

	ev.emit(TraceRunEnd, &span)

	res := &ExecResult{Globals: ev.globals, Warnings: ev.warnings}
	if err != nil {
		return res, err
	}
	res.Value = c.value
	if res.Value == nil {
		res.Value = value.Null{}
	}
	return res, nil
}

func (ev *evaluator) onWarning(w engine.Warning) {
	ev.warnings = append(ev.warnings, w)
	ev.emitWithData(TraceWarning, nil, map[string]any{
		"message":    w.Message,
		"leftRows":   w.LeftRows,
		"rightRows":  w.RightRows,
		"resultRows": w.ResultRows,
	})
}

func (ev *evaluator) execBlock(stmts []ast.Stmt) (completion, error) {
	var last value.Value = value.Null{}

	for _, stmt := range stmts {
		span := stmt.NodeSpan()
		ev.emit(TraceStmtStart, &span)

		c, err := ev.execStmt(stmt)
		if err != nil {
			return completion{}, err
		}

		ev.emit(TraceStmtEnd, &span)

		if c.outcome == returned {
			return c, nil
		}
		last = c.value
	}

	return completion{outcome: completed, value: last}, nil
}

func (ev *evaluator) execStmt(stmt ast.Stmt) (completion, error) {
	switch s := stmt.(type) {
	case *ast.VarDeclStmt:
		val, err := ev.evalInit(s.Value, s.Decl.Type)
		if err != nil {
			return completion{}, err
		}
		ev.store(s.Decl, val)
		return completion{value: val}, nil

	case *ast.AssignStmt:
		if s.Target == nil || s.Target.Decl == nil {
			span := s.Span
			return completion{}, &RuntimeError{
				Code:    diagnostics.EUndefined,
				Message: "assignment to an undeclared variable",
				Span:    &span,
			}
		}
		val, err := ev.evalInit(s.Value, s.Target.Decl.Type)
		if err != nil {
			return completion{}, err
		}
		ev.store(s.Target.Decl, val)
		return completion{value: val}, nil

	case *ast.ExprStmt:
		val, err := ev.evalExpr(s.Expr)
		if err != nil {
			return completion{}, err
		}
		return completion{value: val}, nil

	case *ast.ReturnStmt:
		var val value.Value = value.Null{}
		if s.Value != nil {
			v, err := ev.evalExpr(s.Value)
			if err != nil {
				return completion{}, err
			}
			val = v
		}
		return completion{outcome: returned, value: val}, nil

	case *ast.IfStmt:
		cond, err := ev.evalCondition(s.Cond, "if")
		if err != nil {
			return completion{}, err
		}
		if cond {
			return ev.execBlock(s.Then)
		}
		return ev.execBlock(s.Else)

	case *ast.BlockStmt:
		return ev.execBlock(s.Body)

	case *ast.FunctionDecl:
		// Functions are bound at resolution time.
		return completion{value: value.Null{}}, nil
	}

	span := stmt.NodeSpan()
	return completion{}, &RuntimeError{
		Code:    diagnostics.EUnsupported,
		Message: fmt.Sprintf("unsupported statement type: %T", stmt),
		Span:    &span,
	}
}

// evalInit evaluates the value bound to a declaration of type t. Object
// literals declared as Dataset or Schema are materialized.
func (ev *evaluator) evalInit(expr ast.Expr, t ast.Type) (value.Value, error) {
	if obj, ok := expr.(*ast.ObjectExpr); ok {
		switch t {
		case ast.TypeDataset:
			return ev.materializeDataset(obj)
		case ast.TypeSchema:
			return ev.materializeSchema(obj)
		}
	}
	return ev.evalExpr(expr)
}

func (ev *evaluator) store(d *ast.VarDecl, v value.Value) {
	if d.Local {
		frame := ev.frames[len(ev.frames)-1]
		if d.Slot >= len(frame) {
			grown := make([]value.Value, d.Slot+1)
			copy(grown, frame)
			frame = grown
			ev.frames[len(ev.frames)-1] = frame
		}
		frame[d.Slot] = v
		return
	}
	if d.Slot >= len(ev.globals) {
		grown := make([]value.Value, d.Slot+1)
		copy(grown, ev.globals)
		ev.globals = grown
	}
	ev.globals[d.Slot] = v
}

// load returns the stored value of d, or nil when d has no binding in
// the active storage.
func (ev *evaluator) load(d *ast.VarDecl) value.Value {
	if d.Local {
		if len(ev.frames) == 0 {
			return nil
		}
		frame := ev.frames[len(ev.frames)-1]
		if d.Slot < len(frame) {
			return frame[d.Slot]
		}
		return nil
	}
	if d.Slot < len(ev.globals) {
		return ev.globals[d.Slot]
	}
	return nil
}

func (ev *evaluator) pushRowContext(rc *value.RowContext) func() {
	ev.rows = append(ev.rows, rc)
	return func() { ev.rows = ev.rows[:len(ev.rows)-1] }
}

func (ev *evaluator) rowContext() *value.RowContext {
	if len(ev.rows) == 0 {
		return nil
	}
	return ev.rows[len(ev.rows)-1]
}
