// Package engine implements the dataset combination algorithms: condition
// matching, join, union, and output schema inference.
//
// The engine never evaluates Mashd expressions itself. Transforms and
// predicate functions are handed back to the evaluator through Host.
package engine

import (
	"errors"
	"log/slog"

	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/value"
)

// DefaultCartesianWarningRows is the row count both inputs of an
// unconditioned join must exceed before a warning is raised.
const DefaultCartesianWarningRows = 20

var ErrIncompatibleSchemas = errors.New("schemas are not compatible")

// Host evaluates expressions on behalf of the engine.
type Host interface {
	// Transform evaluates obj with rc pushed as the active row context and
	// returns one output row, keyed by property name.
	Transform(rc *value.RowContext, obj *ast.ObjectExpr) (*value.Row, error)
	// Call invokes fn with args, which follow any arguments fn has bound.
	Call(fn *value.FunctionDefinition, args []value.Value) (value.Value, error)
}

// Warning is a non-fatal condition found while combining datasets.
type Warning struct {
	Message    string
	LeftRows   int
	RightRows  int
	ResultRows int
}

// Options configures an Engine.
type Options struct {
	// CartesianWarningRows overrides DefaultCartesianWarningRows when > 0.
	CartesianWarningRows int
	// OnWarning receives every warning in addition to the log.
	OnWarning func(Warning)
	// Logger for structured logging.
	Logger *slog.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithCartesianWarningRows sets the cartesian product warning threshold.
func WithCartesianWarningRows(n int) Option {
	return func(o *Options) {
		o.CartesianWarningRows = n
	}
}

// WithWarningHandler registers fn to receive warnings.
func WithWarningHandler(fn func(Warning)) Option {
	return func(o *Options) {
		o.OnWarning = fn
	}
}

// Engine combines datasets. It is not safe for concurrent use when its
// Host is not.
type Engine struct {
	host Host
	opts Options
}

// New creates an Engine that evaluates through host.
func New(host Host, opts ...Option) *Engine {
	options := Options{CartesianWarningRows: DefaultCartesianWarningRows}
	for _, opt := range opts {
		opt(&options)
	}
	if options.CartesianWarningRows <= 0 {
		options.CartesianWarningRows = DefaultCartesianWarningRows
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Engine{host: host, opts: options}
}

func (e *Engine) warn(w Warning) {
	e.opts.Logger.Warn(w.Message,
		slog.Int("left_rows", w.LeftRows),
		slog.Int("right_rows", w.RightRows),
		slog.Int("result_rows", w.ResultRows),
	)
	if e.opts.OnWarning != nil {
		e.opts.OnWarning(w)
	}
}

func rowContext(c *value.Combination, left, right *value.Row) *value.RowContext {
	return &value.RowContext{LeftID: c.LeftID, Left: left, RightID: c.RightID, Right: right}
}
