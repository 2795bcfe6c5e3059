package evaluator

import (
	"errors"
	"fmt"

	"github.com/thomasrohde/mashd/pkg/adapter"
	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/diagnostics"
	"github.com/thomasrohde/mashd/pkg/engine"
	"github.com/thomasrohde/mashd/pkg/export"
	"github.com/thomasrohde/mashd/pkg/stdlib"
	"github.com/thomasrohde/mashd/pkg/value"
)

// RuntimeError represents a failure during Mashd execution, attributed to
// the AST node that raised it.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
	Err     error
}

func (e *RuntimeError) Error() string {
	return e.Message
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Diagnostic converts e for display.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, diagnostics.HintFor(e.Code))
}

func newError(code string, node ast.Node, format string, args ...any) *RuntimeError {
	span := node.NodeSpan()
	return &RuntimeError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Span:    &span,
	}
}

// wrapError attributes err to node. Runtime errors raised deeper, e.g.
// inside a predicate function, keep their own code and span.
func wrapError(err error, node ast.Node, what string) error {
	var rt *RuntimeError
	if errors.As(err, &rt) {
		return err
	}
	span := node.NodeSpan()
	return &RuntimeError{
		Code:    codeFor(err),
		Message: fmt.Sprintf("%s: %v", what, err),
		Span:    &span,
		Err:     err,
	}
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, value.ErrDateFormat):
		return diagnostics.EDateFormat
	case errors.Is(err, value.ErrCoerce), errors.Is(err, stdlib.ErrArgs):
		return diagnostics.EType
	case errors.Is(err, engine.ErrIncompatibleSchemas),
		errors.Is(err, value.ErrSchemaMismatch),
		errors.Is(err, value.ErrTransformAlreadySet),
		errors.Is(err, adapter.ErrUnknownAdapter),
		errors.Is(err, adapter.ErrMissingQuery):
		return diagnostics.EValidation
	case errors.Is(err, adapter.ErrInvalidFilePath), errors.Is(err, export.ErrInvalidFilePath):
		return diagnostics.EFilePath
	}
	return diagnostics.EUnsupported
}
