// Package diagnostics defines Mashd diagnostic codes and formatting for
// pipeline, validation, and runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thomasrohde/mashd/pkg/ast"
)

// Diagnostic code constants.
const (
	EDivZero     = "E_DIV_ZERO"
	EUndefined   = "E_UNDEFINED"
	EType        = "E_TYPE"
	EMethod      = "E_METHOD"
	EFilePath    = "E_FILE_PATH"
	EDateFormat  = "E_DATE_FORMAT"
	EUnsupported = "E_UNSUPPORTED"
	EValidation  = "E_VALIDATION"
	EDatasetLoad = "E_DATASET_LOAD"
	EPipeline    = "E_PIPELINE"
	EIO          = "E_IO"
)

// Diagnostic represents a pipeline, validation, or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
	if d.Span != nil && d.Span.Text != "" {
		out += fmt.Sprintf("\n   | %s", d.Span.Text)
	}
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}

// HintFor returns a short remedy for a code, or "".
func HintFor(code string) string {
	switch code {
	case EDivZero:
		return "guard the divisor with a ternary or if statement"
	case EFilePath:
		return "check that the path is non-empty and its directory exists"
	case EDateFormat:
		return "dates are written as yyyy-MM-dd"
	case EDatasetLoad:
		return "check the dataset source, adapter and query"
	case EPipeline:
		return "run 'mashd check' to validate the document"
	}
	return ""
}
