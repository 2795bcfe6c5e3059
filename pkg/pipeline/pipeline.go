// Package pipeline turns YAML pipeline documents into resolved Mashd
// programs.
//
// A document declares schemas, datasets, one combination of two datasets
// and what to do with its output:
//
//	schemas:
//	  patient:
//	    id: {type: Integer, name: patient_id}
//	    name: Text
//	datasets:
//	  a: {schema: patient, adapter: csv, source: a.csv}
//	  b: {schema: patient, adapter: sqlite, source: b.db, query: "SELECT * FROM patients"}
//	combine:
//	  left: a
//	  right: b
//	  match:
//	    - exact: [a.id, b.id]
//	    - fuzzy: [a.name, b.name]
//	      threshold: 0.2
//	  transform:
//	    id: [a.id, b.id]
//	    name: {method: toUpper, on: b.name}
//	  operation: join
//	output:
//	  file: out.csv
//	  table: true
//
// Mappings keep their document order, so schema fields, datasets and
// transform columns appear in the program in the order they were written.
package pipeline

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/diagnostics"
)

// Error is a problem with a pipeline document, located at a YAML path.
type Error struct {
	Path    string
	Message string
	Span    *ast.Span
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Span != nil {
		fmt.Fprintf(&b, "%s:%d:%d: ", e.Span.File, e.Span.StartLine, e.Span.StartCol)
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// Diagnostic converts e for display.
func (e *Error) Diagnostic() diagnostics.Diagnostic {
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	return diagnostics.MakeDiag(diagnostics.EPipeline, msg, e.Span, diagnostics.HintFor(diagnostics.EPipeline))
}

// Load reads and builds the pipeline document at path.
func Load(path string) (*ast.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline: %w", err)
	}
	return Build(data, path)
}

// Build parses a pipeline document and returns the equivalent resolved
// program. file names the document in spans; relative dataset sources and
// output paths are resolved against its directory.
func Build(data []byte, file string) (*ast.Program, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &Error{Message: err.Error(), Span: &ast.Span{File: file, StartLine: 1, StartCol: 1}}
	}
	if len(doc.Content) == 0 {
		return nil, &Error{Message: "empty document", Span: &ast.Span{File: file, StartLine: 1, StartCol: 1}}
	}
	root := doc.Content[0]

	b := newBuilder(file)
	if err := b.document(root); err != nil {
		return nil, err
	}
	return b.program(root), nil
}

// entry is one key/value pair of a mapping node.
type entry struct {
	key   *yaml.Node
	value *yaml.Node
}

// entries returns the pairs of a mapping node in document order.
func entries(n *yaml.Node) []entry {
	out := make([]entry, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, entry{key: n.Content[i], value: n.Content[i+1]})
	}
	return out
}

// lookup returns the value bound to key in a mapping node, or nil.
func lookup(n *yaml.Node, key string) *yaml.Node {
	for _, e := range entries(n) {
		if e.key.Value == key {
			return e.value
		}
	}
	return nil
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "document"
}
