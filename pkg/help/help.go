// Package help holds the reference text printed by 'mashd docs'.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/stdlib"
)

// QUICKREF is the overview shown without a topic.
const QUICKREF = `mashd v0.3 - combine datasets from CSV files and SQLite databases

Commands:
  mashd run <pipeline.yaml> [--json] [--trace file]   execute a pipeline
  mashd check <pipeline.yaml>                         validate without loading data
  mashd trace <trace.ndjson> [--text]                 summarize a trace file
  mashd config                                        print the effective configuration
  mashd docs [topic] [--index]                        this reference

Topics:
  pipeline      document layout and sections
  schemas       field types and source columns
  matching      exact and fuzzy match conditions
  transform     shaping output rows
  adapters      csv and sqlite sources
  config        configuration files and keys
  diagnostics   error codes and exit statuses

Run 'mashd docs methods --index' for the list of scalar methods.
`

// TopicList is the topics in display order.
var TopicList = []string{"pipeline", "schemas", "matching", "transform", "adapters", "config", "diagnostics"}

// Topics maps topic names to their text.
var Topics = map[string]string{
	"pipeline": `PIPELINE DOCUMENTS

A pipeline is a YAML document with four sections, in this order:

  schemas:    named schemas, reusable by datasets (optional)
  datasets:   the sources to load, keyed by identifier (required)
  combine:    how two datasets are combined (required)
  output:     where the result goes (optional)

Example:

  schemas:
    patient: {id: Integer, name: Text}
  datasets:
    a: {schema: patient, adapter: csv, source: clinic_a.csv}
    b: {schema: patient, adapter: csv, source: clinic_b.csv}
  combine:
    left: a
    right: b
    match:
      - exact: [a.id, b.id]
    transform:
      id: a.id
      name: [a.name, b.name]
    operation: join
  output:
    file: merged.csv
    table: true

Relative sources and output files resolve against the document's directory.
`,

	"schemas": `SCHEMAS

A schema maps field keys to a type and the source column they read:

  patient:
    id: {type: Integer, name: patient_id}
    name: Text                  # shorthand: column name equals the key

Types: Integer, Decimal, Text, Boolean, Date.

The first loaded row must contain every column and parse as the declared
types. Later rows are converted where possible and keep their raw value
otherwise. Rows are re-keyed by field key, so 'a.id' reads the
'patient_id' column above.

Dates accept yyyy-MM-dd, yyyy/MM/dd, dd-MM-yyyy, dd/MM/yyyy and RFC 3339.
`,

	"matching": `MATCHING

Match conditions decide which left/right row pairs combine. A pair must
satisfy every condition.

  match:
    - exact: [a.id, b.id]
    - fuzzy: [a.name, b.name]
      threshold: 0.2

exact compares values; Integer and Decimal compare numerically.
fuzzy compares Text by Levenshtein distance after removing whitespace and
lower-casing, divided by the longer length. Pairs at or below the
threshold (0 to 1) match. Non-text values fall back to exact comparison.

A join without conditions pairs every row with every row; a warning is
logged when both sides exceed join.cartesian_warning_rows.
`,

	"transform": `TRANSFORM

A transform maps output keys to expressions evaluated per row pair:

  transform:
    id: a.id                                  # field of one side
    name: [a.name, b.name, "unknown"]         # first non-blank value
    label: {concat: [a.name, " / ", b.name]}  # text concatenation
    upper: {method: toUpper, on: b.name}      # scalar method
    year: {method: year, on: a.born}
    source: "clinic"                          # literal

In a union each output row sees only one side; fields of the other side
read as null. Without a transform, joins prefix keys with the dataset
identifier ('a.id', 'b.id') and unions keep the rows unchanged.
`,

	"adapters": `ADAPTERS

csv     source: path to the file. The header row names the columns; every
        cell is Text. delimiter: one character, default from csv.delimiter.
sqlite  source: database path or DSN. query: required SELECT statement;
        column names come from the result set.

Restrict the adapters pipelines may use with adapters.allow.
`,

	"config": `CONFIGURATION

The first file found is used, over the built-in defaults:

  $MASHD_CONFIG
  ./.mashd.yaml
  $XDG_CONFIG_HOME/mashd/config.yaml (or ~/.config/mashd/config.yaml)

Keys and defaults:

  adapters:
    allow: []                   # empty allows every adapter
  join:
    cartesian_warning_rows: 20
  csv:
    delimiter: ","              # "\t" for tab
  output:
    format: table               # table or json
  log:
    level: info                 # debug, info, warn, error

'mashd config' prints the effective settings.
`,

	"diagnostics": `DIAGNOSTICS

Code             Exit  Meaning
E_PIPELINE       2     the pipeline document is invalid
E_VALIDATION     2     dataset, schema or combination validation failed
E_DATASET_LOAD   3     an adapter could not read its source
E_DIV_ZERO       4     division by zero
E_UNDEFINED      4     undefined identifier
E_TYPE           4     operand or argument of the wrong type
E_METHOD         4     no such method for the value's type
E_FILE_PATH      4     output path is empty or its directory is missing
E_DATE_FORMAT    4     text is not a valid date
E_UNSUPPORTED    4     operation not supported
E_IO             1     file could not be read or written

Diagnostics print as JSON on stderr; add --pretty for readable output.
`,
}

// MatchTopic resolves an exact topic name or a unique prefix of one.
func MatchTopic(query string) (string, string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[q]; ok {
		return q, content, nil
	}
	var matches []string
	if q != "" {
		for _, name := range TopicList {
			if strings.HasPrefix(name, q) {
				matches = append(matches, name)
			}
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown topic %q", query)
	default:
		return "", "", fmt.Errorf("topic %q is ambiguous: %s", query, strings.Join(matches, ", "))
	}
}

var receivers = []ast.Type{ast.TypeText, ast.TypeInteger, ast.TypeDecimal, ast.TypeDate}

// MethodIndex lists the scalar methods in r by receiver type.
func MethodIndex(r *stdlib.Registry) string {
	var b strings.Builder
	total := 0
	for _, t := range receivers {
		names := r.Names(t)
		if len(names) == 0 {
			continue
		}
		sort.Strings(names)
		fmt.Fprintf(&b, "%s:\n", t)
		for _, name := range names {
			fn := r.Get(t, name)
			fmt.Fprintf(&b, "  %-12s -> %s\n", name, fn.Result)
		}
		total += len(names)
	}
	fmt.Fprintf(&b, "\nTotal: %d methods\n", total)
	return b.String()
}
