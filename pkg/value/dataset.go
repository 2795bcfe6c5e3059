package value

import (
	"errors"
	"fmt"

	"github.com/thomasrohde/mashd/pkg/ast"
)

var (
	ErrSchemaMismatch      = errors.New("schema does not match data")
	ErrTransformAlreadySet = errors.New("transform already set")
)

// Dataset is a schema plus the rows loaded from its source.
type Dataset struct {
	Schema    *Schema
	Source    string
	Adapter   string
	Query     string
	Delimiter string
	Rows      []*Row
}

func (*Dataset) Kind() ast.Type { return ast.TypeDataset }
func (*Dataset) value()         {}

// Load validates raw rows against the schema and replaces the dataset's
// rows with their field-keyed projection.
//
// Only the first row is checked: every field's source column must be
// present and parseable as the declared type. Later rows are converted on
// a best-effort basis, keeping the raw value when conversion fails.
func (d *Dataset) Load(raw []*Row) error {
	if len(raw) > 0 {
		if err := d.validate(raw[0]); err != nil {
			return err
		}
	}
	rows := make([]*Row, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, d.project(r))
	}
	d.Rows = rows
	return nil
}

func (d *Dataset) validate(first *Row) error {
	for _, key := range d.Schema.Keys() {
		f, _ := d.Schema.Field(key)
		v, ok := first.Get(f.Name)
		if !ok {
			return fmt.Errorf("%w: field '%s' expects column '%s', which is not in the data", ErrSchemaMismatch, key, f.Name)
		}
		if _, err := Coerce(v, f.Type); err != nil {
			return fmt.Errorf("%w: column '%s' value %q is not a valid %s", ErrSchemaMismatch, f.Name, FormatScalar(v), f.Type)
		}
	}
	return nil
}

func (d *Dataset) project(r *Row) *Row {
	out := &Row{Cells: make([]Cell, 0, d.Schema.Len())}
	for _, key := range d.Schema.Keys() {
		f, _ := d.Schema.Field(key)
		v, ok := r.Get(f.Name)
		if !ok {
			out.Set(key, nil)
			continue
		}
		if c, err := Coerce(v, f.Type); err == nil {
			v = c
		}
		out.Set(key, v)
	}
	return out
}

// Combination (a Mashd value) pairs two datasets with the conditions and
// optional transform that decide how they are combined.
type Combination struct {
	LeftID     string
	Left       *Dataset
	RightID    string
	Right      *Dataset
	Conditions []MatchCondition
	Transform  *ast.ObjectExpr
}

func (*Combination) Kind() ast.Type { return ast.TypeMashd }
func (*Combination) value()         {}

// AddCondition appends a condition. Conditions are conjunctive.
func (c *Combination) AddCondition(mc MatchCondition) {
	c.Conditions = append(c.Conditions, mc)
}

// SetTransform sets the transform; it may only be set once.
func (c *Combination) SetTransform(obj *ast.ObjectExpr) error {
	if c.Transform != nil {
		return ErrTransformAlreadySet
	}
	c.Transform = obj
	return nil
}

// SchemaFor returns the schema of the side named id.
func (c *Combination) SchemaFor(id string) (*Schema, bool) {
	switch id {
	case c.LeftID:
		return c.Left.Schema, true
	case c.RightID:
		return c.Right.Schema, true
	}
	return nil, false
}

// MatchCondition decides whether a left row and a right row correspond.
type MatchCondition interface {
	matchCondition() // sealed marker
}

// Exact matches when both columns hold equal values.
type Exact struct {
	Left  PropertyAccess
	Right PropertyAccess
}

func (Exact) matchCondition() {}

// Fuzzy matches text columns by normalized edit distance and falls back
// to exact equality for other values.
type Fuzzy struct {
	Left      PropertyAccess
	Right     PropertyAccess
	Threshold float64
}

func (Fuzzy) matchCondition() {}

// FunctionMatch matches when a user predicate returns true. Args are
// either PropertyAccess values, read from the row pair, or literals.
type FunctionMatch struct {
	Function *FunctionDefinition
	Args     []Value
}

func (FunctionMatch) matchCondition() {}
