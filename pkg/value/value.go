// Package value implements the Mashd runtime value model.
package value

import (
	"time"

	"github.com/thomasrohde/mashd/pkg/ast"
)

// Value is the interface for all Mashd runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	Kind() ast.Type
	value() // sealed marker
}

// Null represents the absence of a value.
type Null struct{}

func (Null) Kind() ast.Type { return ast.TypeUnknown }
func (Null) value()         {}

// Integer is a 64-bit signed integer.
type Integer struct {
	Value int64
}

func (Integer) Kind() ast.Type { return ast.TypeInteger }
func (Integer) value()         {}

// Decimal is a 64-bit float.
type Decimal struct {
	Value float64
}

func (Decimal) Kind() ast.Type { return ast.TypeDecimal }
func (Decimal) value()         {}

type Text struct {
	Value string
}

func (Text) Kind() ast.Type { return ast.TypeText }
func (Text) value()         {}

type Boolean struct {
	Value bool
}

func (Boolean) Kind() ast.Type { return ast.TypeBoolean }
func (Boolean) value()         {}

// Date is a calendar date; the time of day is always midnight UTC.
type Date struct {
	Value time.Time
}

func (Date) Kind() ast.Type { return ast.TypeDate }
func (Date) value()         {}

// NewDate truncates t to its calendar date.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Value: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Type carries a symbol type tag, e.g. the Integer in `{type: Integer}`.
type Type struct {
	Value ast.Type
}

func (Type) Kind() ast.Type { return ast.TypeType }
func (Type) value()         {}

// Prop is a key-value pair in an ordered object.
type Prop struct {
	Key   string
	Value Value
}

// Object represents an ordered map of names to values.
// Insertion order is preserved via the Props slice.
type Object struct {
	Props []Prop
	index map[string]int // lazy index for lookups
}

func (Object) Kind() ast.Type { return ast.TypeObject }
func (Object) value()         {}

// NewObject creates an object from key-value pairs.
func NewObject(props []Prop) Object {
	idx := make(map[string]int, len(props))
	for i, p := range props {
		idx[p.Key] = i
	}
	return Object{Props: props, index: idx}
}

// Get retrieves a value by key.
func (o *Object) Get(key string) (Value, bool) {
	if o.index == nil {
		o.reindex()
	}
	i, ok := o.index[key]
	if !ok {
		return nil, false
	}
	return o.Props[i].Value, true
}

// Set sets a value by key, preserving insertion order.
func (o *Object) Set(key string, v Value) {
	if o.index == nil {
		o.reindex()
	}
	if i, ok := o.index[key]; ok {
		o.Props[i].Value = v
		return
	}
	o.index[key] = len(o.Props)
	o.Props = append(o.Props, Prop{Key: key, Value: v})
}

func (o *Object) reindex() {
	o.index = make(map[string]int, len(o.Props))
	for i, p := range o.Props {
		o.index[p.Key] = i
	}
}

// FunctionDefinition is a reference to a user function, optionally with
// leading arguments already bound.
type FunctionDefinition struct {
	Decl  *ast.FunctionDecl
	Bound []Value
}

func (*FunctionDefinition) Kind() ast.Type { return ast.TypeUnknown }
func (*FunctionDefinition) value()         {}

// Arity is the number of arguments still expected by the function.
func (f *FunctionDefinition) Arity() int {
	return len(f.Decl.Params) - len(f.Bound)
}

// Param returns the declaration of the i-th unbound parameter.
func (f *FunctionDefinition) Param(i int) *ast.VarDecl {
	return f.Decl.Params[len(f.Bound)+i]
}

// PropertyAccess is an unresolved `dataset.column` reference. It only
// appears as an argument of match conditions.
type PropertyAccess struct {
	Field      SchemaField
	Identifier string
	Key        string
}

func (p PropertyAccess) Kind() ast.Type { return p.Field.Type }
func (PropertyAccess) value()           {}

func (p PropertyAccess) String() string {
	return p.Identifier + "." + p.Key
}

// DatasetPlaceholder stands in for a dataset identifier referenced
// directly while a row context is active.
type DatasetPlaceholder struct {
	Name string
}

func (DatasetPlaceholder) Kind() ast.Type { return ast.TypeDataset }
func (DatasetPlaceholder) value()         {}

// TypeName returns the Mashd type name of v for error messages.
func TypeName(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "Null"
	case *FunctionDefinition:
		return "Function"
	case PropertyAccess:
		return "PropertyAccess"
	case DatasetPlaceholder:
		return "Dataset"
	case SchemaField:
		return "SchemaField"
	default:
		return val.Kind().String()
	}
}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}
