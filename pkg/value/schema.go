package value

import (
	"github.com/thomasrohde/mashd/pkg/ast"
)

// SchemaField declares a column: its type and its name in the source.
type SchemaField struct {
	Type ast.Type
	Name string
}

func (SchemaField) Kind() ast.Type { return ast.TypeObject }
func (SchemaField) value()         {}

// Schema maps field keys to fields. Key order is preserved.
type Schema struct {
	keys   []string
	fields map[string]SchemaField
}

func (*Schema) Kind() ast.Type { return ast.TypeSchema }
func (*Schema) value()         {}

func NewSchema() *Schema {
	return &Schema{fields: make(map[string]SchemaField)}
}

// Add appends a field, or replaces the field already stored under key.
func (s *Schema) Add(key string, f SchemaField) {
	if _, ok := s.fields[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.fields[key] = f
}

func (s *Schema) Field(key string) (SchemaField, bool) {
	if s == nil {
		return SchemaField{}, false
	}
	f, ok := s.fields[key]
	return f, ok
}

// Keys returns the field keys in declaration order.
func (s *Schema) Keys() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

func (s *Schema) Clone() *Schema {
	c := NewSchema()
	if s == nil {
		return c
	}
	for _, k := range s.keys {
		c.Add(k, s.fields[k])
	}
	return c
}

// Compatible reports whether other has the same field count and, for
// every field of s, a field under the same key with equal type and
// source column name.
func (s *Schema) Compatible(other *Schema) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, k := range s.Keys() {
		f, _ := s.Field(k)
		g, ok := other.Field(k)
		if !ok || f.Type != g.Type || f.Name != g.Name {
			return false
		}
	}
	return true
}
