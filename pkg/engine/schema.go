package engine

import (
	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/value"
)

// InferSchema derives the schema of a combination's output rows.
//
// With a transform, each property's type comes from its expression and,
// when that is inconclusive, from the first non-null value the property
// took in rows. Without a transform, column types come from the first
// row; with no rows the left schema is copied. Fields that stay unknown
// are typed Text. Every field's source name is its key.
func InferSchema(c *value.Combination, rows []*value.Row) *value.Schema {
	s := value.NewSchema()

	if c.Transform != nil {
		for _, p := range c.Transform.Properties {
			t := ExprType(c, p.Value)
			if t == ast.TypeUnknown {
				t = sampleType(rows, p.Key)
			}
			s.Add(p.Key, value.SchemaField{Type: t, Name: p.Key})
		}
		return s
	}

	if len(rows) == 0 {
		return c.Left.Schema.Clone()
	}
	for _, col := range rows[0].Columns() {
		v, _ := rows[0].Get(col)
		t := value.ScalarType(v)
		if t == ast.TypeUnknown {
			t = sampleType(rows, col)
		}
		s.Add(col, value.SchemaField{Type: t, Name: col})
	}
	return s
}

func sampleType(rows []*value.Row, col string) ast.Type {
	for _, r := range rows {
		if v, ok := r.Get(col); ok && v != nil {
			if t := value.ScalarType(v); t != ast.TypeUnknown {
				return t
			}
		}
	}
	return ast.TypeText
}

// ExprType is the static type of a transform expression, or TypeUnknown.
func ExprType(c *value.Combination, expr ast.Expr) ast.Type {
	switch n := expr.(type) {
	case *ast.IntegerLiteral:
		return ast.TypeInteger
	case *ast.DecimalLiteral:
		return ast.TypeDecimal
	case *ast.TextLiteral:
		return ast.TypeText
	case *ast.BooleanLiteral:
		return ast.TypeBoolean
	case *ast.DateLiteral:
		return ast.TypeDate

	case *ast.PropertyAccess:
		if id, ok := n.Object.(*ast.Identifier); ok {
			if schema, ok := c.SchemaFor(id.Name); ok {
				if f, ok := schema.Field(n.Property); ok {
					return f.Type
				}
			}
		}
		return n.FieldType

	case *ast.BinaryExpr:
		switch {
		case n.Op.IsComparison():
			return ast.TypeBoolean
		case n.Op == ast.OpNullish:
			if t := ExprType(c, n.Left); t != ast.TypeUnknown {
				return t
			}
			return ExprType(c, n.Right)
		default:
			return ExprType(c, n.Left)
		}

	case *ast.UnaryExpr:
		if n.Op == ast.OpNot {
			return ast.TypeBoolean
		}
		return ExprType(c, n.Operand)

	case *ast.TernaryExpr:
		if t := ExprType(c, n.Then); t != ast.TypeUnknown {
			return t
		}
		return ExprType(c, n.Else)

	case *ast.CallExpr:
		return n.Type
	case *ast.MethodCallExpr:
		return n.Type

	case *ast.Identifier:
		if n.Decl != nil && n.Decl.Type.IsScalar() {
			return n.Decl.Type
		}
	}
	return ast.TypeUnknown
}
