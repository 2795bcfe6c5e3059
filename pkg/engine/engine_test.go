package engine_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/engine"
	"github.com/thomasrohde/mashd/pkg/value"
)

// fakeHost evaluates transforms whose properties are `id.key` accesses or
// `x ?? y` chains of them, and calls predicates through fn.
type fakeHost struct {
	fn    func(args []value.Value) (value.Value, error)
	calls int
}

func (h *fakeHost) Transform(rc *value.RowContext, obj *ast.ObjectExpr) (*value.Row, error) {
	out := value.NewRow()
	for _, p := range obj.Properties {
		v, err := h.eval(rc, p.Value)
		if err != nil {
			return nil, err
		}
		out.Set(p.Key, v)
	}
	return out, nil
}

func (h *fakeHost) eval(rc *value.RowContext, e ast.Expr) (any, error) {
	switch n := e.(type) {
	case *ast.PropertyAccess:
		id := n.Object.(*ast.Identifier).Name
		row, ok := rc.Row(id)
		if !ok {
			return nil, fmt.Errorf("unknown dataset %s", id)
		}
		v, _ := row.Get(n.Property)
		return v, nil
	case *ast.BinaryExpr:
		l, err := h.eval(rc, n.Left)
		if err != nil || l != nil {
			return l, err
		}
		return h.eval(rc, n.Right)
	case *ast.IntegerLiteral:
		return n.Value, nil
	}
	return nil, fmt.Errorf("unsupported %s", e.Kind())
}

func (h *fakeHost) Call(fn *value.FunctionDefinition, args []value.Value) (value.Value, error) {
	h.calls++
	return h.fn(args)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func patientSchema() *value.Schema {
	s := value.NewSchema()
	s.Add("id", value.SchemaField{Type: ast.TypeInteger, Name: "ID"})
	s.Add("name", value.SchemaField{Type: ast.TypeText, Name: "Name"})
	return s
}

func patients(ids ...int64) *value.Dataset {
	rows := make([]*value.Row, len(ids))
	for i, id := range ids {
		rows[i] = value.NewRow(
			value.Cell{Column: "id", Value: id},
			value.Cell{Column: "name", Value: "p" + strconv.FormatInt(id, 10)},
		)
	}
	return &value.Dataset{Schema: patientSchema(), Rows: rows}
}

func seq(from, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(from + i)
	}
	return out
}

func access(id, key string, t ast.Type) value.PropertyAccess {
	return value.PropertyAccess{Field: value.SchemaField{Type: t, Name: key}, Identifier: id, Key: key}
}

func propAccess(id, key string) *ast.PropertyAccess {
	return &ast.PropertyAccess{Object: &ast.Identifier{Name: id}, Property: key}
}

func combine(left, right *value.Dataset) *value.Combination {
	return &value.Combination{LeftID: "a", Left: left, RightID: "b", Right: right}
}

func matchIDs(c *value.Combination) {
	c.AddCondition(value.Exact{Left: access("a", "id", ast.TypeInteger), Right: access("b", "id", ast.TypeInteger)})
}

func TestFuzzyMatch(t *testing.T) {
	tests := []struct {
		a, b      string
		threshold float64
		want      bool
	}{
		{"John Doe", "Jon Doe", 0.2, true},
		{"John", "Mary", 0.1, false},
		{"John Doe", "john doe", 0, true},
		{"John Doe", "John Doe", 1.5, false},
		{"John Doe", "John Doe", -0.1, false},
		{"", "", 0, true},
		{"abc", "xyz", 1, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, engine.FuzzyMatch(tt.a, tt.b, tt.threshold), "%q ~ %q @ %v", tt.a, tt.b, tt.threshold)
	}
	assert.InDelta(t, 1.0/7, engine.Distance("John Doe", "Jon Doe"), 1e-9)
	assert.Equal(t, "straße", engine.Normalize(" STRAßE "))
}

func TestJoinCartesian(t *testing.T) {
	var warnings []engine.Warning
	e := engine.New(&fakeHost{},
		engine.WithLogger(quietLogger()),
		engine.WithWarningHandler(func(w engine.Warning) { warnings = append(warnings, w) }),
	)

	out, err := e.Join(combine(patients(seq(1, 3)...), patients(seq(1, 4)...)))
	require.NoError(t, err)
	assert.Len(t, out.Rows, 12)
	assert.Empty(t, warnings)

	out, err = e.Join(combine(patients(seq(1, 21)...), patients(seq(1, 22)...)))
	require.NoError(t, err)
	assert.Len(t, out.Rows, 21*22)
	require.Len(t, warnings, 1)
	assert.Equal(t, 21*22, warnings[0].ResultRows)
}

func TestJoinExactMergesPrefixedKeys(t *testing.T) {
	e := engine.New(&fakeHost{}, engine.WithLogger(quietLogger()))
	left, right := patients(1, 2, 3, 4), patients(3, 4, 5)
	c := combine(left, right)
	matchIDs(c)

	out, err := e.Join(c)
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, []string{"a.id", "a.name", "b.id", "b.name"}, out.Rows[0].Columns())
	for _, r := range out.Rows {
		a, _ := r.Get("a.id")
		b, _ := r.Get("b.id")
		assert.Equal(t, a, b)
	}
	assert.Equal(t, []string{"a.id", "a.name", "b.id", "b.name"}, out.Schema.Keys())
	f, _ := out.Schema.Field("a.id")
	assert.Equal(t, ast.TypeInteger, f.Type)

	// inputs untouched
	assert.Len(t, left.Rows, 4)
	assert.Equal(t, []string{"id", "name"}, left.Rows[0].Columns())
}

func TestJoinWithTransform(t *testing.T) {
	e := engine.New(&fakeHost{}, engine.WithLogger(quietLogger()))
	c := combine(patients(1, 2), patients(2))
	matchIDs(c)
	require.NoError(t, c.SetTransform(&ast.ObjectExpr{Properties: []*ast.Property{
		{Key: "id", Value: propAccess("a", "id")},
		{Key: "other", Value: propAccess("b", "name")},
	}}))

	out, err := e.Join(c)
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	other, _ := out.Rows[0].Get("other")
	assert.Equal(t, "p2", other)
	assert.Equal(t, []string{"id", "other"}, out.Schema.Keys())
	f, _ := out.Schema.Field("other")
	assert.Equal(t, ast.TypeText, f.Type)
}

func TestUnionDedup(t *testing.T) {
	e := engine.New(&fakeHost{}, engine.WithLogger(quietLogger()))
	c := combine(patients(1), patients(1, 1))
	matchIDs(c)

	out, err := e.Union(c)
	require.NoError(t, err)
	// one left row matched twice, plus two distinct right rows
	assert.Len(t, out.Rows, 3)
}

func TestUnionWithConditionsDropsUnmatchedRows(t *testing.T) {
	e := engine.New(&fakeHost{}, engine.WithLogger(quietLogger()))
	c := combine(patients(1, 2, 3), patients(3, 4))
	matchIDs(c)

	out, err := e.Union(c)
	require.NoError(t, err)
	require.Len(t, out.Rows, 2, "only the rows taking part in a match survive")
	for _, r := range out.Rows {
		id, _ := r.Get("id")
		assert.Equal(t, int64(3), id)
	}
}

func TestUnionConcatenatesCompatible(t *testing.T) {
	e := engine.New(&fakeHost{}, engine.WithLogger(quietLogger()))
	out, err := e.Union(combine(patients(1, 2), patients(3)))
	require.NoError(t, err)
	assert.Len(t, out.Rows, 3)
	assert.Equal(t, []string{"id", "name"}, out.Schema.Keys())
}

func TestUnionIncompatibleSchemas(t *testing.T) {
	e := engine.New(&fakeHost{}, engine.WithLogger(quietLogger()))
	right := patients(1)
	right.Schema = value.NewSchema()
	right.Schema.Add("id", value.SchemaField{Type: ast.TypeText, Name: "ID"})
	right.Schema.Add("name", value.SchemaField{Type: ast.TypeText, Name: "Name"})

	_, err := e.Union(combine(patients(1), right))
	assert.ErrorIs(t, err, engine.ErrIncompatibleSchemas)
}

func TestUnionTransformNullish(t *testing.T) {
	e := engine.New(&fakeHost{}, engine.WithLogger(quietLogger()))
	c := combine(patients(1, 2), patients(7))
	require.NoError(t, c.SetTransform(&ast.ObjectExpr{Properties: []*ast.Property{
		{Key: "id", Value: &ast.BinaryExpr{Op: ast.OpNullish, Left: propAccess("a", "id"), Right: propAccess("b", "id")}},
	}}))

	out, err := e.Union(c)
	require.NoError(t, err)
	require.Len(t, out.Rows, 3)
	var ids []any
	for _, r := range out.Rows {
		id, _ := r.Get("id")
		ids = append(ids, id)
	}
	assert.Equal(t, []any{int64(1), int64(2), int64(7)}, ids)
	f, _ := out.Schema.Field("id")
	assert.Equal(t, ast.TypeInteger, f.Type)
}

func predicate(params ...ast.Type) *value.FunctionDefinition {
	scope := ast.NewFrameScope()
	decl := &ast.FunctionDecl{Name: "same", ReturnType: ast.TypeBoolean}
	for i, t := range params {
		decl.Params = append(decl.Params, scope.Declare("p"+strconv.Itoa(i), t))
	}
	decl.FrameSize = scope.Size()
	return &value.FunctionDefinition{Decl: decl}
}

func TestFunctionMatchCoercesArguments(t *testing.T) {
	host := &fakeHost{fn: func(args []value.Value) (value.Value, error) {
		a, ok := args[0].(value.Text)
		if !ok {
			return nil, errors.New("first argument not coerced to Text")
		}
		return value.Boolean{Value: a.Value == args[1].(value.Text).Value}, nil
	}}
	e := engine.New(host, engine.WithLogger(quietLogger()))
	c := combine(patients(1, 2), patients(2))
	c.AddCondition(value.FunctionMatch{
		Function: predicate(ast.TypeText, ast.TypeText),
		Args:     []value.Value{access("a", "id", ast.TypeInteger), value.Text{Value: "2"}},
	})

	out, err := e.Join(c)
	require.NoError(t, err)
	assert.Len(t, out.Rows, 1)
	assert.Equal(t, 2, host.calls)
}

func TestFunctionMatchErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	e := engine.New(&fakeHost{fn: func([]value.Value) (value.Value, error) { return nil, boom }}, engine.WithLogger(quietLogger()))
	c := combine(patients(1), patients(1))
	c.AddCondition(value.FunctionMatch{Function: predicate(ast.TypeInteger), Args: []value.Value{access("a", "id", ast.TypeInteger)}})

	_, err := e.Join(c)
	assert.ErrorIs(t, err, boom)
}

func TestFuzzyConditionFallsBackToEquality(t *testing.T) {
	e := engine.New(&fakeHost{}, engine.WithLogger(quietLogger()))
	c := combine(patients(1, 2), patients(2))
	c.AddCondition(value.Fuzzy{Left: access("a", "id", ast.TypeInteger), Right: access("b", "id", ast.TypeInteger), Threshold: 0.9})

	ok, err := e.Matches(c, c.Left.Rows[0], c.Right.Rows[0])
	require.NoError(t, err)
	assert.False(t, ok)

	c.Conditions = []value.MatchCondition{value.Fuzzy{Left: access("a", "name", ast.TypeText), Right: access("b", "name", ast.TypeText), Threshold: 0.5}}
	ok, err = e.Matches(c, c.Left.Rows[0], c.Right.Rows[0])
	require.NoError(t, err)
	assert.True(t, ok, "p1 ~ p2 is one edit in two")
}

func TestInferSchemaWithoutRows(t *testing.T) {
	c := combine(patients(), patients())
	s := engine.InferSchema(c, nil)
	assert.True(t, s.Compatible(c.Left.Schema))
	assert.NotSame(t, c.Left.Schema, s)
}

func TestExprType(t *testing.T) {
	c := combine(patients(), patients())
	tests := []struct {
		expr ast.Expr
		want ast.Type
	}{
		{&ast.IntegerLiteral{Value: 1}, ast.TypeInteger},
		{&ast.TextLiteral{Value: "x"}, ast.TypeText},
		{propAccess("a", "name"), ast.TypeText},
		{propAccess("b", "id"), ast.TypeInteger},
		{&ast.BinaryExpr{Op: ast.OpAdd, Left: propAccess("a", "id"), Right: &ast.DecimalLiteral{Value: 1}}, ast.TypeInteger},
		{&ast.BinaryExpr{Op: ast.OpGt, Left: propAccess("a", "id"), Right: &ast.IntegerLiteral{Value: 1}}, ast.TypeBoolean},
		{&ast.MethodCallExpr{Receiver: propAccess("a", "name"), Method: "length", Type: ast.TypeInteger}, ast.TypeInteger},
		{&ast.NullLiteral{}, ast.TypeUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, engine.ExprType(c, tt.expr), tt.expr.Kind())
	}
}
