package value_test

import (
	"errors"
	"testing"
	"time"

	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/value"
)

func TestScalarEqual(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		a, b     any
		expected bool
	}{
		{int64(3), int64(3), true},
		{int64(3), int64(4), false},
		{0.1 + 0.2, 0.3, true},
		{1.0, 1.0 + 1e-9, false},
		{"abc", "abc", true},
		{"abc", "ABC", false},
		{true, true, true},
		{true, false, false},
		{nil, nil, true},
		{nil, "", false},
		{int64(1), 1.0, false},
		{"1", int64(1), false},
		{day, day.Add(0), true},
	}

	for i, tt := range tests {
		if got := value.ScalarEqual(tt.a, tt.b); got != tt.expected {
			t.Errorf("test %d: ScalarEqual(%v, %v) = %v, want %v", i, tt.a, tt.b, got, tt.expected)
		}
	}
}

func TestDecimalEqualityReflexive(t *testing.T) {
	for _, f := range []float64{0, 1e-12, -3.5, 123456.789, 1e15} {
		if !value.Equal(value.Decimal{Value: f}, value.Decimal{Value: f}) {
			t.Errorf("Decimal %v is not equal to itself", f)
		}
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		in       any
		typ      ast.Type
		expected any
	}{
		{"42", ast.TypeInteger, int64(42)},
		{" 7 ", ast.TypeInteger, int64(7)},
		{3.0, ast.TypeInteger, int64(3)},
		{"2.5", ast.TypeDecimal, 2.5},
		{int64(2), ast.TypeDecimal, 2.0},
		{int64(9), ast.TypeText, "9"},
		{"true", ast.TypeBoolean, true},
		{"0", ast.TypeBoolean, false},
		{"2024-02-29", ast.TypeDate, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{"29/02/2024", ast.TypeDate, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{"", ast.TypeInteger, nil},
		{nil, ast.TypeText, nil},
	}

	for i, tt := range tests {
		got, err := value.Coerce(tt.in, tt.typ)
		if err != nil {
			t.Errorf("test %d: Coerce(%v, %s) error: %v", i, tt.in, tt.typ, err)
			continue
		}
		if !value.ScalarEqual(got, tt.expected) {
			t.Errorf("test %d: Coerce(%v, %s) = %v, want %v", i, tt.in, tt.typ, got, tt.expected)
		}
	}
}

func TestCoerceErrors(t *testing.T) {
	if _, err := value.Coerce("abc", ast.TypeInteger); !errors.Is(err, value.ErrCoerce) {
		t.Errorf("expected ErrCoerce, got %v", err)
	}
	if _, err := value.Coerce(2.5, ast.TypeInteger); !errors.Is(err, value.ErrCoerce) {
		t.Errorf("expected ErrCoerce for fractional integer, got %v", err)
	}
	if _, err := value.Coerce("March 3rd", ast.TypeDate); !errors.Is(err, value.ErrDateFormat) {
		t.Errorf("expected ErrDateFormat, got %v", err)
	}
}

func TestRowOrderPreserved(t *testing.T) {
	r := value.NewRow(
		value.Cell{Column: "b", Value: int64(2)},
		value.Cell{Column: "a", Value: int64(1)},
	)
	r.Set("c", "x")
	r.Set("b", int64(5))

	cols := r.Columns()
	want := []string{"b", "a", "c"}
	if len(cols) != len(want) {
		t.Fatalf("got %d columns, want %d", len(cols), len(want))
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Errorf("column %d: got %q, want %q", i, cols[i], want[i])
		}
	}
	if v, _ := r.Get("b"); v != int64(5) {
		t.Errorf("b = %v, want 5", v)
	}

	var empty *value.Row
	if _, ok := empty.Get("a"); ok {
		t.Error("nil row must not report columns")
	}
}

func patientSchema() *value.Schema {
	s := value.NewSchema()
	s.Add("id", value.SchemaField{Type: ast.TypeInteger, Name: "ID"})
	s.Add("name", value.SchemaField{Type: ast.TypeText, Name: "Name"})
	return s
}

func TestSchemaCompatible(t *testing.T) {
	a := patientSchema()
	if !a.Compatible(patientSchema()) {
		t.Error("identical schemas must be compatible")
	}

	b := value.NewSchema()
	b.Add("id", value.SchemaField{Type: ast.TypeText, Name: "ID"})
	b.Add("name", value.SchemaField{Type: ast.TypeText, Name: "Name"})
	if a.Compatible(b) {
		t.Error("a mismatched declared type must be incompatible")
	}

	c := value.NewSchema()
	c.Add("id", value.SchemaField{Type: ast.TypeInteger, Name: "PatientID"})
	c.Add("name", value.SchemaField{Type: ast.TypeText, Name: "Name"})
	if a.Compatible(c) {
		t.Error("a mismatched source column must be incompatible")
	}

	d := patientSchema()
	d.Add("age", value.SchemaField{Type: ast.TypeInteger, Name: "Age"})
	if a.Compatible(d) {
		t.Error("a different field count must be incompatible")
	}
}

func TestDatasetLoadProjectsRows(t *testing.T) {
	ds := &value.Dataset{Schema: patientSchema()}
	raw := []*value.Row{
		value.NewRow(value.Cell{Column: "ID", Value: "1"}, value.Cell{Column: "Name", Value: "Ann"}, value.Cell{Column: "Extra", Value: "x"}),
		value.NewRow(value.Cell{Column: "ID", Value: "oops"}, value.Cell{Column: "Name", Value: "Bob"}),
	}
	if err := ds.Load(raw); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ds.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(ds.Rows))
	}
	if cols := ds.Rows[0].Columns(); len(cols) != 2 || cols[0] != "id" || cols[1] != "name" {
		t.Errorf("projected columns = %v", cols)
	}
	if v, _ := ds.Rows[0].Get("id"); v != int64(1) {
		t.Errorf("id = %#v, want int64(1)", v)
	}
	// Only the first row is validated; later rows keep unparseable raw values.
	if v, _ := ds.Rows[1].Get("id"); v != "oops" {
		t.Errorf("id = %#v, want raw \"oops\"", v)
	}

	if err := ds.Load(nil); err != nil || len(ds.Rows) != 0 {
		t.Errorf("reload with no rows: err=%v rows=%d", err, len(ds.Rows))
	}
}

func TestDatasetLoadValidatesFirstRow(t *testing.T) {
	ds := &value.Dataset{Schema: patientSchema()}

	err := ds.Load([]*value.Row{value.NewRow(value.Cell{Column: "ID", Value: "1"})})
	if !errors.Is(err, value.ErrSchemaMismatch) {
		t.Errorf("missing column: expected ErrSchemaMismatch, got %v", err)
	}

	err = ds.Load([]*value.Row{value.NewRow(value.Cell{Column: "ID", Value: "x"}, value.Cell{Column: "Name", Value: "Ann"})})
	if !errors.Is(err, value.ErrSchemaMismatch) {
		t.Errorf("unparseable value: expected ErrSchemaMismatch, got %v", err)
	}
}

func TestCombinationTransformOnce(t *testing.T) {
	c := &value.Combination{}
	if err := c.SetTransform(&ast.ObjectExpr{}); err != nil {
		t.Fatalf("first SetTransform: %v", err)
	}
	if err := c.SetTransform(&ast.ObjectExpr{}); !errors.Is(err, value.ErrTransformAlreadySet) {
		t.Errorf("expected ErrTransformAlreadySet, got %v", err)
	}
}

func TestToJSONPreservesOrder(t *testing.T) {
	obj := value.NewObject([]value.Prop{
		{Key: "z", Value: value.Integer{Value: 1}},
		{Key: "a", Value: value.Text{Value: "x"}},
		{Key: "d", Value: value.NewDate(time.Date(2020, 1, 2, 15, 0, 0, 0, time.UTC))},
	})
	got := value.ToJSONString(obj)
	want := `{"z":1,"a":"x","d":"2020-01-02"}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
