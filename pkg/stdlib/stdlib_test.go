package stdlib_test

import (
	"errors"
	"testing"
	"time"

	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/stdlib"
	"github.com/thomasrohde/mashd/pkg/value"
)

func call(t *testing.T, recv value.Value, name string, args ...value.Value) value.Value {
	t.Helper()
	fn := stdlib.Defaults().Get(recv.Kind(), name)
	if fn == nil {
		t.Fatalf("no method %s on %s", name, value.TypeName(recv))
	}
	v, err := fn.Execute(recv, args)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return v
}

func text(s string) value.Value { return value.Text{Value: s} }

func TestTextMethods(t *testing.T) {
	tests := []struct {
		recv string
		name string
		args []value.Value
		want value.Value
	}{
		{"Straße", "toUpper", nil, text("STRASSE")},
		{"ÅSA", "toLower", nil, text("åsa")},
		{"  x ", "trim", nil, text("x")},
		{"héllo", "length", nil, value.Integer{Value: 5}},
		{"John Doe", "contains", []value.Value{text("n D")}, value.Boolean{Value: true}},
		{"John Doe", "startsWith", []value.Value{text("Jo")}, value.Boolean{Value: true}},
		{"John Doe", "endsWith", []value.Value{text("Jo")}, value.Boolean{Value: false}},
		{"a-b-c", "replace", []value.Value{text("-"), text("+")}, text("a+b+c")},
	}
	for _, tt := range tests {
		got := call(t, text(tt.recv), tt.name, tt.args...)
		if !value.Equal(got, tt.want) {
			t.Errorf("%q.%s = %v, want %v", tt.recv, tt.name, got, tt.want)
		}
	}
}

func TestNumberMethods(t *testing.T) {
	if got := call(t, value.Integer{Value: -4}, "abs"); !value.Equal(got, value.Integer{Value: 4}) {
		t.Errorf("abs = %v", got)
	}
	if got := call(t, value.Decimal{Value: -2.5}, "abs"); !value.Equal(got, value.Decimal{Value: 2.5}) {
		t.Errorf("abs = %v", got)
	}
	if got := call(t, value.Decimal{Value: 2.346}, "round", value.Integer{Value: 2}); !value.Equal(got, value.Decimal{Value: 2.35}) {
		t.Errorf("round(2) = %v", got)
	}
	if got := call(t, value.Decimal{Value: 2.5}, "round"); !value.Equal(got, value.Decimal{Value: 3}) {
		t.Errorf("round() = %v", got)
	}
	if got := call(t, value.Decimal{Value: 1.5}, "toText"); !value.Equal(got, text("1.5")) {
		t.Errorf("toText = %v", got)
	}
}

func TestDateMethods(t *testing.T) {
	d := value.NewDate(time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC))
	if got := call(t, d, "year"); !value.Equal(got, value.Integer{Value: 2024}) {
		t.Errorf("year = %v", got)
	}
	if got := call(t, d, "month"); !value.Equal(got, value.Integer{Value: 2}) {
		t.Errorf("month = %v", got)
	}
	if got := call(t, d, "format", text("dd/MM/yyyy")); !value.Equal(got, text("09/02/2024")) {
		t.Errorf("format = %v", got)
	}
}

func TestUnknownMethods(t *testing.T) {
	r := stdlib.Defaults()
	if r.Get(ast.TypeText, "abs") != nil {
		t.Error("abs must not be defined on Text")
	}
	if r.Get(ast.TypeBoolean, "toText") != nil {
		t.Error("Boolean has no methods")
	}
}

func TestArgumentErrors(t *testing.T) {
	fn := stdlib.Defaults().Get(ast.TypeText, "contains")
	_, err := fn.Execute(text("abc"), []value.Value{value.Integer{Value: 1}})
	if !errors.Is(err, stdlib.ErrArgs) {
		t.Errorf("expected ErrArgs, got %v", err)
	}
	_, err = fn.Execute(text("abc"), nil)
	if !errors.Is(err, stdlib.ErrArgs) {
		t.Errorf("expected ErrArgs for missing argument, got %v", err)
	}
}
