package stdlib

import (
	"math"
	"strconv"

	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/value"
)

func registerNumberMethods(r *Registry) {
	r.Register(Fn{Name: "abs", Receiver: ast.TypeInteger, Result: ast.TypeInteger, Execute: intAbs})
	r.Register(Fn{Name: "abs", Receiver: ast.TypeDecimal, Result: ast.TypeDecimal, Execute: decimalAbs})
	r.Register(Fn{Name: "round", Receiver: ast.TypeInteger, Result: ast.TypeInteger, Execute: intRound})
	r.Register(Fn{Name: "round", Receiver: ast.TypeDecimal, Result: ast.TypeDecimal, Execute: decimalRound})
	r.Register(Fn{Name: "toText", Receiver: ast.TypeInteger, Result: ast.TypeText, Execute: numberToText})
	r.Register(Fn{Name: "toText", Receiver: ast.TypeDecimal, Result: ast.TypeText, Execute: numberToText})
}

// x.abs() → same type
func intAbs(recv value.Value, args []value.Value) (value.Value, error) {
	if err := arity("abs", args, 0); err != nil {
		return nil, err
	}
	n := recv.(value.Integer).Value
	if n < 0 {
		n = -n
	}
	return value.Integer{Value: n}, nil
}

func decimalAbs(recv value.Value, args []value.Value) (value.Value, error) {
	if err := arity("abs", args, 0); err != nil {
		return nil, err
	}
	return value.Decimal{Value: math.Abs(recv.(value.Decimal).Value)}, nil
}

// An Integer is already round.
func intRound(recv value.Value, args []value.Value) (value.Value, error) {
	if _, err := roundDigits(args); err != nil {
		return nil, err
	}
	return recv, nil
}

// x.round(digits?) rounds half away from zero.
func decimalRound(recv value.Value, args []value.Value) (value.Value, error) {
	digits, err := roundDigits(args)
	if err != nil {
		return nil, err
	}
	f := recv.(value.Decimal).Value
	p := math.Pow(10, float64(digits))
	return value.Decimal{Value: math.Round(f*p) / p}, nil
}

func roundDigits(args []value.Value) (int64, error) {
	switch len(args) {
	case 0:
		return 0, nil
	case 1:
		d, ok := args[0].(value.Integer)
		if !ok || d.Value < 0 || d.Value > 15 {
			return 0, argErr("round", "digits must be an Integer between 0 and 15")
		}
		return d.Value, nil
	}
	return 0, argErr("round", "expects at most 1 argument, got %d", len(args))
}

func numberToText(recv value.Value, args []value.Value) (value.Value, error) {
	if err := arity("toText", args, 0); err != nil {
		return nil, err
	}
	switch n := recv.(type) {
	case value.Integer:
		return value.Text{Value: strconv.FormatInt(n.Value, 10)}, nil
	case value.Decimal:
		return value.Text{Value: strconv.FormatFloat(n.Value, 'f', -1, 64)}, nil
	}
	return nil, argErr("toText", "receiver must be numeric")
}
