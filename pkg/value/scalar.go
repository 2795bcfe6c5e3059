package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/thomasrohde/mashd/pkg/ast"
)

// DecimalTolerance is the absolute tolerance for Decimal equality.
const DecimalTolerance = 1e-10

// DateLayout is the canonical text form of a Date.
const DateLayout = "2006-01-02"

var (
	ErrDateFormat = errors.New("invalid date format")
	ErrCoerce     = errors.New("cannot convert value")
)

var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParseDate parses s using the accepted date layouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t).Value, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrDateFormat, s)
}

// FromScalar wraps a row scalar as a Value.
func FromScalar(v any) Value {
	switch s := v.(type) {
	case nil:
		return Null{}
	case int64:
		return Integer{Value: s}
	case int:
		return Integer{Value: int64(s)}
	case int32:
		return Integer{Value: int64(s)}
	case float64:
		return Decimal{Value: s}
	case float32:
		return Decimal{Value: float64(s)}
	case string:
		return Text{Value: s}
	case []byte:
		return Text{Value: string(s)}
	case bool:
		return Boolean{Value: s}
	case time.Time:
		return NewDate(s)
	}
	return Text{Value: fmt.Sprint(v)}
}

// ToScalar unwraps a scalar Value for storage in a row.
// It reports false for values that cannot live in a row.
func ToScalar(v Value) (any, bool) {
	switch val := v.(type) {
	case nil, Null:
		return nil, true
	case Integer:
		return val.Value, true
	case Decimal:
		return val.Value, true
	case Text:
		return val.Value, true
	case Boolean:
		return val.Value, true
	case Date:
		return val.Value, true
	}
	return nil, false
}

// ScalarType returns the Mashd type of a row scalar, TypeUnknown for nil.
func ScalarType(v any) ast.Type {
	switch v.(type) {
	case int64, int, int32:
		return ast.TypeInteger
	case float64, float32:
		return ast.TypeDecimal
	case string, []byte:
		return ast.TypeText
	case bool:
		return ast.TypeBoolean
	case time.Time:
		return ast.TypeDate
	}
	return ast.TypeUnknown
}

// ScalarEqual compares two row scalars: integers exactly, decimals within
// DecimalTolerance, text, booleans and dates exactly, and nil equals nil.
// Values of different kinds are unequal.
func ScalarEqual(a, b any) bool {
	return Equal(FromScalar(a), FromScalar(b))
}

// Equal compares two scalar values with the same rules as ScalarEqual.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil, Null:
		return IsNull(b)
	case Integer:
		bv, ok := b.(Integer)
		return ok && av.Value == bv.Value
	case Decimal:
		bv, ok := b.(Decimal)
		return ok && math.Abs(av.Value-bv.Value) < DecimalTolerance
	case Text:
		bv, ok := b.(Text)
		return ok && av.Value == bv.Value
	case Boolean:
		bv, ok := b.(Boolean)
		return ok && av.Value == bv.Value
	case Date:
		bv, ok := b.(Date)
		return ok && av.Value.Equal(bv.Value)
	}
	return false
}

// Coerce converts a row scalar to type t. Nil, and blank text for
// non-Text types, coerce to nil.
func Coerce(v any, t ast.Type) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if s, ok := v.(string); ok && t != ast.TypeText && strings.TrimSpace(s) == "" {
		return nil, nil
	}

	switch t {
	case ast.TypeUnknown:
		return v, nil

	case ast.TypeInteger:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case float64:
			if n == math.Trunc(n) && !math.IsInf(n, 0) {
				return int64(n), nil
			}
		case string:
			if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
				return i, nil
			}
		}

	case ast.TypeDecimal:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case int:
			return float64(n), nil
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f, nil
			}
		}

	case ast.TypeText:
		return FormatScalar(v), nil

	case ast.TypeBoolean:
		switch b := v.(type) {
		case bool:
			return b, nil
		case int64:
			if b == 0 || b == 1 {
				return b == 1, nil
			}
		case string:
			if p, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
				return p, nil
			}
		}

	case ast.TypeDate:
		switch d := v.(type) {
		case time.Time:
			return NewDate(d).Value, nil
		case string:
			return ParseDate(d)
		}
	}

	return nil, fmt.Errorf("%w: %s %q to %s", ErrCoerce, ScalarType(v), FormatScalar(v), t)
}

// CoerceValue converts a scalar Value to type t.
func CoerceValue(v Value, t ast.Type) (Value, error) {
	s, ok := ToScalar(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a scalar", ErrCoerce, TypeName(v))
	}
	c, err := Coerce(s, t)
	if err != nil {
		return nil, err
	}
	return FromScalar(c), nil
}

// FormatScalar renders a row scalar as text.
func FormatScalar(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case int:
		return strconv.Itoa(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case time.Time:
		return s.Format(DateLayout)
	}
	return fmt.Sprint(v)
}
