package engine

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/thomasrohde/mashd/pkg/value"
)

// Matches reports whether left and right satisfy every condition of c.
// A combination without conditions matches every pair.
func (e *Engine) Matches(c *value.Combination, left, right *value.Row) (bool, error) {
	for _, cond := range c.Conditions {
		ok, err := e.match(c, cond, left, right)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (e *Engine) match(c *value.Combination, cond value.MatchCondition, left, right *value.Row) (bool, error) {
	switch mc := cond.(type) {
	case value.Exact:
		return value.ScalarEqual(cell(left, mc.Left), cell(right, mc.Right)), nil

	case value.Fuzzy:
		a, b := cell(left, mc.Left), cell(right, mc.Right)
		as, aok := a.(string)
		bs, bok := b.(string)
		if aok && bok {
			return FuzzyMatch(as, bs, mc.Threshold), nil
		}
		return value.ScalarEqual(a, b), nil

	case value.FunctionMatch:
		return e.callPredicate(c, mc, left, right)
	}
	return false, fmt.Errorf("unsupported match condition %T", cond)
}

func (e *Engine) callPredicate(c *value.Combination, mc value.FunctionMatch, left, right *value.Row) (bool, error) {
	rc := rowContext(c, left, right)
	args := make([]value.Value, len(mc.Args))
	for i, arg := range mc.Args {
		pa, ok := arg.(value.PropertyAccess)
		if !ok {
			args[i] = arg
			continue
		}
		row, _ := rc.Row(pa.Identifier)
		param := mc.Function.Param(i)
		v, err := value.Coerce(cell(row, pa), param.Type)
		if err != nil {
			return false, fmt.Errorf("argument '%s' of %s: %w", param.Name, mc.Function.Decl.Name, err)
		}
		args[i] = value.FromScalar(v)
	}

	res, err := e.host.Call(mc.Function, args)
	if err != nil {
		return false, err
	}
	b, ok := res.(value.Boolean)
	return ok && b.Value, nil
}

// cell reads the column a property access names from row. Rows loaded
// from a source are keyed by field key; the source column name is tried
// when the key is absent. Missing columns read as nil.
func cell(row *value.Row, pa value.PropertyAccess) any {
	if v, ok := row.Get(pa.Key); ok {
		return v
	}
	v, _ := row.Get(pa.Field.Name)
	return v
}

var lower = cases.Lower(language.Und)

// Normalize strips whitespace and lower-cases s for fuzzy comparison.
func Normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return lower.String(s)
}

// Distance returns the normalized edit distance between a and b: the
// Levenshtein distance of their normalized forms divided by the longer
// length. Two empty strings have distance 0.
func Distance(a, b string) float64 {
	a, b = Normalize(a), Normalize(b)
	n := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if n == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(n)
}

// FuzzyMatch reports whether the normalized distance between a and b is
// at most threshold. A threshold outside [0, 1] never matches.
func FuzzyMatch(a, b string, threshold float64) bool {
	if threshold < 0 || threshold > 1 {
		return false
	}
	return Distance(a, b) <= threshold
}
