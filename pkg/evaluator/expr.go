package evaluator

import (
	"fmt"
	"math"
	"strings"

	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/diagnostics"
	"github.com/thomasrohde/mashd/pkg/value"
)

func (ev *evaluator) evalExpr(expr ast.Expr) (value.Value, error) {
	if expr == nil {
		return value.Null{}, nil
	}

	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return value.Integer{Value: e.Value}, nil

	case *ast.DecimalLiteral:
		return value.Decimal{Value: e.Value}, nil

	case *ast.TextLiteral:
		return value.Text{Value: e.Value}, nil

	case *ast.BooleanLiteral:
		return value.Boolean{Value: e.Value}, nil

	case *ast.DateLiteral:
		return value.NewDate(e.Value), nil

	case *ast.NullLiteral:
		return value.Null{}, nil

	case *ast.TypeLiteral:
		return value.Type{Value: e.Value}, nil

	case *ast.ObjectExpr:
		return ev.evalObject(e)

	case *ast.Identifier:
		return ev.evalIdentifier(e)

	case *ast.PropertyAccess:
		return ev.evalPropertyAccess(e)

	case *ast.BinaryExpr:
		return ev.evalBinaryOp(e)

	case *ast.UnaryExpr:
		return ev.evalUnary(e)

	case *ast.TernaryExpr:
		cond, err := ev.evalCondition(e.Cond, "ternary")
		if err != nil {
			return nil, err
		}
		if cond {
			return ev.evalExpr(e.Then)
		}
		return ev.evalExpr(e.Else)

	case *ast.CombineExpr:
		return ev.evalCombine(e)

	case *ast.CallExpr:
		return ev.evalCallExpr(e)

	case *ast.MethodCallExpr:
		return ev.evalMethodCall(e)
	}

	return nil, newError(diagnostics.EUnsupported, expr, "unsupported expression type: %T", expr)
}

func (ev *evaluator) evalObject(e *ast.ObjectExpr) (value.Value, error) {
	obj := &value.Object{Props: make([]value.Prop, 0, len(e.Properties))}
	for _, p := range e.Properties {
		val, err := ev.evalExpr(p.Value)
		if err != nil {
			return nil, err
		}
		obj.Set(p.Key, val)
	}
	return *obj, nil
}

// evalIdentifier resolves a name: dataset identifiers of the active row
// context first, then the top activation frame, then global storage, then
// function declarations.
func (ev *evaluator) evalIdentifier(e *ast.Identifier) (value.Value, error) {
	if rc := ev.rowContext(); rc != nil && rc.Names(e.Name) {
		return value.DatasetPlaceholder{Name: e.Name}, nil
	}
	if e.Decl != nil {
		if v := ev.load(e.Decl); v != nil {
			return v, nil
		}
	}
	if e.Func != nil {
		return &value.FunctionDefinition{Decl: e.Func}, nil
	}
	return nil, newError(diagnostics.EUndefined, e, "undefined variable '%s'", e.Name)
}

func (ev *evaluator) evalPropertyAccess(e *ast.PropertyAccess) (value.Value, error) {
	id, isIdent := e.Object.(*ast.Identifier)

	if rc := ev.rowContext(); rc != nil && isIdent && rc.Names(id.Name) {
		row, _ := rc.Row(id.Name)
		v, ok := row.Get(e.Property)
		if !ok {
			return value.Null{}, nil
		}
		return value.FromScalar(v), nil
	}

	obj, err := ev.evalExpr(e.Object)
	if err != nil {
		return nil, err
	}

	switch o := obj.(type) {
	case *value.Dataset:
		f, ok := o.Schema.Field(e.Property)
		if !ok {
			return nil, newError(diagnostics.EUndefined, e, "dataset has no field '%s'", e.Property)
		}
		name := ""
		if isIdent {
			name = id.Name
		}
		return value.PropertyAccess{Field: f, Identifier: name, Key: e.Property}, nil

	case *value.Schema:
		f, ok := o.Field(e.Property)
		if !ok {
			return nil, newError(diagnostics.EUndefined, e, "schema has no field '%s'", e.Property)
		}
		return f, nil

	case value.SchemaField:
		switch e.Property {
		case "type":
			return value.Type{Value: o.Type}, nil
		case "name":
			return value.Text{Value: o.Name}, nil
		}

	case value.Object:
		if v, ok := o.Get(e.Property); ok {
			return v, nil
		}
		return nil, newError(diagnostics.EUndefined, e, "object has no property '%s'", e.Property)
	}

	return nil, newError(diagnostics.EType, e, "cannot access '%s' on %s", e.Property, value.TypeName(obj))
}

func (ev *evaluator) evalCondition(expr ast.Expr, what string) (bool, error) {
	v, err := ev.evalExpr(expr)
	if err != nil {
		return false, err
	}
	b, ok := v.(value.Boolean)
	if !ok {
		return false, newError(diagnostics.EType, expr, "%s condition must be Boolean, got %s", what, value.TypeName(v))
	}
	return b.Value, nil
}

func (ev *evaluator) evalBinaryOp(e *ast.BinaryExpr) (value.Value, error) {
	switch e.Op {
	case ast.OpAnd, ast.OpOr:
		return ev.evalLogical(e)
	case ast.OpNullish:
		left, err := ev.evalExpr(e.Left)
		if err != nil {
			return nil, err
		}
		if isBlank(left) {
			return ev.evalExpr(e.Right)
		}
		return left, nil
	}

	left, err := ev.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := ev.evalExpr(e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case ast.OpAdd:
		if l, ok := left.(value.Text); ok {
			if r, ok := right.(value.Text); ok {
				return value.Text{Value: l.Value + r.Value}, nil
			}
		}
		if isNumeric(left) && isNumeric(right) {
			return arithmetic(e, left, right)
		}
		return nil, newError(diagnostics.EType, e,
			"operator '+' requires two numbers or two Text values, got %s and %s", value.TypeName(left), value.TypeName(right))

	case ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		if !isNumeric(left) || !isNumeric(right) {
			return nil, newError(diagnostics.EType, e,
				"operator '%s' requires two numbers, got %s and %s", e.Op, value.TypeName(left), value.TypeName(right))
		}
		return arithmetic(e, left, right)

	case ast.OpEqEq, ast.OpNeq:
		eq, err := equals(e, left, right)
		if err != nil {
			return nil, err
		}
		if e.Op == ast.OpNeq {
			eq = !eq
		}
		return value.Boolean{Value: eq}, nil

	case ast.OpGt, ast.OpLt, ast.OpGtEq, ast.OpLtEq:
		return compare(e, left, right)
	}

	return nil, newError(diagnostics.EUnsupported, e, "unsupported operator '%s'", e.Op)
}

func (ev *evaluator) evalLogical(e *ast.BinaryExpr) (value.Value, error) {
	left, err := ev.evalCondition(e.Left, fmt.Sprintf("left operand of '%s'", e.Op))
	if err != nil {
		return nil, err
	}
	if e.Op == ast.OpAnd && !left {
		return value.Boolean{Value: false}, nil
	}
	if e.Op == ast.OpOr && left {
		return value.Boolean{Value: true}, nil
	}
	right, err := ev.evalCondition(e.Right, fmt.Sprintf("right operand of '%s'", e.Op))
	if err != nil {
		return nil, err
	}
	return value.Boolean{Value: right}, nil
}

func (ev *evaluator) evalUnary(e *ast.UnaryExpr) (value.Value, error) {
	operand, err := ev.evalExpr(e.Operand)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case ast.OpNeg:
		switch n := operand.(type) {
		case value.Integer:
			return value.Integer{Value: -n.Value}, nil
		case value.Decimal:
			return value.Decimal{Value: -n.Value}, nil
		}
		return nil, newError(diagnostics.EType, e, "unary '-' requires a number, got %s", value.TypeName(operand))
	case ast.OpNot:
		if b, ok := operand.(value.Boolean); ok {
			return value.Boolean{Value: !b.Value}, nil
		}
		return nil, newError(diagnostics.EType, e, "unary '!' requires a Boolean, got %s", value.TypeName(operand))
	}
	return nil, newError(diagnostics.EUnsupported, e, "unsupported unary operator '%s'", e.Op)
}

// isBlank reports whether the left side of ?? falls through: Null or
// whitespace-only Text.
func isBlank(v value.Value) bool {
	if value.IsNull(v) {
		return true
	}
	t, ok := v.(value.Text)
	return ok && strings.TrimSpace(t.Value) == ""
}

func isNumeric(v value.Value) bool {
	switch v.(type) {
	case value.Integer, value.Decimal:
		return true
	}
	return false
}

func toFloat(v value.Value) float64 {
	switch n := v.(type) {
	case value.Integer:
		return float64(n.Value)
	case value.Decimal:
		return n.Value
	}
	return 0
}

// arithmetic applies + - * / % to two numbers. Two Integers stay Integer
// (division truncates); any Decimal operand makes the result Decimal.
func arithmetic(e *ast.BinaryExpr, left, right value.Value) (value.Value, error) {
	l, lInt := left.(value.Integer)
	r, rInt := right.(value.Integer)
	if lInt && rInt {
		switch e.Op {
		case ast.OpAdd:
			return value.Integer{Value: l.Value + r.Value}, nil
		case ast.OpSub:
			return value.Integer{Value: l.Value - r.Value}, nil
		case ast.OpMul:
			return value.Integer{Value: l.Value * r.Value}, nil
		case ast.OpDiv:
			if r.Value == 0 {
				return nil, newError(diagnostics.EDivZero, e, "division by zero")
			}
			return value.Integer{Value: l.Value / r.Value}, nil
		case ast.OpMod:
			if r.Value == 0 {
				return nil, newError(diagnostics.EDivZero, e, "modulo by zero")
			}
			return value.Integer{Value: l.Value % r.Value}, nil
		}
	}

	lf, rf := toFloat(left), toFloat(right)
	switch e.Op {
	case ast.OpAdd:
		return value.Decimal{Value: lf + rf}, nil
	case ast.OpSub:
		return value.Decimal{Value: lf - rf}, nil
	case ast.OpMul:
		return value.Decimal{Value: lf * rf}, nil
	case ast.OpDiv:
		if rf == 0 {
			return nil, newError(diagnostics.EDivZero, e, "division by zero")
		}
		return value.Decimal{Value: lf / rf}, nil
	case ast.OpMod:
		if rf == 0 {
			return nil, newError(diagnostics.EDivZero, e, "modulo by zero")
		}
		return value.Decimal{Value: math.Mod(lf, rf)}, nil
	}
	return nil, newError(diagnostics.EUnsupported, e, "unsupported operator '%s'", e.Op)
}

// equals compares scalars. Numbers compare across Integer and Decimal;
// Null equals only Null.
func equals(e *ast.BinaryExpr, left, right value.Value) (bool, error) {
	if value.IsNull(left) || value.IsNull(right) {
		return value.IsNull(left) && value.IsNull(right), nil
	}
	if isNumeric(left) && isNumeric(right) {
		if l, ok := left.(value.Integer); ok {
			if r, ok := right.(value.Integer); ok {
				return l.Value == r.Value, nil
			}
		}
		return math.Abs(toFloat(left)-toFloat(right)) < value.DecimalTolerance, nil
	}
	if _, ok := value.ToScalar(left); !ok {
		return false, newError(diagnostics.EType, e, "cannot compare %s with '%s'", value.TypeName(left), e.Op)
	}
	if _, ok := value.ToScalar(right); !ok {
		return false, newError(diagnostics.EType, e, "cannot compare %s with '%s'", value.TypeName(right), e.Op)
	}
	if left.Kind() != right.Kind() {
		return false, newError(diagnostics.EType, e,
			"cannot compare %s and %s with '%s'", value.TypeName(left), value.TypeName(right), e.Op)
	}
	return value.Equal(left, right), nil
}

// compare orders two numbers or two dates.
func compare(e *ast.BinaryExpr, left, right value.Value) (value.Value, error) {
	var c int
	ld, lDate := left.(value.Date)
	rd, rDate := right.(value.Date)
	switch {
	case isNumeric(left) && isNumeric(right):
		l, lInt := left.(value.Integer)
		r, rInt := right.(value.Integer)
		if lInt && rInt {
			c = cmpInt(l.Value, r.Value)
		} else {
			c = cmpFloat(toFloat(left), toFloat(right))
		}
	case lDate && rDate:
		c = ld.Value.Compare(rd.Value)
	default:
		return nil, newError(diagnostics.EType, e,
			"operator '%s' requires two numbers or two dates, got %s and %s", e.Op, value.TypeName(left), value.TypeName(right))
	}

	var res bool
	switch e.Op {
	case ast.OpGt:
		res = c > 0
	case ast.OpLt:
		res = c < 0
	case ast.OpGtEq:
		res = c >= 0
	case ast.OpLtEq:
		res = c <= 0
	}
	return value.Boolean{Value: res}, nil
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case math.Abs(a-b) < value.DecimalTolerance:
		return 0
	case a < b:
		return -1
	}
	return 1
}
