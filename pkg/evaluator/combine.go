package evaluator

import (
	"fmt"
	"log/slog"

	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/diagnostics"
	"github.com/thomasrohde/mashd/pkg/export"
	"github.com/thomasrohde/mashd/pkg/value"
)

// evalCombine builds a Combination from `left & right`. The identifiers
// the datasets were referenced by become the combination's side names.
func (ev *evaluator) evalCombine(e *ast.CombineExpr) (value.Value, error) {
	left, err := ev.evalDatasetOperand(e.Left, "left")
	if err != nil {
		return nil, err
	}
	right, err := ev.evalDatasetOperand(e.Right, "right")
	if err != nil {
		return nil, err
	}
	return &value.Combination{
		LeftID:  operandName(e.Left, "left"),
		Left:    left,
		RightID: operandName(e.Right, "right"),
		Right:   right,
	}, nil
}

func (ev *evaluator) evalDatasetOperand(expr ast.Expr, side string) (*value.Dataset, error) {
	v, err := ev.evalExpr(expr)
	if err != nil {
		return nil, err
	}
	ds, ok := v.(*value.Dataset)
	if !ok {
		return nil, newError(diagnostics.EType, expr, "%s operand of '&' must be a Dataset, got %s", side, value.TypeName(v))
	}
	return ds, nil
}

func operandName(expr ast.Expr, fallback string) string {
	if id, ok := expr.(*ast.Identifier); ok {
		return id.Name
	}
	return fallback
}

func (ev *evaluator) evalMethodCall(e *ast.MethodCallExpr) (value.Value, error) {
	recv, err := ev.evalExpr(e.Receiver)
	if err != nil {
		return nil, err
	}

	switch r := recv.(type) {
	case *value.Combination:
		return ev.combinationMethod(e, r)
	case *value.Dataset:
		return ev.datasetMethod(e, r)
	}

	if value.IsNull(recv) {
		return nil, newError(diagnostics.EMethod, e, "method '%s' called on Null", e.Method)
	}
	fn := ev.opts.Methods.Get(recv.Kind(), e.Method)
	if fn == nil {
		return nil, newError(diagnostics.EMethod, e, "%s has no method '%s'", value.TypeName(recv), e.Method)
	}
	if _, ok := value.ToScalar(recv); !ok {
		return nil, newError(diagnostics.EMethod, e, "%s has no method '%s'", value.TypeName(recv), e.Method)
	}
	args, err := ev.evalArgs(e.Args)
	if err != nil {
		return nil, err
	}
	res, err := fn.Execute(recv, args)
	if err != nil {
		return nil, wrapError(err, e, e.Method)
	}
	return res, nil
}

func (ev *evaluator) evalArgs(exprs []ast.Expr) ([]value.Value, error) {
	args := make([]value.Value, len(exprs))
	for i, a := range exprs {
		v, err := ev.evalExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (ev *evaluator) combinationMethod(e *ast.MethodCallExpr, c *value.Combination) (value.Value, error) {
	switch e.Method {
	case "match":
		return c, ev.addFieldCondition(e, c, false)
	case "fuzzyMatch":
		return c, ev.addFieldCondition(e, c, true)
	case "functionMatch":
		return c, ev.addFunctionCondition(e, c)
	case "transform":
		if len(e.Args) != 1 {
			return nil, newError(diagnostics.EValidation, e, "transform expects 1 argument, got %d", len(e.Args))
		}
		obj, ok := e.Args[0].(*ast.ObjectExpr)
		if !ok {
			return nil, newError(diagnostics.EValidation, e.Args[0], "transform argument must be an object literal")
		}
		if err := c.SetTransform(obj); err != nil {
			return nil, wrapError(err, e, "transform")
		}
		return c, nil
	case "join":
		return ev.materialize(e, c, TraceJoinStart, TraceJoinEnd)
	case "union":
		return ev.materialize(e, c, TraceUnionStart, TraceUnionEnd)
	}
	return nil, newError(diagnostics.EMethod, e, "Mashd has no method '%s'", e.Method)
}

// addFieldCondition validates match(a.f, b.g) and fuzzyMatch(a.f, b.g, t).
// Arguments given as (right, left) are swapped so the first one always
// reads the left row.
func (ev *evaluator) addFieldCondition(e *ast.MethodCallExpr, c *value.Combination, fuzzy bool) error {
	want := 2
	if fuzzy {
		want = 3
	}
	if len(e.Args) != want {
		return newError(diagnostics.EValidation, e, "%s expects %d arguments, got %d", e.Method, want, len(e.Args))
	}
	args, err := ev.evalArgs(e.Args)
	if err != nil {
		return err
	}

	var fields [2]value.PropertyAccess
	for i := range fields {
		pa, ok := args[i].(value.PropertyAccess)
		if !ok {
			return newError(diagnostics.EValidation, e.Args[i],
				"%s argument %d must be a dataset field, got %s", e.Method, i+1, value.TypeName(args[i]))
		}
		if pa.Identifier != c.LeftID && pa.Identifier != c.RightID {
			return newError(diagnostics.EValidation, e.Args[i],
				"%s argument %d refers to '%s', which is not part of this combination", e.Method, i+1, pa.String())
		}
		fields[i] = pa
	}
	left, right := fields[0], fields[1]
	if c.LeftID != c.RightID && left.Identifier == c.RightID && right.Identifier == c.LeftID {
		left, right = right, left
	}

	if !fuzzy {
		c.AddCondition(value.Exact{Left: left, Right: right})
		return nil
	}
	threshold, ok := args[2].(value.Decimal)
	if !ok {
		return newError(diagnostics.EValidation, e.Args[2],
			"fuzzyMatch threshold must be a Decimal, got %s", value.TypeName(args[2]))
	}
	c.AddCondition(value.Fuzzy{Left: left, Right: right, Threshold: threshold.Value})
	return nil
}

// addFunctionCondition validates functionMatch(fn, args...): the argument
// count must equal fn's arity, and each argument's type must equal the
// declared type of its parameter.
func (ev *evaluator) addFunctionCondition(e *ast.MethodCallExpr, c *value.Combination) error {
	if len(e.Args) == 0 {
		return newError(diagnostics.EValidation, e, "functionMatch expects a function argument")
	}
	args, err := ev.evalArgs(e.Args)
	if err != nil {
		return err
	}
	fn, ok := args[0].(*value.FunctionDefinition)
	if !ok {
		return newError(diagnostics.EValidation, e.Args[0],
			"functionMatch argument 1 must be a function, got %s", value.TypeName(args[0]))
	}

	rest := args[1:]
	if len(rest) != fn.Arity() {
		return newError(diagnostics.EValidation, e, "function '%s' expects %d argument(s), functionMatch passes %d",
			fn.Decl.Name, fn.Arity(), len(rest))
	}
	for i, a := range rest {
		param := fn.Param(i)
		var got ast.Type
		switch av := a.(type) {
		case value.PropertyAccess:
			if av.Identifier != c.LeftID && av.Identifier != c.RightID {
				return newError(diagnostics.EValidation, e.Args[i+1],
					"functionMatch argument '%s' is not part of this combination", av.String())
			}
			got = av.Field.Type
		default:
			got = a.Kind()
		}
		if got != param.Type {
			return newError(diagnostics.EValidation, e.Args[i+1],
				"functionMatch argument %d has type %s, parameter '%s' of '%s' expects %s",
				i+1, got, param.Name, fn.Decl.Name, param.Type)
		}
	}

	c.AddCondition(value.FunctionMatch{Function: fn, Args: rest})
	return nil
}

func (ev *evaluator) materialize(e *ast.MethodCallExpr, c *value.Combination, start, end TraceEventType) (value.Value, error) {
	if len(e.Args) != 0 {
		return nil, newError(diagnostics.EValidation, e, "%s expects no arguments, got %d", e.Method, len(e.Args))
	}
	span := e.Span
	ev.emitWithData(start, &span, map[string]any{
		"left":       c.LeftID,
		"right":      c.RightID,
		"leftRows":   len(c.Left.Rows),
		"rightRows":  len(c.Right.Rows),
		"conditions": len(c.Conditions),
	})

	run := ev.engine.Join
	if e.Method == "union" {
		run = ev.engine.Union
	}
	ds, err := run(c)
	if err != nil {
		return nil, wrapError(err, e, e.Method)
	}

	ev.emitWithData(end, &span, map[string]any{"rows": len(ds.Rows)})
	return ds, nil
}

func (ev *evaluator) datasetMethod(e *ast.MethodCallExpr, ds *value.Dataset) (value.Value, error) {
	args, err := ev.evalArgs(e.Args)
	if err != nil {
		return nil, err
	}
	switch e.Method {
	case "toFile":
		if len(args) != 1 {
			return nil, newError(diagnostics.EValidation, e, "toFile expects 1 argument, got %d", len(args))
		}
		path, ok := args[0].(value.Text)
		if !ok {
			return nil, newError(diagnostics.EType, e.Args[0], "toFile path must be Text, got %s", value.TypeName(args[0]))
		}
		if err := export.WriteCSVFile(path.Value, ds); err != nil {
			return nil, wrapError(err, e, "toFile")
		}
		ev.logger.Info("dataset written", slog.String("path", path.Value), slog.Int("rows", len(ds.Rows)))
		return ds, nil

	case "toTable":
		if len(args) != 0 {
			return nil, newError(diagnostics.EValidation, e, "toTable expects no arguments, got %d", len(args))
		}
		if err := export.WriteTable(ev.opts.Output, ds); err != nil {
			return nil, &RuntimeError{Code: diagnostics.EIO, Message: fmt.Sprintf("toTable: %v", err), Span: &e.Span, Err: err}
		}
		return ds, nil

	case "count":
		if len(args) != 0 {
			return nil, newError(diagnostics.EValidation, e, "count expects no arguments, got %d", len(args))
		}
		return value.Integer{Value: int64(len(ds.Rows))}, nil
	}
	return nil, newError(diagnostics.EMethod, e, "Dataset has no method '%s'", e.Method)
}

// Transform implements engine.Host.
func (ev *evaluator) Transform(rc *value.RowContext, obj *ast.ObjectExpr) (*value.Row, error) {
	pop := ev.pushRowContext(rc)
	defer pop()

	out := value.NewRow()
	for _, p := range obj.Properties {
		v, err := ev.evalExpr(p.Value)
		if err != nil {
			return nil, err
		}
		s, ok := value.ToScalar(v)
		if !ok {
			return nil, newError(diagnostics.EType, p.Value,
				"transform property '%s' must be a scalar, got %s", p.Key, value.TypeName(v))
		}
		out.Set(p.Key, s)
	}
	return out, nil
}

// Call implements engine.Host.
func (ev *evaluator) Call(fn *value.FunctionDefinition, args []value.Value) (value.Value, error) {
	return ev.call(fn, args, fn.Decl)
}
