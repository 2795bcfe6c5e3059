package evaluator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/evaluator"
)

// --- AST builders ---

func intLit(v int64) *ast.IntegerLiteral   { return &ast.IntegerLiteral{Value: v} }
func decLit(v float64) *ast.DecimalLiteral { return &ast.DecimalLiteral{Value: v} }
func textLit(v string) *ast.TextLiteral    { return &ast.TextLiteral{Value: v} }
func boolLit(v bool) *ast.BooleanLiteral   { return &ast.BooleanLiteral{Value: v} }
func nullLit() *ast.NullLiteral            { return &ast.NullLiteral{} }
func typeLit(t ast.Type) *ast.TypeLiteral  { return &ast.TypeLiteral{Value: t} }

func bin(op ast.BinaryOp, l, r ast.Expr) *ast.BinaryExpr {
	return &ast.BinaryExpr{Op: op, Left: l, Right: r}
}

func ref(d *ast.VarDecl) *ast.Identifier {
	return &ast.Identifier{Name: d.Name, Decl: d}
}

func fnRef(fn *ast.FunctionDecl) *ast.Identifier {
	return &ast.Identifier{Name: fn.Name, Func: fn}
}

func prop(obj ast.Expr, name string) *ast.PropertyAccess {
	return &ast.PropertyAccess{Object: obj, Property: name}
}

func method(recv ast.Expr, name string, args ...ast.Expr) *ast.MethodCallExpr {
	return &ast.MethodCallExpr{Receiver: recv, Method: name, Args: args}
}

func call(fn *ast.FunctionDecl, args ...ast.Expr) *ast.CallExpr {
	return &ast.CallExpr{Func: fn, Args: args, Type: fn.ReturnType}
}

type kv struct {
	key string
	val ast.Expr
}

func obj(props ...kv) *ast.ObjectExpr {
	o := &ast.ObjectExpr{}
	for _, p := range props {
		o.Properties = append(o.Properties, &ast.Property{Key: p.key, Value: p.val})
	}
	return o
}

func field(t ast.Type, name string) *ast.ObjectExpr {
	return obj(kv{"type", typeLit(t)}, kv{"name", textLit(name)})
}

func declare(d *ast.VarDecl, v ast.Expr) *ast.VarDeclStmt {
	return &ast.VarDeclStmt{Decl: d, Value: v}
}

func assign(d *ast.VarDecl, v ast.Expr) *ast.AssignStmt {
	return &ast.AssignStmt{Target: ref(d), Value: v}
}

func exprStmt(e ast.Expr) *ast.ExprStmt { return &ast.ExprStmt{Expr: e} }
func ret(e ast.Expr) *ast.ReturnStmt    { return &ast.ReturnStmt{Value: e} }

func program(globals *ast.Scope, stmts ...ast.Stmt) *ast.Program {
	return &ast.Program{Statements: stmts, GlobalCount: globals.Size()}
}

// --- execution helpers ---

func run(t *testing.T, prog *ast.Program) (*evaluator.ExecResult, error) {
	t.Helper()
	return evaluator.Execute(context.Background(), prog, evaluator.ExecOptions{})
}

func mustRun(t *testing.T, prog *ast.Program) *evaluator.ExecResult {
	t.Helper()
	res, err := run(t, prog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

func expectCode(t *testing.T, err error, code string) *evaluator.RuntimeError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	var re *evaluator.RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	if re.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, re.Code, re.Message)
	}
	return re
}
