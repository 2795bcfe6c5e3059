package stdlib

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/value"
)

var (
	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)
)

func registerTextMethods(r *Registry) {
	r.Register(textFn("toUpper", ast.TypeText, func(s string, args []value.Value) (value.Value, error) {
		if err := arity("toUpper", args, 0); err != nil {
			return nil, err
		}
		return value.Text{Value: upper.String(s)}, nil
	}))
	r.Register(textFn("toLower", ast.TypeText, func(s string, args []value.Value) (value.Value, error) {
		if err := arity("toLower", args, 0); err != nil {
			return nil, err
		}
		return value.Text{Value: lower.String(s)}, nil
	}))
	r.Register(textFn("trim", ast.TypeText, func(s string, args []value.Value) (value.Value, error) {
		if err := arity("trim", args, 0); err != nil {
			return nil, err
		}
		return value.Text{Value: strings.TrimSpace(s)}, nil
	}))
	r.Register(textFn("length", ast.TypeInteger, func(s string, args []value.Value) (value.Value, error) {
		if err := arity("length", args, 0); err != nil {
			return nil, err
		}
		return value.Integer{Value: int64(utf8.RuneCountInString(s))}, nil
	}))
	r.Register(textPredicate("contains", strings.Contains))
	r.Register(textPredicate("startsWith", strings.HasPrefix))
	r.Register(textPredicate("endsWith", strings.HasSuffix))
	r.Register(textFn("replace", ast.TypeText, func(s string, args []value.Value) (value.Value, error) {
		if err := arity("replace", args, 2); err != nil {
			return nil, err
		}
		old, err := textArg("replace", args, 0)
		if err != nil {
			return nil, err
		}
		repl, err := textArg("replace", args, 1)
		if err != nil {
			return nil, err
		}
		return value.Text{Value: strings.ReplaceAll(s, old, repl)}, nil
	}))
}

func textFn(name string, result ast.Type, fn func(s string, args []value.Value) (value.Value, error)) Fn {
	return Fn{
		Name:     name,
		Receiver: ast.TypeText,
		Result:   result,
		Execute: func(recv value.Value, args []value.Value) (value.Value, error) {
			return fn(recv.(value.Text).Value, args)
		},
	}
}

func textPredicate(name string, pred func(s, sub string) bool) Fn {
	return textFn(name, ast.TypeBoolean, func(s string, args []value.Value) (value.Value, error) {
		if err := arity(name, args, 1); err != nil {
			return nil, err
		}
		sub, err := textArg(name, args, 0)
		if err != nil {
			return nil, err
		}
		return value.Boolean{Value: pred(s, sub)}, nil
	})
}
