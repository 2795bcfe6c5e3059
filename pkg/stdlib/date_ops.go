package stdlib

import (
	"strings"

	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/value"
)

// layoutTokens maps the date tokens accepted by format to Go layout
// elements. Longer tokens come first so "yyyy" wins over "yy".
var layoutTokens = strings.NewReplacer(
	"yyyy", "2006",
	"yy", "06",
	"MMMM", "January",
	"MMM", "Jan",
	"MM", "01",
	"dd", "02",
	"M", "1",
	"d", "2",
)

func registerDateMethods(r *Registry) {
	r.Register(datePart("year", func(d value.Date) int64 { return int64(d.Value.Year()) }))
	r.Register(datePart("month", func(d value.Date) int64 { return int64(d.Value.Month()) }))
	r.Register(datePart("day", func(d value.Date) int64 { return int64(d.Value.Day()) }))
	r.Register(Fn{
		Name:     "format",
		Receiver: ast.TypeDate,
		Result:   ast.TypeText,
		Execute: func(recv value.Value, args []value.Value) (value.Value, error) {
			if err := arity("format", args, 1); err != nil {
				return nil, err
			}
			layout, err := textArg("format", args, 0)
			if err != nil {
				return nil, err
			}
			return value.Text{Value: recv.(value.Date).Value.Format(layoutTokens.Replace(layout))}, nil
		},
	})
}

func datePart(name string, part func(value.Date) int64) Fn {
	return Fn{
		Name:     name,
		Receiver: ast.TypeDate,
		Result:   ast.TypeInteger,
		Execute: func(recv value.Value, args []value.Value) (value.Value, error) {
			if err := arity(name, args, 0); err != nil {
				return nil, err
			}
			return value.Integer{Value: part(recv.(value.Date))}, nil
		},
	}
}
