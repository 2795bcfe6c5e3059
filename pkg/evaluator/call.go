package evaluator

import (
	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/diagnostics"
	"github.com/thomasrohde/mashd/pkg/value"
)

func (ev *evaluator) evalCallExpr(e *ast.CallExpr) (value.Value, error) {
	if e.Func == nil {
		return nil, newError(diagnostics.EUndefined, e, "call to an undeclared function")
	}
	args := make([]value.Value, len(e.Args))
	for i, a := range e.Args {
		v, err := ev.evalExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return ev.call(&value.FunctionDefinition{Decl: e.Func}, args, e)
}

// call binds fn's bound arguments followed by args to its parameters in a
// fresh activation frame and runs the body. The frame is popped on every
// exit path. A body that completes without returning yields Null.
func (ev *evaluator) call(fn *value.FunctionDefinition, args []value.Value, site ast.Node) (value.Value, error) {
	decl := fn.Decl
	all := make([]value.Value, 0, len(fn.Bound)+len(args))
	all = append(all, fn.Bound...)
	all = append(all, args...)
	if len(all) != len(decl.Params) {
		return nil, newError(diagnostics.EType, site,
			"function '%s' expects %d argument(s), got %d", decl.Name, len(decl.Params), len(all))
	}

	frame := make([]value.Value, max(decl.FrameSize, len(decl.Params)))
	for i, p := range decl.Params {
		if p.Slot >= len(frame) {
			grown := make([]value.Value, p.Slot+1)
			copy(grown, frame)
			frame = grown
		}
		frame[p.Slot] = all[i]
	}

	span := site.NodeSpan()
	ev.emitWithData(TraceFnCallStart, &span, map[string]any{"fn": decl.Name})

	ev.frames = append(ev.frames, frame)
	c, err := func() (completion, error) {
		defer func() { ev.frames = ev.frames[:len(ev.frames)-1] }()
		return ev.execBlock(decl.Body)
	}()

	ev.emitWithData(TraceFnCallEnd, &span, map[string]any{"fn": decl.Name})

	if err != nil {
		return nil, err
	}
	if c.outcome == returned && c.value != nil {
		return c.value, nil
	}
	return value.Null{}, nil
}
