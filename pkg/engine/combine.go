package engine

import (
	"fmt"
	"log/slog"

	"github.com/thomasrohde/mashd/pkg/value"
)

// Join pairs every left row with every right row that satisfies all of
// c's conditions. Each pair becomes one output row, either through the
// transform or by merging both rows under "leftId." and "rightId." key
// prefixes. The input datasets are not modified.
func (e *Engine) Join(c *value.Combination) (*value.Dataset, error) {
	left, right := c.Left.Rows, c.Right.Rows

	limit := e.opts.CartesianWarningRows
	if len(c.Conditions) == 0 && len(left) > limit && len(right) > limit {
		e.warn(Warning{
			Message:    fmt.Sprintf("join of %s and %s has no match conditions: cartesian product of %d rows", c.LeftID, c.RightID, len(left)*len(right)),
			LeftRows:   len(left),
			RightRows:  len(right),
			ResultRows: len(left) * len(right),
		})
	}

	var rows []*value.Row
	for _, l := range left {
		for _, r := range right {
			ok, err := e.Matches(c, l, r)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			out, err := e.joinRow(c, l, r)
			if err != nil {
				return nil, err
			}
			rows = append(rows, out)
		}
	}

	e.opts.Logger.Debug("join complete",
		slog.String("left", c.LeftID), slog.String("right", c.RightID),
		slog.Int("conditions", len(c.Conditions)), slog.Int("rows", len(rows)))
	return e.dataset(c, rows), nil
}

// Union collects rows from both sides.
//
// With conditions, every left and right row that takes part in at least
// one matching pair is emitted once, in the order its first match is
// found; rows that match nothing are dropped. Without conditions, all
// rows of both sides are concatenated, which requires compatible schemas
// unless a transform reshapes them.
func (e *Engine) Union(c *value.Combination) (*value.Dataset, error) {
	left, right := c.Left.Rows, c.Right.Rows
	var rows []*value.Row

	if len(c.Conditions) > 0 {
		seenLeft := make(map[int]bool)
		seenRight := make(map[int]bool)
		for i, l := range left {
			for j, r := range right {
				ok, err := e.Matches(c, l, r)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				if !seenLeft[i] {
					seenLeft[i] = true
					out, err := e.unionRow(c, l, nil)
					if err != nil {
						return nil, err
					}
					rows = append(rows, out)
				}
				if !seenRight[j] {
					seenRight[j] = true
					out, err := e.unionRow(c, nil, r)
					if err != nil {
						return nil, err
					}
					rows = append(rows, out)
				}
			}
		}
		return e.dataset(c, rows), nil
	}

	if c.Transform == nil && !c.Left.Schema.Compatible(c.Right.Schema) {
		return nil, fmt.Errorf("union of %s and %s: %w", c.LeftID, c.RightID, ErrIncompatibleSchemas)
	}
	for _, l := range left {
		out, err := e.unionRow(c, l, nil)
		if err != nil {
			return nil, err
		}
		rows = append(rows, out)
	}
	for _, r := range right {
		out, err := e.unionRow(c, nil, r)
		if err != nil {
			return nil, err
		}
		rows = append(rows, out)
	}
	return e.dataset(c, rows), nil
}

func (e *Engine) dataset(c *value.Combination, rows []*value.Row) *value.Dataset {
	if rows == nil {
		rows = []*value.Row{}
	}
	return &value.Dataset{Schema: InferSchema(c, rows), Rows: rows}
}

func (e *Engine) joinRow(c *value.Combination, l, r *value.Row) (*value.Row, error) {
	if c.Transform != nil {
		return e.host.Transform(rowContext(c, l, r), c.Transform)
	}
	out := &value.Row{Cells: make([]value.Cell, 0, l.Len()+r.Len())}
	for _, cl := range l.Cells {
		out.Set(c.LeftID+"."+cl.Column, cl.Value)
	}
	for _, cr := range r.Cells {
		out.Set(c.RightID+"."+cr.Column, cr.Value)
	}
	return out, nil
}

// unionRow emits one side of a union; exactly one of l and r is non-nil.
func (e *Engine) unionRow(c *value.Combination, l, r *value.Row) (*value.Row, error) {
	if c.Transform != nil {
		return e.host.Transform(rowContext(c, l, r), c.Transform)
	}
	src := l
	if src == nil {
		src = r
	}
	cells := make([]value.Cell, len(src.Cells))
	copy(cells, src.Cells)
	return value.NewRow(cells...), nil
}
