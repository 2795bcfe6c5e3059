package evaluator

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/thomasrohde/mashd/pkg/adapter"
	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/diagnostics"
	"github.com/thomasrohde/mashd/pkg/value"
)

// materializeSchema builds a Schema from `{key: {type: T, name: "col"}}`.
func (ev *evaluator) materializeSchema(e *ast.ObjectExpr) (value.Value, error) {
	v, err := ev.evalObject(e)
	if err != nil {
		return nil, err
	}
	return toSchema(v, e)
}

func toSchema(v value.Value, node ast.Node) (*value.Schema, error) {
	switch s := v.(type) {
	case *value.Schema:
		return s, nil
	case value.Object:
		schema := value.NewSchema()
		for _, p := range s.Props {
			f, err := toSchemaField(p.Key, p.Value, node)
			if err != nil {
				return nil, err
			}
			schema.Add(p.Key, f)
		}
		return schema, nil
	}
	return nil, newError(diagnostics.EValidation, node, "schema must be an object of fields, got %s", value.TypeName(v))
}

func toSchemaField(key string, v value.Value, node ast.Node) (value.SchemaField, error) {
	if f, ok := v.(value.SchemaField); ok {
		return f, nil
	}
	obj, ok := v.(value.Object)
	if !ok {
		return value.SchemaField{}, newError(diagnostics.EValidation, node,
			"schema field '%s' must be an object with 'type' and 'name', got %s", key, value.TypeName(v))
	}

	var f value.SchemaField
	switch t := propOrNull(obj, "type").(type) {
	case value.Type:
		f.Type = t.Value
	case value.Text:
		parsed, ok := ast.ParseType(t.Value)
		if !ok {
			return f, newError(diagnostics.EValidation, node, "schema field '%s' has unknown type '%s'", key, t.Value)
		}
		f.Type = parsed
	default:
		return f, newError(diagnostics.EValidation, node, "schema field '%s' is missing its 'type'", key)
	}
	if !f.Type.IsScalar() {
		return f, newError(diagnostics.EValidation, node, "schema field '%s' must have a scalar type, got %s", key, f.Type)
	}

	name, ok := propOrNull(obj, "name").(value.Text)
	if !ok || strings.TrimSpace(name.Value) == "" {
		return f, newError(diagnostics.EValidation, node, "schema field '%s' is missing its 'name'", key)
	}
	f.Name = name.Value
	return f, nil
}

func propOrNull(obj value.Object, key string) value.Value {
	if v, ok := obj.Get(key); ok {
		return v
	}
	return value.Null{}
}

// requiredText returns the non-blank Text property key of obj.
func requiredText(obj value.Object, key string, node ast.Node) (string, error) {
	v := propOrNull(obj, key)
	t, ok := v.(value.Text)
	if !ok || strings.TrimSpace(t.Value) == "" {
		if value.IsNull(v) || ok {
			return "", newError(diagnostics.EValidation, node, "dataset property '%s' is required", key)
		}
		return "", newError(diagnostics.EValidation, node, "dataset property '%s' must be Text, got %s", key, value.TypeName(v))
	}
	return t.Value, nil
}

func optionalText(obj value.Object, key string, node ast.Node) (string, error) {
	v := propOrNull(obj, key)
	if value.IsNull(v) {
		return "", nil
	}
	t, ok := v.(value.Text)
	if !ok {
		return "", newError(diagnostics.EValidation, node, "dataset property '%s' must be Text, got %s", key, value.TypeName(v))
	}
	return t.Value, nil
}

// materializeDataset validates a dataset declaration, reads its rows
// through the named adapter and loads them against the schema.
func (ev *evaluator) materializeDataset(e *ast.ObjectExpr) (value.Value, error) {
	v, err := ev.evalObject(e)
	if err != nil {
		return nil, err
	}
	obj := v.(value.Object)

	schemaVal := propOrNull(obj, "schema")
	if value.IsNull(schemaVal) {
		return nil, newError(diagnostics.EValidation, e, "dataset property 'schema' is required")
	}
	schema, err := toSchema(schemaVal, e)
	if err != nil {
		return nil, err
	}

	ds := &value.Dataset{Schema: schema}
	if ds.Source, err = requiredText(obj, "source", e); err != nil {
		return nil, err
	}
	if ds.Adapter, err = requiredText(obj, "adapter", e); err != nil {
		return nil, err
	}
	if ds.Query, err = optionalText(obj, "query", e); err != nil {
		return nil, err
	}
	if ds.Delimiter, err = optionalText(obj, "delimiter", e); err != nil {
		return nil, err
	}
	if ds.Delimiter == "" {
		ds.Delimiter = ev.opts.DefaultDelimiter
	}

	a, ok := ev.opts.Adapters.Get(ds.Adapter)
	if !ok {
		return nil, newError(diagnostics.EValidation, e, "unsupported adapter '%s' (available: %s)",
			ds.Adapter, strings.Join(ev.opts.Adapters.Names(), ", "))
	}
	if a.RequiresQuery() && strings.TrimSpace(ds.Query) == "" {
		return nil, newError(diagnostics.EValidation, e, "dataset property 'query' is required by adapter '%s'", ds.Adapter)
	}

	if err := ev.loadRows(ds, a, e); err != nil {
		return nil, err
	}
	return ds, nil
}

func (ev *evaluator) loadRows(ds *value.Dataset, a adapter.Adapter, node ast.Node) error {
	span := node.NodeSpan()
	ev.emitWithData(TraceDatasetLoadStart, &span, map[string]any{"adapter": ds.Adapter, "source": ds.Source})

	rows, err := a.Read(ev.ctx, adapter.Config{Source: ds.Source, Query: ds.Query, Delimiter: ds.Delimiter})
	if err != nil {
		return &RuntimeError{
			Code:    diagnostics.EDatasetLoad,
			Message: fmt.Sprintf("failed to load dataset from '%s': %v", ds.Source, err),
			Span:    &span,
			Err:     err,
		}
	}
	if err := ds.Load(rows); err != nil {
		return wrapError(err, node, fmt.Sprintf("dataset '%s'", ds.Source))
	}

	ev.emitWithData(TraceDatasetLoadEnd, &span, map[string]any{"source": ds.Source, "rows": len(ds.Rows)})
	ev.logger.Debug("dataset loaded",
		slog.String("adapter", ds.Adapter),
		slog.String("source", ds.Source),
		slog.Int("rows", len(ds.Rows)))
	return nil
}
