package pipeline

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/mashd/pkg/ast"
)

var (
	identRE    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	fieldRefRE = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*)$`)
)

type datasetDecl struct {
	decl   *ast.VarDecl
	fields map[string]ast.Type
}

type builder struct {
	file    string
	dir     string
	globals *ast.Scope
	stmts   []ast.Stmt

	schemas  map[string]*ast.VarDecl
	fields   map[string]map[string]ast.Type // schema name -> field types
	datasets map[string]*datasetDecl

	left, right string
	mashd       *ast.VarDecl
	result      *ast.VarDecl
}

func newBuilder(file string) *builder {
	b := &builder{
		file:     file,
		globals:  ast.NewGlobalScope(),
		schemas:  make(map[string]*ast.VarDecl),
		fields:   make(map[string]map[string]ast.Type),
		datasets: make(map[string]*datasetDecl),
	}
	if file != "" {
		b.dir = filepath.Dir(file)
	}
	return b
}

func (b *builder) span(n *yaml.Node) ast.Span {
	return ast.Span{
		File:      b.file,
		StartLine: n.Line,
		StartCol:  n.Column,
		EndLine:   n.Line,
		EndCol:    n.Column + len(n.Value),
		Text:      n.Value,
	}
}

func (b *builder) errorf(path string, n *yaml.Node, format string, args ...any) *Error {
	span := b.span(n)
	return &Error{Path: path, Message: fmt.Sprintf(format, args...), Span: &span}
}

func (b *builder) expectKind(path string, n *yaml.Node, kind yaml.Kind) error {
	if n.Kind != kind {
		want := kindName(&yaml.Node{Kind: kind})
		return b.errorf(path, n, "expected a %s, got a %s", want, kindName(n))
	}
	return nil
}

func (b *builder) checkKeys(path string, n *yaml.Node, allowed ...string) error {
	for _, e := range entries(n) {
		ok := false
		for _, a := range allowed {
			if e.key.Value == a {
				ok = true
				break
			}
		}
		if !ok {
			return b.errorf(join(path, e.key.Value), e.key, "unknown key (expected one of: %s)", strings.Join(allowed, ", "))
		}
	}
	return nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func (b *builder) text(n *yaml.Node) *ast.TextLiteral {
	return &ast.TextLiteral{Span: b.span(n), Value: n.Value}
}

func (b *builder) program(root *yaml.Node) *ast.Program {
	span := b.span(root)
	stmts := append(b.stmts, &ast.ExprStmt{
		Span: span,
		Expr: &ast.Identifier{Span: span, Name: b.result.Name, Decl: b.result},
	})
	return &ast.Program{Span: span, Statements: stmts, GlobalCount: b.globals.Size()}
}

func (b *builder) document(root *yaml.Node) error {
	if err := b.expectKind("", root, yaml.MappingNode); err != nil {
		return err
	}
	if err := b.checkKeys("", root, "schemas", "datasets", "combine", "output"); err != nil {
		return err
	}

	if n := lookup(root, "schemas"); n != nil {
		if err := b.schemaSection(n); err != nil {
			return err
		}
	}
	n := lookup(root, "datasets")
	if n == nil {
		return b.errorf("datasets", root, "missing required section")
	}
	if err := b.datasetSection(n); err != nil {
		return err
	}
	n = lookup(root, "combine")
	if n == nil {
		return b.errorf("combine", root, "missing required section")
	}
	if err := b.combineSection(n); err != nil {
		return err
	}
	if n := lookup(root, "output"); n != nil {
		return b.outputSection(n)
	}
	return nil
}

// declare allocates a global for name, rejecting names used twice across
// schemas and datasets.
func (b *builder) declare(path string, key *yaml.Node, t ast.Type) (*ast.VarDecl, error) {
	name := key.Value
	if !identRE.MatchString(name) {
		return nil, b.errorf(path, key, "'%s' is not a valid name", name)
	}
	if _, ok := b.schemas[name]; ok {
		return nil, b.errorf(path, key, "'%s' is already declared as a schema", name)
	}
	if _, ok := b.datasets[name]; ok {
		return nil, b.errorf(path, key, "'%s' is already declared as a dataset", name)
	}
	d := b.globals.Declare(name, t)
	d.Span = b.span(key)
	return d, nil
}

// --- schemas ---

func (b *builder) schemaSection(n *yaml.Node) error {
	if err := b.expectKind("schemas", n, yaml.MappingNode); err != nil {
		return err
	}
	for _, e := range entries(n) {
		path := join("schemas", e.key.Value)
		decl, err := b.declare(path, e.key, ast.TypeSchema)
		if err != nil {
			return err
		}
		obj, fields, err := b.schemaObject(path, e.value)
		if err != nil {
			return err
		}
		b.schemas[decl.Name] = decl
		b.fields[decl.Name] = fields
		b.stmts = append(b.stmts, &ast.VarDeclStmt{Span: b.span(e.key), Decl: decl, Value: obj})
	}
	return nil
}

// schemaObject builds `{key: {type: T, name: "column"}, ...}`. A field may
// be written as just its type name, and name defaults to the field key.
func (b *builder) schemaObject(path string, n *yaml.Node) (*ast.ObjectExpr, map[string]ast.Type, error) {
	if err := b.expectKind(path, n, yaml.MappingNode); err != nil {
		return nil, nil, err
	}
	if len(n.Content) == 0 {
		return nil, nil, b.errorf(path, n, "schema has no fields")
	}

	obj := &ast.ObjectExpr{Span: b.span(n)}
	fields := make(map[string]ast.Type)
	for _, e := range entries(n) {
		fpath := join(path, e.key.Value)
		typeNode, nameNode := e.value, e.key
		switch e.value.Kind {
		case yaml.ScalarNode:
		case yaml.MappingNode:
			if err := b.checkKeys(fpath, e.value, "type", "name"); err != nil {
				return nil, nil, err
			}
			typeNode = lookup(e.value, "type")
			if typeNode == nil {
				return nil, nil, b.errorf(fpath, e.value, "field is missing its 'type'")
			}
			if nn := lookup(e.value, "name"); nn != nil {
				nameNode = nn
			}
		default:
			return nil, nil, b.errorf(fpath, e.value, "expected a type name or a mapping, got a %s", kindName(e.value))
		}

		t, ok := ast.ParseType(typeNode.Value)
		if !ok || !t.IsScalar() {
			return nil, nil, b.errorf(join(fpath, "type"), typeNode,
				"'%s' is not a field type (expected Integer, Decimal, Text, Boolean or Date)", typeNode.Value)
		}
		if strings.TrimSpace(nameNode.Value) == "" {
			return nil, nil, b.errorf(join(fpath, "name"), nameNode, "field name must not be empty")
		}

		fields[e.key.Value] = t
		obj.Properties = append(obj.Properties, &ast.Property{
			Span: b.span(e.key),
			Key:  e.key.Value,
			Value: &ast.ObjectExpr{Span: b.span(e.value), Properties: []*ast.Property{
				{Span: b.span(typeNode), Key: "type", Value: &ast.TypeLiteral{Span: b.span(typeNode), Value: t}},
				{Span: b.span(nameNode), Key: "name", Value: b.text(nameNode)},
			}},
		})
	}
	return obj, fields, nil
}

// --- datasets ---

func (b *builder) datasetSection(n *yaml.Node) error {
	if err := b.expectKind("datasets", n, yaml.MappingNode); err != nil {
		return err
	}
	if len(n.Content) == 0 {
		return b.errorf("datasets", n, "no datasets declared")
	}
	for _, e := range entries(n) {
		path := join("datasets", e.key.Value)
		decl, err := b.declare(path, e.key, ast.TypeDataset)
		if err != nil {
			return err
		}
		obj, fields, err := b.datasetObject(path, e.value)
		if err != nil {
			return err
		}
		b.datasets[decl.Name] = &datasetDecl{decl: decl, fields: fields}
		b.stmts = append(b.stmts, &ast.VarDeclStmt{Span: b.span(e.key), Decl: decl, Value: obj})
	}
	return nil
}

func (b *builder) datasetObject(path string, n *yaml.Node) (*ast.ObjectExpr, map[string]ast.Type, error) {
	if err := b.expectKind(path, n, yaml.MappingNode); err != nil {
		return nil, nil, err
	}
	if err := b.checkKeys(path, n, "schema", "adapter", "source", "query", "delimiter"); err != nil {
		return nil, nil, err
	}
	obj := &ast.ObjectExpr{Span: b.span(n)}

	sn := lookup(n, "schema")
	if sn == nil {
		return nil, nil, b.errorf(path, n, "missing required key 'schema'")
	}
	var (
		schemaExpr ast.Expr
		fields     map[string]ast.Type
	)
	switch sn.Kind {
	case yaml.ScalarNode:
		decl, ok := b.schemas[sn.Value]
		if !ok {
			return nil, nil, b.errorf(join(path, "schema"), sn, "unknown schema '%s'", sn.Value)
		}
		schemaExpr = &ast.Identifier{Span: b.span(sn), Name: sn.Value, Decl: decl}
		fields = b.fields[sn.Value]
	default:
		inline, f, err := b.schemaObject(join(path, "schema"), sn)
		if err != nil {
			return nil, nil, err
		}
		schemaExpr, fields = inline, f
	}
	obj.Properties = append(obj.Properties, &ast.Property{Span: b.span(sn), Key: "schema", Value: schemaExpr})

	adapter, err := b.scalar(path, n, "adapter", true)
	if err != nil {
		return nil, nil, err
	}
	source, err := b.scalar(path, n, "source", true)
	if err != nil {
		return nil, nil, err
	}
	obj.Properties = append(obj.Properties,
		&ast.Property{Span: b.span(adapter), Key: "adapter", Value: b.text(adapter)},
		&ast.Property{Span: b.span(source), Key: "source", Value: &ast.TextLiteral{
			Span:  b.span(source),
			Value: b.resolveSource(adapter.Value, source.Value),
		}},
	)
	for _, key := range []string{"query", "delimiter"} {
		v, err := b.scalar(path, n, key, false)
		if err != nil {
			return nil, nil, err
		}
		if v != nil {
			obj.Properties = append(obj.Properties, &ast.Property{Span: b.span(v), Key: key, Value: b.text(v)})
		}
	}
	return obj, fields, nil
}

// scalar returns the scalar bound to key in mapping n.
func (b *builder) scalar(path string, n *yaml.Node, key string, required bool) (*yaml.Node, error) {
	v := lookup(n, key)
	if v == nil {
		if required {
			return nil, b.errorf(path, n, "missing required key '%s'", key)
		}
		return nil, nil
	}
	if v.Kind != yaml.ScalarNode {
		return nil, b.errorf(join(path, key), v, "expected a scalar, got a %s", kindName(v))
	}
	if required && strings.TrimSpace(v.Value) == "" {
		return nil, b.errorf(join(path, key), v, "must not be empty")
	}
	return v, nil
}

// resolveSource makes file sources relative to the document's directory.
// SQLite in-memory and URI sources are left alone.
func (b *builder) resolveSource(adapter, src string) string {
	if adapter == "sqlite" && (strings.HasPrefix(src, ":") || strings.HasPrefix(src, "file:")) {
		return src
	}
	return b.resolve(src)
}

func (b *builder) resolve(p string) string {
	if b.dir == "" || p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.dir, p)
}

// --- combine ---

func (b *builder) combineSection(n *yaml.Node) error {
	const path = "combine"
	if err := b.expectKind(path, n, yaml.MappingNode); err != nil {
		return err
	}
	if err := b.checkKeys(path, n, "left", "right", "match", "transform", "operation"); err != nil {
		return err
	}

	var sides [2]*ast.Identifier
	for i, key := range []string{"left", "right"} {
		v, err := b.scalar(path, n, key, true)
		if err != nil {
			return err
		}
		ds, ok := b.datasets[v.Value]
		if !ok {
			return b.errorf(join(path, key), v, "unknown dataset '%s'", v.Value)
		}
		sides[i] = &ast.Identifier{Span: b.span(v), Name: v.Value, Decl: ds.decl}
	}
	b.left, b.right = sides[0].Name, sides[1].Name

	b.mashd = b.globals.Declare("mashd", ast.TypeMashd)
	span := b.span(n)
	b.stmts = append(b.stmts, &ast.VarDeclStmt{
		Span:  span,
		Decl:  b.mashd,
		Value: &ast.CombineExpr{Span: span, Left: sides[0], Right: sides[1]},
	})

	if m := lookup(n, "match"); m != nil {
		if err := b.matchList(join(path, "match"), m); err != nil {
			return err
		}
	}
	if t := lookup(n, "transform"); t != nil {
		tpath := join(path, "transform")
		if err := b.expectKind(tpath, t, yaml.MappingNode); err != nil {
			return err
		}
		obj := &ast.ObjectExpr{Span: b.span(t)}
		for _, e := range entries(t) {
			v, err := b.expr(join(tpath, e.key.Value), e.value)
			if err != nil {
				return err
			}
			obj.Properties = append(obj.Properties, &ast.Property{Span: b.span(e.key), Key: e.key.Value, Value: v})
		}
		if len(obj.Properties) == 0 {
			return b.errorf(tpath, t, "transform has no columns")
		}
		b.stmts = append(b.stmts, b.onMashd(t, "transform", ast.TypeMashd, obj))
	}

	op := "join"
	opNode := n
	if v, err := b.scalar(path, n, "operation", false); err != nil {
		return err
	} else if v != nil {
		if v.Value != "join" && v.Value != "union" {
			return b.errorf(join(path, "operation"), v, "expected join or union, got '%s'", v.Value)
		}
		op, opNode = v.Value, v
	}
	b.result = b.globals.Declare("result", ast.TypeDataset)
	b.stmts = append(b.stmts, &ast.VarDeclStmt{
		Span:  b.span(opNode),
		Decl:  b.result,
		Value: b.method(opNode, &ast.Identifier{Span: span, Name: b.mashd.Name, Decl: b.mashd}, op, ast.TypeDataset),
	})
	return nil
}

func (b *builder) method(n *yaml.Node, recv ast.Expr, name string, t ast.Type, args ...ast.Expr) *ast.MethodCallExpr {
	return &ast.MethodCallExpr{Span: b.span(n), Receiver: recv, Method: name, Args: args, Type: t}
}

func (b *builder) onMashd(n *yaml.Node, name string, t ast.Type, args ...ast.Expr) ast.Stmt {
	recv := &ast.Identifier{Span: b.span(n), Name: b.mashd.Name, Decl: b.mashd}
	return &ast.ExprStmt{Span: b.span(n), Expr: b.method(n, recv, name, t, args...)}
}

func (b *builder) matchList(path string, n *yaml.Node) error {
	if err := b.expectKind(path, n, yaml.SequenceNode); err != nil {
		return err
	}
	for i, item := range n.Content {
		ipath := fmt.Sprintf("%s[%d]", path, i)
		if err := b.expectKind(ipath, item, yaml.MappingNode); err != nil {
			return err
		}
		if err := b.checkKeys(ipath, item, "exact", "fuzzy", "threshold"); err != nil {
			return err
		}
		exact, fuzzy := lookup(item, "exact"), lookup(item, "fuzzy")
		switch {
		case exact != nil && fuzzy == nil:
			if lookup(item, "threshold") != nil {
				return b.errorf(ipath, item, "threshold only applies to fuzzy conditions")
			}
			args, err := b.fieldPair(join(ipath, "exact"), exact)
			if err != nil {
				return err
			}
			b.stmts = append(b.stmts, b.onMashd(exact, "match", ast.TypeMashd, args...))

		case fuzzy != nil && exact == nil:
			args, err := b.fieldPair(join(ipath, "fuzzy"), fuzzy)
			if err != nil {
				return err
			}
			threshold, err := b.threshold(ipath, item)
			if err != nil {
				return err
			}
			b.stmts = append(b.stmts, b.onMashd(fuzzy, "fuzzyMatch", ast.TypeMashd, append(args, threshold)...))

		default:
			return b.errorf(ipath, item, "condition needs exactly one of 'exact' or 'fuzzy'")
		}
	}
	return nil
}

func (b *builder) fieldPair(path string, n *yaml.Node) ([]ast.Expr, error) {
	if n.Kind != yaml.SequenceNode || len(n.Content) != 2 {
		return nil, b.errorf(path, n, "expected a pair of fields, e.g. [a.id, b.id]")
	}
	out := make([]ast.Expr, 2)
	for i, item := range n.Content {
		ipath := fmt.Sprintf("%s[%d]", path, i)
		pa, ok, err := b.fieldRef(ipath, item)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, b.errorf(ipath, item, "'%s' is not a field of %s or %s", item.Value, b.left, b.right)
		}
		out[i] = pa
	}
	return out, nil
}

func (b *builder) threshold(path string, item *yaml.Node) (ast.Expr, error) {
	v := lookup(item, "threshold")
	if v == nil {
		return nil, b.errorf(path, item, "fuzzy condition is missing its 'threshold'")
	}
	path = join(path, "threshold")
	if v.Kind != yaml.ScalarNode || (v.Tag != "!!float" && v.Tag != "!!int") {
		return nil, b.errorf(path, v, "expected a number between 0 and 1")
	}
	f, err := strconv.ParseFloat(v.Value, 64)
	if err != nil || f < 0 || f > 1 {
		return nil, b.errorf(path, v, "expected a number between 0 and 1, got %s", v.Value)
	}
	return &ast.DecimalLiteral{Span: b.span(v), Value: f}, nil
}

// fieldRef parses `dataset.field` for one of the combined datasets. It
// reports false for text that does not have that shape or names no
// dataset at all.
func (b *builder) fieldRef(path string, n *yaml.Node) (*ast.PropertyAccess, bool, error) {
	if n.Kind != yaml.ScalarNode || n.Tag != "!!str" {
		return nil, false, nil
	}
	m := fieldRefRE.FindStringSubmatch(n.Value)
	if m == nil {
		return nil, false, nil
	}
	id, key := m[1], m[2]
	ds, ok := b.datasets[id]
	if !ok {
		return nil, false, nil
	}
	if id != b.left && id != b.right {
		return nil, false, b.errorf(path, n, "dataset '%s' is not part of the combination", id)
	}
	t, ok := ds.fields[key]
	if !ok {
		return nil, false, b.errorf(path, n, "dataset '%s' has no field '%s'", id, key)
	}
	span := b.span(n)
	return &ast.PropertyAccess{
		Span:      span,
		Object:    &ast.Identifier{Span: span, Name: id, Decl: ds.decl},
		Property:  key,
		FieldType: t,
	}, true, nil
}

// expr builds a transform expression:
//
//	a.id                       field of a combined dataset
//	42, 1.5, true, 2024-01-31  literals; other text is a Text literal
//	[a.id, b.id, 0]            first value that is not null or blank
//	{concat: [a.first, " ", a.last]}
//	{method: toUpper, on: a.name, args: [...]}
func (b *builder) expr(path string, n *yaml.Node) (ast.Expr, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return b.literal(path, n)

	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			return nil, b.errorf(path, n, "fallback list is empty")
		}
		var out ast.Expr
		for i, item := range n.Content {
			e, err := b.expr(fmt.Sprintf("%s[%d]", path, i), item)
			if err != nil {
				return nil, err
			}
			if out == nil {
				out = e
				continue
			}
			out = &ast.BinaryExpr{Span: b.span(item), Op: ast.OpNullish, Left: out, Right: e}
		}
		return out, nil

	case yaml.MappingNode:
		if c := lookup(n, "concat"); c != nil {
			if err := b.checkKeys(path, n, "concat"); err != nil {
				return nil, err
			}
			return b.concat(join(path, "concat"), c)
		}
		if lookup(n, "method") != nil {
			return b.methodCall(path, n)
		}
		return nil, b.errorf(path, n, "expected 'concat' or 'method'")
	}
	return nil, b.errorf(path, n, "unsupported %s", kindName(n))
}

func (b *builder) literal(path string, n *yaml.Node) (ast.Expr, error) {
	span := b.span(n)
	switch n.Tag {
	case "!!int":
		v, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, b.errorf(path, n, "invalid integer %s", n.Value)
		}
		return &ast.IntegerLiteral{Span: span, Value: v}, nil
	case "!!float":
		v, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, b.errorf(path, n, "invalid decimal %s", n.Value)
		}
		return &ast.DecimalLiteral{Span: span, Value: v}, nil
	case "!!bool":
		var v bool
		if err := n.Decode(&v); err != nil {
			return nil, b.errorf(path, n, "invalid boolean %s", n.Value)
		}
		return &ast.BooleanLiteral{Span: span, Value: v}, nil
	case "!!null":
		return &ast.NullLiteral{Span: span}, nil
	case "!!timestamp":
		var v time.Time
		if err := n.Decode(&v); err != nil {
			return nil, b.errorf(path, n, "invalid date %s", n.Value)
		}
		return &ast.DateLiteral{Span: span, Value: v}, nil
	}

	pa, ok, err := b.fieldRef(path, n)
	if err != nil {
		return nil, err
	}
	if ok {
		return pa, nil
	}
	return b.text(n), nil
}

func (b *builder) concat(path string, n *yaml.Node) (ast.Expr, error) {
	if n.Kind != yaml.SequenceNode || len(n.Content) < 2 {
		return nil, b.errorf(path, n, "expected a list of at least two values")
	}
	var out ast.Expr
	for i, item := range n.Content {
		e, err := b.expr(fmt.Sprintf("%s[%d]", path, i), item)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = e
			continue
		}
		out = &ast.BinaryExpr{Span: b.span(item), Op: ast.OpAdd, Left: out, Right: e}
	}
	return out, nil
}

func (b *builder) methodCall(path string, n *yaml.Node) (ast.Expr, error) {
	if err := b.checkKeys(path, n, "method", "on", "args"); err != nil {
		return nil, err
	}
	name, err := b.scalar(path, n, "method", true)
	if err != nil {
		return nil, err
	}
	on := lookup(n, "on")
	if on == nil {
		return nil, b.errorf(path, n, "method call is missing its receiver 'on'")
	}
	recv, err := b.expr(join(path, "on"), on)
	if err != nil {
		return nil, err
	}

	var args []ast.Expr
	if a := lookup(n, "args"); a != nil {
		apath := join(path, "args")
		if err := b.expectKind(apath, a, yaml.SequenceNode); err != nil {
			return nil, err
		}
		for i, item := range a.Content {
			e, err := b.expr(fmt.Sprintf("%s[%d]", apath, i), item)
			if err != nil {
				return nil, err
			}
			args = append(args, e)
		}
	}
	return b.method(name, recv, name.Value, ast.TypeUnknown, args...), nil
}

// --- output ---

func (b *builder) outputSection(n *yaml.Node) error {
	const path = "output"
	if err := b.expectKind(path, n, yaml.MappingNode); err != nil {
		return err
	}
	if err := b.checkKeys(path, n, "file", "table"); err != nil {
		return err
	}
	result := func(at *yaml.Node) ast.Expr {
		return &ast.Identifier{Span: b.span(at), Name: b.result.Name, Decl: b.result}
	}

	if f, err := b.scalar(path, n, "file", false); err != nil {
		return err
	} else if f != nil {
		file := &ast.TextLiteral{Span: b.span(f), Value: b.resolve(f.Value)}
		b.stmts = append(b.stmts, &ast.ExprStmt{Span: b.span(f), Expr: b.method(f, result(f), "toFile", ast.TypeDataset, file)})
	}
	if t := lookup(n, "table"); t != nil {
		var on bool
		if t.Kind != yaml.ScalarNode || t.Tag != "!!bool" || t.Decode(&on) != nil {
			return b.errorf(join(path, "table"), t, "expected true or false")
		}
		if on {
			b.stmts = append(b.stmts, &ast.ExprStmt{Span: b.span(t), Expr: b.method(t, result(t), "toTable", ast.TypeDataset)})
		}
	}
	return nil
}
