// Package stdlib provides the Mashd scalar method registry: the methods
// callable on Text, Integer, Decimal and Date values.
package stdlib

import (
	"errors"
	"sort"

	"github.com/thomasrohde/mashd/pkg/ast"
	"github.com/thomasrohde/mashd/pkg/value"
)

// ErrArgs reports a method called with the wrong arguments.
var ErrArgs = errors.New("invalid arguments")

// Fn represents a method on one scalar type.
type Fn struct {
	Name     string
	Receiver ast.Type
	Result   ast.Type
	Execute  func(recv value.Value, args []value.Value) (value.Value, error)
}

// Registry holds registered methods by receiver type.
type Registry struct {
	fns map[ast.Type]map[string]*Fn
}

// NewRegistry creates a new empty method registry.
func NewRegistry() *Registry {
	return &Registry{
		fns: make(map[ast.Type]map[string]*Fn),
	}
}

// Register adds a method to the registry.
func (r *Registry) Register(fn Fn) {
	byName, ok := r.fns[fn.Receiver]
	if !ok {
		byName = make(map[string]*Fn)
		r.fns[fn.Receiver] = byName
	}
	byName[fn.Name] = &fn
}

// Get retrieves the method name of receiver type t, or nil.
func (r *Registry) Get(t ast.Type, name string) *Fn {
	if r == nil {
		return nil
	}
	return r.fns[t][name]
}

// Names returns the sorted method names registered for t.
func (r *Registry) Names(t ast.Type) []string {
	names := make([]string, 0, len(r.fns[t]))
	for n := range r.fns[t] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RegisterDefaults adds all built-in methods.
func RegisterDefaults(r *Registry) {
	registerTextMethods(r)
	registerNumberMethods(r)
	registerDateMethods(r)
}

// Defaults returns a registry with the built-in methods.
func Defaults() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

func textArg(method string, args []value.Value, i int) (string, error) {
	if i >= len(args) {
		return "", argErr(method, "missing argument %d", i+1)
	}
	t, ok := args[i].(value.Text)
	if !ok {
		return "", argErr(method, "argument %d must be Text, got %s", i+1, value.TypeName(args[i]))
	}
	return t.Value, nil
}

func arity(method string, args []value.Value, n int) error {
	if len(args) != n {
		return argErr(method, "expects %d argument(s), got %d", n, len(args))
	}
	return nil
}
