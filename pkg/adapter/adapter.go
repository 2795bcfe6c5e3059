// Package adapter provides the I/O collaborators that turn a dataset source
// into rows, plus the registry the evaluator resolves adapter names against.
package adapter

import (
	"context"
	"errors"
	"sort"

	"github.com/thomasrohde/mashd/pkg/value"
)

var (
	ErrInvalidFilePath = errors.New("invalid file path")
	ErrMissingQuery    = errors.New("adapter requires a query")
	ErrUnknownAdapter  = errors.New("unknown adapter")
)

// DefaultDelimiter separates CSV cells when a dataset does not set one.
const DefaultDelimiter = ","

// Config carries one dataset's source settings.
type Config struct {
	Source    string // file path or connection string
	Query     string // required by SQL-backed adapters
	Delimiter string // CSV only
}

// Adapter reads all rows of a source. Row keys are the column names the
// source reports. Any handle opened by Read is released before it returns.
type Adapter interface {
	Name() string
	RequiresQuery() bool
	Read(ctx context.Context, cfg Config) ([]*value.Row, error)
}

// Registry holds registered adapters.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates a new empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
	}
}

// Register adds an adapter to the registry, replacing one of the same name.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Name()] = a
}

// Get retrieves an adapter by name.
func (r *Registry) Get(name string) (Adapter, bool) {
	if r == nil {
		return nil, false
	}
	a, ok := r.adapters[name]
	return a, ok
}

// All returns all registered adapters.
func (r *Registry) All() map[string]Adapter {
	return r.adapters
}

// Names returns the registered adapter names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.adapters))
	for n := range r.adapters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Restrict returns a registry holding only the adapters named in allow.
// An empty allow list keeps every adapter.
func (r *Registry) Restrict(allow []string) *Registry {
	if len(allow) == 0 {
		return r
	}
	out := NewRegistry()
	for _, name := range allow {
		if a, ok := r.Get(name); ok {
			out.Register(a)
		}
	}
	return out
}

// RegisterDefaults adds all built-in adapters.
func RegisterDefaults(r *Registry) {
	r.Register(CSV{})
	r.Register(SQLite{})
}

// Defaults returns a registry with the built-in adapters.
func Defaults() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
