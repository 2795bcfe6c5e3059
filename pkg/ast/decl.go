package ast

// VarDecl is a resolved variable or parameter declaration.
//
// Slot indexes global storage when Local is false, and the activation
// frame of the enclosing function when Local is true.
type VarDecl struct {
	Span  Span
	Name  string
	Type  Type
	Slot  int
	Local bool
}

func (n *VarDecl) Kind() string   { return "VarDecl" }
func (n *VarDecl) NodeSpan() Span { return n.Span }

// Scope hands out storage slots to declarations as they are resolved.
// One global scope serves a whole program; each function body gets its
// own frame scope. Nested blocks share their enclosing scope but receive
// fresh slots, so an inner declaration never overwrites an outer one.
type Scope struct {
	local bool
	next  int
}

// NewGlobalScope returns the allocator for top-level declarations.
func NewGlobalScope() *Scope {
	return &Scope{}
}

// NewFrameScope returns the allocator for one function's parameters and locals.
func NewFrameScope() *Scope {
	return &Scope{local: true}
}

// Declare allocates the next slot for name.
func (s *Scope) Declare(name string, t Type) *VarDecl {
	d := &VarDecl{Name: name, Type: t, Slot: s.next, Local: s.local}
	s.next++
	return d
}

// Size is the number of slots handed out so far.
func (s *Scope) Size() int {
	return s.next
}
