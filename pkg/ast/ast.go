// Package ast defines the Mashd AST node types.
//
// Trees handed to the evaluator are already name-resolved and type-checked:
// identifiers point at their declarations, declarations carry a storage slot,
// and calls point at the function they invoke.
package ast

import "time"

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
	Text      string `json:"text,omitempty"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// BinaryOp represents a binary operator.
type BinaryOp string

const (
	OpAdd     BinaryOp = "+"
	OpSub     BinaryOp = "-"
	OpMul     BinaryOp = "*"
	OpDiv     BinaryOp = "/"
	OpMod     BinaryOp = "%"
	OpGt      BinaryOp = ">"
	OpLt      BinaryOp = "<"
	OpGtEq    BinaryOp = ">="
	OpLtEq    BinaryOp = "<="
	OpEqEq    BinaryOp = "=="
	OpNeq     BinaryOp = "!="
	OpAnd     BinaryOp = "&&"
	OpOr      BinaryOp = "||"
	OpNullish BinaryOp = "??"
)

// IsArithmetic reports whether op is one of + - * / %.
func (op BinaryOp) IsArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	}
	return false
}

// IsComparison reports whether op yields a Boolean from two operands.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpGt, OpLt, OpGtEq, OpLtEq, OpEqEq, OpNeq, OpAnd, OpOr:
		return true
	}
	return false
}

// UnaryOp represents a unary operator.
type UnaryOp string

const (
	OpNeg UnaryOp = "-"
	OpNot UnaryOp = "!"
)

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- Literal Expressions ---

type IntegerLiteral struct {
	Span  Span
	Value int64
}

func (n *IntegerLiteral) Kind() string   { return "IntegerLiteral" }
func (n *IntegerLiteral) NodeSpan() Span { return n.Span }
func (n *IntegerLiteral) exprNode()      {}

type DecimalLiteral struct {
	Span  Span
	Value float64
}

func (n *DecimalLiteral) Kind() string   { return "DecimalLiteral" }
func (n *DecimalLiteral) NodeSpan() Span { return n.Span }
func (n *DecimalLiteral) exprNode()      {}

type TextLiteral struct {
	Span  Span
	Value string
}

func (n *TextLiteral) Kind() string   { return "TextLiteral" }
func (n *TextLiteral) NodeSpan() Span { return n.Span }
func (n *TextLiteral) exprNode()      {}

type BooleanLiteral struct {
	Span  Span
	Value bool
}

func (n *BooleanLiteral) Kind() string   { return "BooleanLiteral" }
func (n *BooleanLiteral) NodeSpan() Span { return n.Span }
func (n *BooleanLiteral) exprNode()      {}

type DateLiteral struct {
	Span  Span
	Value time.Time
}

func (n *DateLiteral) Kind() string   { return "DateLiteral" }
func (n *DateLiteral) NodeSpan() Span { return n.Span }
func (n *DateLiteral) exprNode()      {}

type NullLiteral struct {
	Span Span
}

func (n *NullLiteral) Kind() string   { return "NullLiteral" }
func (n *NullLiteral) NodeSpan() Span { return n.Span }
func (n *NullLiteral) exprNode()      {}

// TypeLiteral is a bare type name used as a value, e.g. the
// `type: Integer` entry of a schema field.
type TypeLiteral struct {
	Span  Span
	Value Type
}

func (n *TypeLiteral) Kind() string   { return "TypeLiteral" }
func (n *TypeLiteral) NodeSpan() Span { return n.Span }
func (n *TypeLiteral) exprNode()      {}

// --- Objects ---

type Property struct {
	Span  Span
	Key   string
	Value Expr
}

func (n *Property) Kind() string   { return "Property" }
func (n *Property) NodeSpan() Span { return n.Span }

// ObjectExpr is an object literal. Property order is significant.
type ObjectExpr struct {
	Span       Span
	Properties []*Property
}

func (n *ObjectExpr) Kind() string   { return "ObjectExpr" }
func (n *ObjectExpr) NodeSpan() Span { return n.Span }
func (n *ObjectExpr) exprNode()      {}

// Get returns the expression bound to key, or nil.
func (n *ObjectExpr) Get(key string) Expr {
	for _, p := range n.Properties {
		if p.Key == key {
			return p.Value
		}
	}
	return nil
}

// --- Identifiers ---

// Identifier references either a variable declaration or a function.
// Exactly one of Decl and Func is set after resolution.
type Identifier struct {
	Span Span
	Name string
	Decl *VarDecl
	Func *FunctionDecl
}

func (n *Identifier) Kind() string   { return "Identifier" }
func (n *Identifier) NodeSpan() Span { return n.Span }
func (n *Identifier) exprNode()      {}

// PropertyAccess is `object.property`. When Object names a dataset,
// FieldType holds the resolved schema field type.
type PropertyAccess struct {
	Span      Span
	Object    Expr
	Property  string
	FieldType Type
}

func (n *PropertyAccess) Kind() string   { return "PropertyAccess" }
func (n *PropertyAccess) NodeSpan() Span { return n.Span }
func (n *PropertyAccess) exprNode()      {}

// --- Operators ---

type BinaryExpr struct {
	Span  Span
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *BinaryExpr) Kind() string   { return "BinaryExpr" }
func (n *BinaryExpr) NodeSpan() Span { return n.Span }
func (n *BinaryExpr) exprNode()      {}

type UnaryExpr struct {
	Span    Span
	Op      UnaryOp
	Operand Expr
}

func (n *UnaryExpr) Kind() string   { return "UnaryExpr" }
func (n *UnaryExpr) NodeSpan() Span { return n.Span }
func (n *UnaryExpr) exprNode()      {}

type TernaryExpr struct {
	Span Span
	Cond Expr
	Then Expr
	Else Expr
}

func (n *TernaryExpr) Kind() string   { return "TernaryExpr" }
func (n *TernaryExpr) NodeSpan() Span { return n.Span }
func (n *TernaryExpr) exprNode()      {}

// CombineExpr is `left & right`, pairing two datasets into a Mashd value.
type CombineExpr struct {
	Span  Span
	Left  Expr
	Right Expr
}

func (n *CombineExpr) Kind() string   { return "CombineExpr" }
func (n *CombineExpr) NodeSpan() Span { return n.Span }
func (n *CombineExpr) exprNode()      {}

// --- Calls ---

// CallExpr invokes a user-defined function. Type is the statically
// inferred result type.
type CallExpr struct {
	Span Span
	Func *FunctionDecl
	Args []Expr
	Type Type
}

func (n *CallExpr) Kind() string   { return "CallExpr" }
func (n *CallExpr) NodeSpan() Span { return n.Span }
func (n *CallExpr) exprNode()      {}

// MethodCallExpr is `receiver.method(args...)`. Type is the statically
// inferred result type, TypeUnknown when the checker could not tell.
type MethodCallExpr struct {
	Span     Span
	Receiver Expr
	Method   string
	Args     []Expr
	Type     Type
}

func (n *MethodCallExpr) Kind() string   { return "MethodCallExpr" }
func (n *MethodCallExpr) NodeSpan() Span { return n.Span }
func (n *MethodCallExpr) exprNode()      {}

// --- Statements ---

// VarDeclStmt declares a variable and binds its initial value.
type VarDeclStmt struct {
	Span  Span
	Decl  *VarDecl
	Value Expr
}

func (n *VarDeclStmt) Kind() string   { return "VarDeclStmt" }
func (n *VarDeclStmt) NodeSpan() Span { return n.Span }
func (n *VarDeclStmt) stmtNode()      {}

type AssignStmt struct {
	Span   Span
	Target *Identifier
	Value  Expr
}

func (n *AssignStmt) Kind() string   { return "AssignStmt" }
func (n *AssignStmt) NodeSpan() Span { return n.Span }
func (n *AssignStmt) stmtNode()      {}

type ExprStmt struct {
	Span Span
	Expr Expr
}

func (n *ExprStmt) Kind() string   { return "ExprStmt" }
func (n *ExprStmt) NodeSpan() Span { return n.Span }
func (n *ExprStmt) stmtNode()      {}

type ReturnStmt struct {
	Span  Span
	Value Expr // nil for a bare return
}

func (n *ReturnStmt) Kind() string   { return "ReturnStmt" }
func (n *ReturnStmt) NodeSpan() Span { return n.Span }
func (n *ReturnStmt) stmtNode()      {}

type IfStmt struct {
	Span Span
	Cond Expr
	Then []Stmt
	Else []Stmt
}

func (n *IfStmt) Kind() string   { return "IfStmt" }
func (n *IfStmt) NodeSpan() Span { return n.Span }
func (n *IfStmt) stmtNode()      {}

type BlockStmt struct {
	Span Span
	Body []Stmt
}

func (n *BlockStmt) Kind() string   { return "BlockStmt" }
func (n *BlockStmt) NodeSpan() Span { return n.Span }
func (n *BlockStmt) stmtNode()      {}

// FunctionDecl declares a user function. FrameSize is the number of
// local slots (parameters included) an activation frame needs.
type FunctionDecl struct {
	Span       Span
	Name       string
	Params     []*VarDecl
	ReturnType Type
	Body       []Stmt
	FrameSize  int
}

func (n *FunctionDecl) Kind() string   { return "FunctionDecl" }
func (n *FunctionDecl) NodeSpan() Span { return n.Span }
func (n *FunctionDecl) stmtNode()      {}

// --- Program ---

type Program struct {
	Span        Span
	Statements  []Stmt
	GlobalCount int
}

func (n *Program) Kind() string   { return "Program" }
func (n *Program) NodeSpan() Span { return n.Span }
