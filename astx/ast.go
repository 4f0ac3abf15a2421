// Package astx defines the AST node shapes pinned by spec.md §6 — the
// only shapes the core inspects; every other node flows through the
// parser/instrumenter/reknitter boundary unchanged and is treated as
// opaque. These are deliberately ESTree-shaped (the shape the distilled
// language's modules/imports/exports are described in) rather than a
// direct reuse of goja/ast's internal module representation, since the
// core only ever pattern-matches on the handful of shapes named below —
// see parse/goja.go for the goja-backed Parser that produces them.
package astx

// Node is implemented by every node the core touches.
type Node interface {
	Line() int
}

type base struct{ line int }

func (b base) Line() int { return b.line }

// Program is the root of a parsed module.
type Program struct {
	base
	Body []Statement
}

// Statement is any top-level or body statement.
type Statement interface{ Node }

// Comment is a single leading comment attached to the node that follows it.
type Comment struct {
	Text string
	Line int
}

// Identifier is a bound or referenced name.
type Identifier struct {
	base
	Name string
}

// StringLiteral is a string literal, used for require()/import specifiers.
type StringLiteral struct {
	base
	Value string
}

// CallExpression is `callee(arguments...)`.
type CallExpression struct {
	base
	Callee    Node
	Arguments []Node
}

// MemberExpression is `object.property` or `object[property]`.
type MemberExpression struct {
	base
	Object   Node
	Property Node
	Computed bool
}

// AssignmentExpression is `left = right` (and compound variants).
type AssignmentExpression struct {
	base
	Operator string
	Left     Node
	Right    Node
}

// ObjectExpression is `{ k: v, ... }`, used for bulk `exports = {...}`.
type ObjectExpression struct {
	base
	Properties []ObjectProperty
}

// ObjectProperty is one `key: value` pair of an ObjectExpression, or a
// `...spread` entry when Spread is set.
type ObjectProperty struct {
	Key    Node
	Value  Node
	Spread bool
}

// ObjectPattern is a destructuring target `{ a, b: c, ...rest }`.
type ObjectPattern struct {
	base
	Properties []ObjectPatternProperty
	Rest       *Identifier // non-nil for a trailing `...rest`
}

// ObjectPatternProperty is one `remote: local` element of an ObjectPattern.
type ObjectPatternProperty struct {
	Remote          string
	Local           *Identifier
	Default         Node // non-nil for `local = default`
	LeadingComments []Comment
}

// ArrayPattern is a destructuring target `[a, , ...rest]`.
type ArrayPattern struct {
	base
	Elements []Node // *Identifier, *ObjectPattern, *ArrayPattern, or nil for elisions
	Rest     *Identifier
}

// RestElement wraps a `...target` tail of a pattern.
type RestElement struct {
	base
	Target Node
}

// AssignmentPattern is `target = default` inside a pattern.
type AssignmentPattern struct {
	base
	Target  Node
	Default Node
}

// VariableDeclarator is one `target = initializer` binding of a `var`/
// `let`/`const` declaration.
type VariableDeclarator struct {
	base
	Target      Node // Identifier, ObjectPattern, or ArrayPattern
	Initializer Node // may be nil
	LeadingComments []Comment
}

// VariableDeclaration is a `var`/`let`/`const` statement.
type VariableDeclaration struct {
	base
	Kind         string // "var" | "let" | "const"
	Declarations []*VariableDeclarator
}

// FunctionDeclaration is `function name(...) {...}`.
type FunctionDeclaration struct {
	base
	Name            *Identifier
	LeadingComments []Comment
}

// ExpressionStatement wraps a bare expression statement.
type ExpressionStatement struct {
	base
	Expression Node
}

// ImportSpecifier is one bound name of an ImportDeclaration: `remote as
// local`. Remote is "default" for a default import and "*" for a
// namespace import.
type ImportSpecifier struct {
	Remote          string
	Local           string
	LeadingComments []Comment
}

// ImportDeclaration is `import ... from 'specifier'`.
type ImportDeclaration struct {
	base
	Specifier  string
	Specifiers []ImportSpecifier
}

// ExportSpecifier is one bound name of an ExportNamedDeclaration.
type ExportSpecifier struct {
	Remote          string
	Local           string
	LeadingComments []Comment
}

// ExportNamedDeclaration is `export { a, b as c }`, `export const x = 1`,
// or `export function f(){}` (Declaration set, Specifiers empty).
type ExportNamedDeclaration struct {
	base
	Specifier   string // re-export source, "" if none
	Specifiers  []ExportSpecifier
	Declaration Statement // *VariableDeclaration or *FunctionDeclaration, may be nil
}

// ExportDefaultDeclaration is `export default ...`.
type ExportDefaultDeclaration struct {
	base
	Declaration Node
}

// ExportAllDeclaration is `export * from 'specifier'`.
type ExportAllDeclaration struct {
	base
	Specifier string
}

// NewIdentifier, NewStringLiteral etc. are small constructors used by the
// GojaParser adapter and by tests building ASTs by hand.

func NewIdentifier(line int, name string) *Identifier { return &Identifier{base{line}, name} }

func NewStringLiteral(line int, v string) *StringLiteral { return &StringLiteral{base{line}, v} }
