package parse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/file"
	"github.com/dop251/goja/parser"

	"github.com/mstoykov/prebake/astx"
)

// GojaParser is the default Parser, backed by github.com/dop251/goja's
// tokenizer/parser. goja produces a lower-level token-position-annotated
// tree; converter below walks it and re-shapes the handful of node
// kinds spec.md §6 cares about into astx's ESTree-shaped contract.
type GojaParser struct{}

// Parse implements Parser.
func (GojaParser) Parse(source string) (*astx.Program, error) {
	prg, err := parser.ParseFile(nil, "", source, 0)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	conv := &converter{src: source, positions: prg.File}
	return conv.program(prg.Body), nil
}

type converter struct {
	src       string
	positions *file.File
}

func (c *converter) line(idx file.Idx) int {
	if c.positions == nil {
		return 0
	}
	return c.positions.Position(idx).Line
}

func (c *converter) program(body []ast.Statement) *astx.Program {
	out := &astx.Program{}
	for _, s := range body {
		if st := c.statement(s); st != nil {
			out.Body = append(out.Body, st)
		}
	}
	return out
}

func (c *converter) statement(s ast.Statement) astx.Statement {
	switch n := s.(type) {
	case *ast.VariableStatement:
		// `var ...`: goja parses this as VariableStatement, not the
		// Declaration-only VariableDeclaration type (which never appears
		// as a top-level Statement — it's only ever a ForStatement
		// initializer).
		return c.bindings("var", n.List)
	case *ast.LexicalDeclaration:
		// `const`/`let ...`.
		return c.bindings(n.Token.String(), n.List)
	case *ast.FunctionDeclaration:
		return &astx.FunctionDeclaration{
			Name:            c.identifier(n.Function.Name),
			LeadingComments: c.leadingComments(n.Idx0()),
		}
	case *ast.ExpressionStatement:
		return &astx.ExpressionStatement{Expression: c.expression(n.Expression)}
	default:
		// Every other statement shape is opaque to the core, per §6.
		return nil
	}
}

func (c *converter) bindings(kind string, list []*ast.Binding) *astx.VariableDeclaration {
	out := &astx.VariableDeclaration{Kind: kind}
	for _, b := range list {
		out.Declarations = append(out.Declarations, &astx.VariableDeclarator{
			Target:          c.bindingTarget(b.Target),
			Initializer:     c.expression(b.Initializer),
			LeadingComments: c.leadingComments(b.Idx0()),
		})
	}
	return out
}

func (c *converter) bindingTarget(n ast.BindingTarget) astx.Node {
	if n == nil {
		return nil
	}
	switch t := n.(type) {
	case *ast.Identifier:
		return c.identifier(t)
	case *ast.ObjectPattern:
		return c.objectPattern(t)
	case *ast.ArrayPattern:
		return c.arrayPattern(t)
	default:
		// *ast.BadExpression: the source already failed to parse as a
		// valid binding target; nothing useful to recover here.
		return astx.NewIdentifier(0, "<pattern>")
	}
}

// bindingElement splits a destructured element's value into its bound
// identifier and, when present, its default-value expression: plain
// `c: d` converts to (d, nil), `c: d = 1` (parsed as an AssignExpression
// by goja's reinterpretAsBindingElement) converts to (d, 1).
func (c *converter) bindingElement(n ast.Expression) (*astx.Identifier, astx.Node) {
	switch e := n.(type) {
	case *ast.AssignExpression:
		id, _ := e.Left.(*ast.Identifier)
		return c.identifier(id), c.expression(e.Right)
	case *ast.Identifier:
		return c.identifier(e), nil
	default:
		// Nested object/array patterns as a keyed value aren't
		// representable by astx.ObjectPatternProperty.Local (which is a
		// bare identifier) — this mirrors astx's own documented scope.
		return nil, nil
	}
}

func (c *converter) objectPattern(n *ast.ObjectPattern) *astx.ObjectPattern {
	out := &astx.ObjectPattern{}
	for _, p := range n.Properties {
		switch prop := p.(type) {
		case *ast.PropertyShort:
			ident := c.identifier(&prop.Name)
			out.Properties = append(out.Properties, astx.ObjectPatternProperty{
				Remote:          ident.Name,
				Local:           ident,
				Default:         c.expression(prop.Initializer),
				LeadingComments: c.leadingComments(prop.Idx0()),
			})
		case *ast.PropertyKeyed:
			key, ok := prop.Key.(*ast.Identifier)
			if !ok {
				continue
			}
			local, def := c.bindingElement(prop.Value)
			out.Properties = append(out.Properties, astx.ObjectPatternProperty{
				Remote:          key.Name.String(),
				Local:           local,
				Default:         def,
				LeadingComments: c.leadingComments(prop.Idx0()),
			})
		}
	}
	if rest, ok := n.Rest.(*ast.Identifier); ok {
		out.Rest = c.identifier(rest)
	}
	return out
}

func (c *converter) arrayPattern(n *ast.ArrayPattern) *astx.ArrayPattern {
	out := &astx.ArrayPattern{}
	for _, el := range n.Elements {
		switch e := el.(type) {
		case nil:
			out.Elements = append(out.Elements, nil)
		case *ast.Identifier:
			out.Elements = append(out.Elements, c.identifier(e))
		case *ast.ObjectPattern:
			out.Elements = append(out.Elements, c.objectPattern(e))
		case *ast.ArrayPattern:
			out.Elements = append(out.Elements, c.arrayPattern(e))
		default:
			out.Elements = append(out.Elements, nil)
		}
	}
	if rest, ok := n.Rest.(*ast.Identifier); ok {
		out.Rest = c.identifier(rest)
	}
	return out
}

func (c *converter) identifier(n *ast.Identifier) *astx.Identifier {
	if n == nil {
		return nil
	}
	return astx.NewIdentifier(c.line(n.Idx0()), n.Name.String())
}

func (c *converter) expression(n ast.Expression) astx.Node {
	if n == nil {
		return nil
	}
	switch e := n.(type) {
	case *ast.Identifier:
		return c.identifier(e)
	case *ast.StringLiteral:
		return astx.NewStringLiteral(c.line(e.Idx0()), e.Value.String())
	case *ast.CallExpression:
		args := make([]astx.Node, 0, len(e.ArgumentList))
		for _, a := range e.ArgumentList {
			args = append(args, c.expression(a))
		}
		return &astx.CallExpression{Callee: c.expression(e.Callee), Arguments: args}
	case *ast.DotExpression:
		return &astx.MemberExpression{Object: c.expression(e.Left), Property: c.identifier(&e.Identifier)}
	case *ast.BracketExpression:
		return &astx.MemberExpression{Object: c.expression(e.Left), Property: c.expression(e.Member), Computed: true}
	case *ast.AssignExpression:
		return &astx.AssignmentExpression{Operator: "=", Left: c.expression(e.Left), Right: c.expression(e.Right)}
	case *ast.ObjectLiteral:
		out := &astx.ObjectExpression{}
		for _, p := range e.Value {
			out.Properties = append(out.Properties, c.objectProperty(p))
		}
		return out
	default:
		return nil
	}
}

func (c *converter) objectProperty(p ast.Property) astx.ObjectProperty {
	switch prop := p.(type) {
	case *ast.PropertyKeyed:
		return astx.ObjectProperty{Key: c.expression(prop.Key), Value: c.expression(prop.Value)}
	case *ast.SpreadElement:
		return astx.ObjectProperty{Value: c.expression(prop.Expression), Spread: true}
	default:
		return astx.ObjectProperty{}
	}
}

var leadingCommentRe = regexp.MustCompile(`(?:/\*(?:[^*]|\*[^/])*\*/|//[^\n]*)\s*$`)

// leadingComments recovers the comment block immediately preceding idx by
// scanning the raw source backward from idx's byte offset. goja discards
// comments from its AST by default, so this operates on source text rather
// than an attached-comment field — the stage-extraction contract in §6
// only needs the last matching annotation token, which a text scan
// recovers just as reliably as a structured comment list would.
func (c *converter) leadingComments(idx file.Idx) []astx.Comment {
	off := int(idx) - 1
	if off <= 0 || off > len(c.src) {
		return nil
	}
	before := c.src[:off]
	loc := leadingCommentRe.FindStringIndex(before)
	if loc == nil {
		return nil
	}
	text := before[loc[0]:loc[1]]
	return []astx.Comment{{Text: text, Line: c.line(idx)}}
}

// StageToken returns the last @prebake.moot|eager|runtime token found
// across comments, or "" if none, per spec.md §4.3's "last match wins".
func StageToken(comments []astx.Comment) string {
	var last string
	for _, c := range comments {
		if m := stageCommentRe.FindAllStringSubmatch(c.Text, -1); len(m) > 0 {
			last = strings.ToLower(m[len(m)-1][1])
		}
	}
	return last
}

var stageCommentRe = regexp.MustCompile(`@prebake\.(moot|eager|runtime)`)
