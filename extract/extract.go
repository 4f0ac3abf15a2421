// Package extract implements spec.md §4.3: a pure walk over a parsed
// module's AST producing import/export findings, covering both
// declaration-style (import/export) and require-style (CommonJS) linkage.
package extract

import (
	"github.com/mstoykov/prebake/astx"
	"github.com/mstoykov/prebake/parse"
)

// Kind distinguishes an import finding from an export finding.
type Kind string

const (
	KindImport Kind = "import"
	KindExport Kind = "export"
)

// LinkType distinguishes declaration-style (import/export statements) from
// require-style (CommonJS) linkage.
type LinkType string

const (
	LinkDeclaration LinkType = "declaration"
	LinkRequireLike LinkType = "require-like"
)

// Stage mirrors the per-symbol annotation of spec.md §4.3/§6.
type Stage string

const (
	StageNone    Stage = "none"
	StageMoot    Stage = "moot"
	StageEager   Stage = "eager"
	StageRuntime Stage = "runtime"
)

func stageFromComments(comments []astx.Comment) Stage {
	switch parse.StageToken(comments) {
	case "moot":
		return StageMoot
	case "eager":
		return StageEager
	case "runtime":
		return StageRuntime
	default:
		return StageNone
	}
}

// Symbol is one bound name of a Finding.
type Symbol struct {
	// Remote is the exported/imported name, "default", "*", or "none".
	Remote string
	// Local is the local binding name, "*", or "none".
	Local string
	Stage Stage
	Line  int
}

// Finding is one import or export statement's extracted shape.
type Finding struct {
	Kind      Kind
	Link      LinkType
	Specifier string // "" when there is none (e.g. `export { a }` with no `from`)
	HasSpec   bool
	Symbols   []Symbol
}

// Extract walks prog and returns every import/export finding. It never
// mutates prog.
func Extract(prog *astx.Program) []Finding {
	var findings []Finding
	for _, stmt := range prog.Body {
		findings = append(findings, fromStatement(stmt)...)
	}
	return findings
}

func fromStatement(stmt astx.Statement) []Finding {
	switch n := stmt.(type) {
	case *astx.ImportDeclaration:
		return []Finding{importDeclaration(n)}
	case *astx.ExportNamedDeclaration:
		return exportNamed(n)
	case *astx.ExportDefaultDeclaration:
		return []Finding{{Kind: KindExport, Link: LinkDeclaration, Symbols: []Symbol{{Remote: "default", Local: "default"}}}}
	case *astx.ExportAllDeclaration:
		return []Finding{{
			Kind: KindExport, Link: LinkDeclaration, Specifier: n.Specifier, HasSpec: true,
			Symbols: []Symbol{{Remote: "*", Local: "none"}},
		}}
	case *astx.VariableDeclaration:
		return requireBindings(n)
	case *astx.ExpressionStatement:
		return fromExpressionStatement(n)
	default:
		return nil
	}
}

func importDeclaration(n *astx.ImportDeclaration) Finding {
	f := Finding{Kind: KindImport, Link: LinkDeclaration, Specifier: n.Specifier, HasSpec: true}
	for _, spec := range n.Specifiers {
		f.Symbols = append(f.Symbols, Symbol{
			Remote: spec.Remote,
			Local:  spec.Local,
			Stage:  stageFromComments(spec.LeadingComments),
			Line:   n.Line(),
		})
	}
	return f
}

func exportNamed(n *astx.ExportNamedDeclaration) []Finding {
	var findings []Finding
	if len(n.Specifiers) > 0 || n.Specifier != "" {
		f := Finding{Kind: KindExport, Link: LinkDeclaration, Specifier: n.Specifier, HasSpec: n.Specifier != ""}
		for _, spec := range n.Specifiers {
			f.Symbols = append(f.Symbols, Symbol{
				Remote: spec.Remote,
				Local:  spec.Local,
				Stage:  stageFromComments(spec.LeadingComments),
				Line:   n.Line(),
			})
		}
		findings = append(findings, f)
	}
	switch decl := n.Declaration.(type) {
	case *astx.VariableDeclaration:
		f := Finding{Kind: KindExport, Link: LinkDeclaration}
		for _, d := range decl.Declarations {
			f.Symbols = append(f.Symbols, destructuredSymbols(d.Target, d.LeadingComments, d.Line())...)
		}
		findings = append(findings, f)
	case *astx.FunctionDeclaration:
		findings = append(findings, Finding{
			Kind: KindExport, Link: LinkDeclaration,
			Symbols: []Symbol{{
				Remote: decl.Name.Name, Local: decl.Name.Name,
				Stage: stageFromComments(decl.LeadingComments), Line: decl.Line(),
			}},
		})
	}
	return findings
}

func requireBindings(n *astx.VariableDeclaration) []Finding {
	var findings []Finding
	for _, d := range n.Declarations {
		call, spec, ok := asRequireCall(d.Initializer)
		if !ok {
			continue
		}
		f := Finding{Kind: KindImport, Link: LinkRequireLike, Specifier: spec, HasSpec: true}
		f.Symbols = destructuredSymbols(d.Target, d.LeadingComments, call.Line())
		findings = append(findings, f)
	}
	return findings
}

func fromExpressionStatement(n *astx.ExpressionStatement) []Finding {
	switch expr := n.Expression.(type) {
	case *astx.CallExpression:
		if _, spec, ok := asRequireCall(expr); ok {
			return []Finding{{Kind: KindImport, Link: LinkRequireLike, Specifier: spec, HasSpec: true}}
		}
	case *astx.AssignmentExpression:
		return requireExportsAssignment(expr)
	}
	return nil
}

// asRequireCall reports whether n is a bare `require('literal')` call,
// per spec.md §4.3 ("only a bare call ... where require is unbound in
// surrounding scope"). Scope-binding analysis of `require` itself is out
// of scope for this pure structural walk; the core only ever shadows
// `require` by explicit configuration, which callers may pre-filter.
func asRequireCall(n astx.Node) (*astx.CallExpression, string, bool) {
	call, ok := n.(*astx.CallExpression)
	if !ok {
		return nil, "", false
	}
	callee, ok := call.Callee.(*astx.Identifier)
	if !ok || callee.Name != "require" {
		return nil, "", false
	}
	if len(call.Arguments) != 1 {
		return nil, "", false
	}
	lit, ok := call.Arguments[0].(*astx.StringLiteral)
	if !ok {
		return nil, "", false
	}
	return call, lit.Value, true
}

// requireExportsAssignment handles `exports.prop = value` (single-property
// export) and `exports = {...}` (bulk export), including namespace spread
// `...require('lit')` becoming a re-export finding.
func requireExportsAssignment(assign *astx.AssignmentExpression) []Finding {
	switch left := assign.Left.(type) {
	case *astx.MemberExpression:
		obj, ok := left.Object.(*astx.Identifier)
		if !ok || !isExportsIdentifier(obj.Name) {
			return nil
		}
		prop, ok := left.Property.(*astx.Identifier)
		if !ok {
			return nil
		}
		return []Finding{{
			Kind: KindExport, Link: LinkRequireLike,
			Symbols: []Symbol{{Remote: prop.Name, Local: "none", Line: assign.Line()}},
		}}
	case *astx.Identifier:
		if !isExportsIdentifier(left.Name) {
			return nil
		}
		obj, ok := assign.Right.(*astx.ObjectExpression)
		if !ok {
			return nil
		}
		var findings []Finding
		bulk := Finding{Kind: KindExport, Link: LinkRequireLike}
		for _, prop := range obj.Properties {
			if prop.Spread {
				if _, spec, ok := asRequireCall(prop.Value); ok {
					findings = append(findings, Finding{
						Kind: KindExport, Link: LinkRequireLike, Specifier: spec, HasSpec: true,
						Symbols: []Symbol{{Remote: "*", Local: "none"}},
					})
				}
				continue
			}
			key, ok := prop.Key.(*astx.Identifier)
			if !ok {
				continue
			}
			bulk.Symbols = append(bulk.Symbols, Symbol{Remote: key.Name, Local: "none"})
		}
		if len(bulk.Symbols) > 0 {
			findings = append(findings, bulk)
		}
		return findings
	default:
		return nil
	}
}

func isExportsIdentifier(name string) bool { return name == "exports" || name == "module.exports" }

// destructuredSymbols turns a binding target (Identifier, ObjectPattern,
// ArrayPattern) into the Symbol list of spec.md scenario 2.
func destructuredSymbols(target astx.Node, outerComments []astx.Comment, line int) []Symbol {
	switch t := target.(type) {
	case *astx.Identifier:
		return []Symbol{{Remote: t.Name, Local: t.Name, Stage: stageFromComments(outerComments), Line: line}}
	case *astx.ObjectPattern:
		var syms []Symbol
		for _, p := range t.Properties {
			local := p.Remote
			if p.Local != nil {
				local = p.Local.Name
			}
			syms = append(syms, Symbol{Remote: p.Remote, Local: local, Stage: stageFromComments(p.LeadingComments), Line: line})
		}
		if t.Rest != nil {
			syms = append(syms, Symbol{Remote: "*", Local: t.Rest.Name, Line: line})
		}
		return syms
	case *astx.ArrayPattern:
		var syms []Symbol
		for i, el := range t.Elements {
			id, ok := el.(*astx.Identifier)
			if !ok {
				continue
			}
			syms = append(syms, Symbol{Remote: indexName(i), Local: id.Name, Line: line})
		}
		if t.Rest != nil {
			syms = append(syms, Symbol{Remote: "*", Local: t.Rest.Name, Line: line})
		}
		return syms
	default:
		return nil
	}
}

func indexName(i int) string {
	digits := "0123456789"
	if i < 10 {
		return string(digits[i])
	}
	// Arrays with >= 10 destructured elements are rare enough that a
	// simple decimal fallback is fine here.
	var out []byte
	for i > 0 {
		out = append([]byte{digits[i%10]}, out...)
		i /= 10
	}
	return string(out)
}
