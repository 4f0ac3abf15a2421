// Package instrument provides DefaultExternal, a minimal instrumentation
// external for rewriter.Driver. spec.md §1 explicitly names "the
// instrumentation transform that produces the swiss AST" as an external
// black-box peer the core never looks inside of — so this package is
// deliberately not a full partial evaluator. It performs the one
// transform that is unambiguous from the stage annotations alone: a
// binding marked @prebake.moot can never be observed at runtime (its
// finding's local name is never read after prebake time), so it is
// elided from the rewritten/output ASTs the way dead-code elimination
// drops an unreachable branch.
package instrument

import (
	"github.com/mstoykov/prebake/astx"
	"github.com/mstoykov/prebake/extract"
	"github.com/mstoykov/prebake/parse"
)

// DefaultExternal implements rewriter.External by eliding moot-only
// bindings. It reads stage annotations directly off each declarator's/
// specifier's own leading comments rather than off the findings
// parameter, since a single statement can yield several findings (one
// per destructured binding) and the two don't correlate 1:1 by position.
type DefaultExternal struct{}

// Instrument implements rewriter.External.
func (DefaultExternal) Instrument(original *astx.Program, _ []extract.Finding) (rewritten, swiss, output *astx.Program, err error) {
	pruned := &astx.Program{}
	for _, stmt := range original.Body {
		if kept := pruneStatement(stmt); kept != nil {
			pruned.Body = append(pruned.Body, kept)
		}
	}
	// swiss and output are both the pruned program: no further rewriting
	// stage is implemented here, so the "swiss" intermediate and the
	// final "output" coincide. A fuller external would diverge them (the
	// reknitter substituting computed literals into the holes "swiss"
	// leaves for them), which spec.md names as its own black-box peer.
	return pruned, pruned, pruned, nil
}

func pruneStatement(stmt astx.Statement) astx.Statement {
	switch n := stmt.(type) {
	case *astx.VariableDeclaration:
		return pruneVariableDeclaration(n)
	case *astx.ImportDeclaration:
		return pruneImport(n)
	default:
		return stmt
	}
}

func pruneVariableDeclaration(n *astx.VariableDeclaration) astx.Statement {
	var kept []*astx.VariableDeclarator
	for _, d := range n.Declarations {
		if allMoot(d.Target, d.LeadingComments) {
			continue
		}
		kept = append(kept, d)
	}
	if len(kept) == 0 {
		return nil
	}
	return &astx.VariableDeclaration{Kind: n.Kind, Declarations: kept}
}

func pruneImport(n *astx.ImportDeclaration) astx.Statement {
	var kept []astx.ImportSpecifier
	for _, spec := range n.Specifiers {
		if parse.StageToken(spec.LeadingComments) == "moot" {
			continue
		}
		kept = append(kept, spec)
	}
	if len(kept) == 0 {
		return nil
	}
	return &astx.ImportDeclaration{Specifier: n.Specifier, Specifiers: kept}
}

// allMoot reports whether every local name target binds is annotated
// moot: an Identifier target is moot iff its declarator's own comment
// says so; an ObjectPattern target is moot only when every one of its
// properties carries its own moot annotation; an ArrayPattern target is
// never considered moot (a
// destructured rest element's stage is left alone — §8's Open Question
// on whether moot covers the rest binding is resolved conservatively
// here by never eliding a rest target).
func allMoot(target astx.Node, ownComments []astx.Comment) bool {
	switch t := target.(type) {
	case *astx.Identifier:
		return parse.StageToken(ownComments) == "moot"
	case *astx.ObjectPattern:
		if t.Rest != nil {
			return false
		}
		if len(t.Properties) == 0 {
			return false
		}
		for _, p := range t.Properties {
			if parse.StageToken(p.LeadingComments) != "moot" {
				return false
			}
		}
		return true
	default:
		return false
	}
}
