package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstoykov/prebake/astx"
)

// scenario 1: `const foo = require('./foo');`
func TestExtractBareRequire(t *testing.T) {
	t.Parallel()
	prog := &astx.Program{Body: []astx.Statement{
		&astx.VariableDeclaration{
			Kind: "const",
			Declarations: []*astx.VariableDeclarator{{
				Target: astx.NewIdentifier(1, "foo"),
				Initializer: &astx.CallExpression{
					Callee:    astx.NewIdentifier(1, "require"),
					Arguments: []astx.Node{astx.NewStringLiteral(1, "./foo")},
				},
			}},
		},
	}}

	findings := Extract(prog)
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, KindImport, f.Kind)
	assert.Equal(t, LinkRequireLike, f.Link)
	assert.Equal(t, "./foo", f.Specifier)
	require.Len(t, f.Symbols, 1)
	assert.Equal(t, "foo", f.Symbols[0].Remote)
	assert.Equal(t, "foo", f.Symbols[0].Local)
	assert.Equal(t, StageNone, f.Symbols[0].Stage)
}

// scenario 2: `const { a, /* @prebake.moot */ b, c: d, ...rest } = require('foo');`
func TestExtractDestructuredRequireWithStageAnnotation(t *testing.T) {
	t.Parallel()
	pattern := &astx.ObjectPattern{
		Properties: []astx.ObjectPatternProperty{
			{Remote: "a", Local: astx.NewIdentifier(1, "a")},
			{
				Remote:          "b",
				Local:           astx.NewIdentifier(1, "b"),
				LeadingComments: []astx.Comment{{Text: "/* @prebake.moot */", Line: 1}},
			},
			{Remote: "c", Local: astx.NewIdentifier(1, "d")},
		},
		Rest: astx.NewIdentifier(1, "rest"),
	}
	prog := &astx.Program{Body: []astx.Statement{
		&astx.VariableDeclaration{
			Kind: "const",
			Declarations: []*astx.VariableDeclarator{{
				Target: pattern,
				Initializer: &astx.CallExpression{
					Callee:    astx.NewIdentifier(1, "require"),
					Arguments: []astx.Node{astx.NewStringLiteral(1, "foo")},
				},
			}},
		},
	}}

	findings := Extract(prog)
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, KindImport, f.Kind)
	assert.Equal(t, LinkRequireLike, f.Link)
	assert.Equal(t, "foo", f.Specifier)
	require.Len(t, f.Symbols, 4)

	byRemote := map[string]Symbol{}
	for _, s := range f.Symbols {
		byRemote[s.Remote] = s
	}

	assert.Equal(t, "a", byRemote["a"].Local)
	assert.Equal(t, StageNone, byRemote["a"].Stage)

	assert.Equal(t, "b", byRemote["b"].Local)
	assert.Equal(t, StageMoot, byRemote["b"].Stage)

	assert.Equal(t, "d", byRemote["c"].Local)
	assert.Equal(t, StageNone, byRemote["c"].Stage)

	assert.Equal(t, "rest", byRemote["*"].Local)
}

func TestExtractImportDeclaration(t *testing.T) {
	t.Parallel()
	prog := &astx.Program{Body: []astx.Statement{
		&astx.ImportDeclaration{
			Specifier: "./bar",
			Specifiers: []astx.ImportSpecifier{
				{Remote: "default", Local: "Bar"},
				{Remote: "helper", Local: "helper", LeadingComments: []astx.Comment{{Text: "// @prebake.eager"}}},
			},
		},
	}}

	findings := Extract(prog)
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, KindImport, f.Kind)
	assert.Equal(t, LinkDeclaration, f.Link)
	assert.Equal(t, "./bar", f.Specifier)
	require.Len(t, f.Symbols, 2)
	assert.Equal(t, "default", f.Symbols[0].Remote)
	assert.Equal(t, StageEager, f.Symbols[1].Stage)
}

func TestExtractExportNamedReExport(t *testing.T) {
	t.Parallel()
	prog := &astx.Program{Body: []astx.Statement{
		&astx.ExportNamedDeclaration{
			Specifier: "./baz",
			Specifiers: []astx.ExportSpecifier{
				{Remote: "a", Local: "a"},
				{Remote: "b", Local: "c"},
			},
		},
	}}

	findings := Extract(prog)
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, KindExport, f.Kind)
	assert.Equal(t, "./baz", f.Specifier)
	require.Len(t, f.Symbols, 2)
	assert.Equal(t, "c", f.Symbols[1].Local)
}

func TestExtractExportAll(t *testing.T) {
	t.Parallel()
	prog := &astx.Program{Body: []astx.Statement{
		&astx.ExportAllDeclaration{Specifier: "./ns"},
	}}

	findings := Extract(prog)
	require.Len(t, findings, 1)
	assert.Equal(t, "*", findings[0].Symbols[0].Remote)
}

func TestExtractCommonJSExportsProperty(t *testing.T) {
	t.Parallel()
	prog := &astx.Program{Body: []astx.Statement{
		&astx.ExpressionStatement{
			Expression: &astx.AssignmentExpression{
				Operator: "=",
				Left: &astx.MemberExpression{
					Object:   astx.NewIdentifier(1, "exports"),
					Property: astx.NewIdentifier(1, "widget"),
				},
				Right: astx.NewIdentifier(1, "Widget"),
			},
		},
	}}

	findings := Extract(prog)
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, KindExport, f.Kind)
	assert.Equal(t, LinkRequireLike, f.Link)
	require.Len(t, f.Symbols, 1)
	assert.Equal(t, "widget", f.Symbols[0].Remote)
}

func TestExtractCommonJSBulkExportsWithReExportSpread(t *testing.T) {
	t.Parallel()
	prog := &astx.Program{Body: []astx.Statement{
		&astx.ExpressionStatement{
			Expression: &astx.AssignmentExpression{
				Operator: "=",
				Left:     astx.NewIdentifier(1, "exports"),
				Right: &astx.ObjectExpression{
					Properties: []astx.ObjectProperty{
						{Key: astx.NewIdentifier(1, "a"), Value: astx.NewIdentifier(1, "a")},
						{
							Spread: true,
							Value: &astx.CallExpression{
								Callee:    astx.NewIdentifier(1, "require"),
								Arguments: []astx.Node{astx.NewStringLiteral(1, "./ns")},
							},
						},
					},
				},
			},
		},
	}}

	findings := Extract(prog)
	require.Len(t, findings, 2)

	var bulk, reexport *Finding
	for i := range findings {
		if findings[i].HasSpec {
			reexport = &findings[i]
		} else {
			bulk = &findings[i]
		}
	}
	require.NotNil(t, bulk)
	require.NotNil(t, reexport)
	assert.Equal(t, "a", bulk.Symbols[0].Remote)
	assert.Equal(t, "./ns", reexport.Specifier)
	assert.Equal(t, "*", reexport.Symbols[0].Remote)
}

func TestExtractBareRequireSideEffectOnly(t *testing.T) {
	t.Parallel()
	prog := &astx.Program{Body: []astx.Statement{
		&astx.ExpressionStatement{
			Expression: &astx.CallExpression{
				Callee:    astx.NewIdentifier(1, "require"),
				Arguments: []astx.Node{astx.NewStringLiteral(1, "./side-effect")},
			},
		},
	}}

	findings := Extract(prog)
	require.Len(t, findings, 1)
	assert.Empty(t, findings[0].Symbols)
	assert.Equal(t, "./side-effect", findings[0].Specifier)
}
