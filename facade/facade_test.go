package facade

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mstoykov/prebake/astx"
	"github.com/mstoykov/prebake/extract"
	"github.com/mstoykov/prebake/fetch"
	"github.com/mstoykov/prebake/ids"
	"github.com/mstoykov/prebake/log"
	"github.com/mstoykov/prebake/moduleset"
)

// TestMain verifies Prebakery.Close leaves no mailbox goroutine behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// literalParser treats the whole source text as a single require()
// specifier list separated by ';', letting tests build a dependency graph
// without a real ECMAScript parser.
type literalParser struct{}

func (literalParser) Parse(source string) (*astx.Program, error) {
	prog := &astx.Program{}
	if source == "" {
		return prog, nil
	}
	prog.Body = append(prog.Body, &astx.VariableDeclaration{
		Kind: "const",
		Declarations: []*astx.VariableDeclarator{{
			Target: astx.NewIdentifier(1, "_"),
			Initializer: &astx.CallExpression{
				Callee:    astx.NewIdentifier(1, "require"),
				Arguments: []astx.Node{astx.NewStringLiteral(1, source)},
			},
		}},
	})
	return prog, nil
}

type identityExternal struct{}

func (identityExternal) Instrument(original *astx.Program, _ []extract.Finding) (*astx.Program, *astx.Program, *astx.Program, error) {
	return original, original, original, nil
}

func TestFacadeRunRewritesEntryAndDependency(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/entry.js", []byte("./dep.js"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/dep.js", []byte(""), 0o644))

	diag := log.NewBus()
	resolver := fetch.NewResolver(nil)
	chain := fetch.NewChain(fetch.NewFSFetcher(fs))

	p := New(diag, resolver, chain, literalParser{}, identityExternal{})
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := p.Run(ctx, []string{"/entry.js"}, "file:///")
	require.NoError(t, err)
	require.Contains(t, result.SpecifierIDs, "/entry.js")

	m, ok := p.Set.Get(ids.Tentative(result.SpecifierIDs["/entry.js"]))
	require.True(t, ok)
	assert.Equal(t, moduleset.Rewritten, m.Stage())
}
