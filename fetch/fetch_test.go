package fetch

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainAdvancesOnNotUnderstood(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.js", []byte("1"), 0o644))

	chain := NewChain(NewFSFetcher(fs))

	res := chain.Fetch(context.Background(), "file:///a.js", "file:///")
	require.Equal(t, Understood, res.Outcome)
	assert.Equal(t, "1", res.Value.Source)

	notMine := chain.Fetch(context.Background(), "https://example.com/a.js", "file:///")
	assert.Equal(t, NotUnderstood, notMine.Outcome)
}

func TestCanonicalizeCleansPath(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	chain := NewChain(NewFSFetcher(fs))

	res := chain.Canonicalize(context.Background(), "file:///a/../a.js", "file:///")
	require.Equal(t, Understood, res.Outcome)
	assert.Equal(t, "file:///a.js", res.Value)
}

func TestResolverBuiltinWins(t *testing.T) {
	t.Parallel()
	r := NewResolver(BuiltinList{"fs": {}})
	got, err := r.Resolve("fs", "file:///a/b.js")
	require.NoError(t, err)
	assert.Equal(t, "builtin:fs", got)
}

func TestResolverRelativeAgainstBase(t *testing.T) {
	t.Parallel()
	r := NewResolver(nil)
	got, err := r.Resolve("./foo.js", "file:///a/b.js")
	require.NoError(t, err)
	assert.Equal(t, "file:///a/foo.js", got)
}

func TestResolverBareWalksNodeModules(t *testing.T) {
	t.Parallel()
	r := NewResolver(nil)
	r.ListDir = func(dirURL string) ([]string, error) {
		if dirURL == "file:///a/node_modules" {
			return []string{"leftpad"}, nil
		}
		return nil, nil
	}
	got, err := r.Resolve("leftpad", "file:///a/b.js")
	require.NoError(t, err)
	assert.Equal(t, "file:///a/node_modules/leftpad", got)
}
