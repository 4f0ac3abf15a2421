package gatherer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mstoykov/prebake/fetch"
	"github.com/mstoykov/prebake/ids"
	"github.com/mstoykov/prebake/log"
	"github.com/mstoykov/prebake/moduleset"
)

// TestMain verifies no package test leaks a Set/Gatherer mailbox goroutine.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitFor(t *testing.T, f func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if f() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestGathererResolvesUnresolvedModule(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.js", []byte("alert(1)"), 0o644))

	diag := log.NewBus()
	set := moduleset.New(diag, fetch.NewResolver(nil))
	defer set.Close()

	chain := fetch.NewChain(fetch.NewFSFetcher(fs))
	New(set, chain, diag)

	id := ids.Tentative("file:///a.js")
	unresolved := &moduleset.Module{
		ID: id,
		FetchCtx: moduleset.FetchContext{
			ImporterID:   ids.Tentative("file:///entry.js"),
			ImporterBase: "file:///",
		},
	}
	set.Put(unresolved)

	waitFor(t, func() bool {
		m, ok := set.Get(id)
		return ok && m.Stage() == moduleset.Resolved
	})

	m, ok := set.Get(id)
	require.True(t, ok)
	assert.Equal(t, "alert(1)", m.Source)
}

// TestGathererDedupesOverlappingFetches covers spec.md §8 scenario 3:
// four unresolved modules with distinct specifiers that all canonicalize
// to the same target, fetched from two distinct importer bases, converge
// on a single resolved module: every one of the four is observed as a
// new (unresolved) module, but only the first to canonicalize wins the
// Set's put-rule race and is ever promoted to resolved under the shared
// canonical key.
func TestGathererDedupesOverlappingFetches(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/foo.js", []byte("alert(1)"), 0o644))

	diag := log.NewBus()
	set := moduleset.New(diag, fetch.NewResolver(nil))
	defer set.Close()

	chain := fetch.NewChain(fetch.NewFSFetcher(fs))
	New(set, chain, diag)

	var unresolvedSeen, resolvedSeen int32
	set.OnAnyPromotedTo(moduleset.Unresolved, func(*moduleset.Module) {
		atomic.AddInt32(&unresolvedSeen, 1)
	})
	set.OnAnyPromotedTo(moduleset.Resolved, func(*moduleset.Module) {
		atomic.AddInt32(&resolvedSeen, 1)
	})

	specs := []string{"/foo.js", "/a/../foo.js", "/a/b/../../foo.js", "/./foo.js"}
	bases := []string{"file:///", "file:///a/"}
	for i, spec := range specs {
		set.Put(&moduleset.Module{
			ID: ids.Tentative("file://" + spec),
			FetchCtx: moduleset.FetchContext{
				ImporterID:   ids.Tentative("file:///entry.js"),
				ImporterBase: bases[i%len(bases)],
			},
		})
	}

	canonID := ids.Canonical("file:///foo.js", "file:///foo.js")
	waitFor(t, func() bool {
		m, ok := set.Get(canonID)
		return ok && m.Stage() == moduleset.Resolved
	})

	assert.Equal(t, int32(4), atomic.LoadInt32(&unresolvedSeen))
	assert.Equal(t, int32(1), atomic.LoadInt32(&resolvedSeen))

	m, ok := set.Get(canonID)
	require.True(t, ok)
	assert.Equal(t, "alert(1)", m.Source)
}

func TestGathererPublishesErrorOnMissingFile(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	diag := log.NewBus()
	set := moduleset.New(diag, fetch.NewResolver(nil))
	defer set.Close()

	chain := fetch.NewChain(fetch.NewFSFetcher(fs))
	New(set, chain, diag)

	id := ids.Tentative("file:///missing.js")
	set.Put(&moduleset.Module{
		ID: id,
		FetchCtx: moduleset.FetchContext{
			ImporterID:   ids.Tentative("file:///entry.js"),
			ImporterBase: "file:///",
		},
	})

	waitFor(t, func() bool {
		m, ok := set.Get(id)
		return ok && m.Stage() == moduleset.StageError
	})
}
