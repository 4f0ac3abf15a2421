package moduleset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mstoykov/prebake/fetch"
	"github.com/mstoykov/prebake/ids"
	"github.com/mstoykov/prebake/log"
)

// TestMain verifies every mailbox goroutine a test starts (via New) is
// gone by the time the package's tests finish, catching a Set whose
// Close a test forgot to defer.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestSet() *Set {
	return New(log.NewBus(), fetch.NewResolver(nil))
}

func await(t *testing.T, ch <-chan *Module) *Module {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for promotion")
		return nil
	}
}

func TestPutStoresUnderBothKeys(t *testing.T) {
	t.Parallel()
	s := newTestSet()
	defer s.Close()

	id := ids.Canonical("file:///a.js", "file:///a/index.js")
	m := &Module{ID: id, Source: "1"}
	s.Put(m)

	byAbs, ok := s.Get(ids.Tentative("file:///a.js"))
	require.True(t, ok)
	assert.Equal(t, Resolved, byAbs.Stage())

	byCanon, ok := s.Get(ids.Tentative("file:///a/index.js"))
	require.True(t, ok)
	assert.Same(t, byAbs, byCanon)
}

func TestPutKeepsLaterStage(t *testing.T) {
	t.Parallel()
	s := newTestSet()
	defer s.Close()

	id := ids.Canonical("file:///a.js", "file:///a.js")
	s.Put(&Module{ID: id, Source: "x"})
	got := s.Put(&Module{ID: id})
	assert.Equal(t, Resolved, got.Stage())
}

func TestErrorModuleWinsAndMerges(t *testing.T) {
	t.Parallel()
	s := newTestSet()
	defer s.Close()

	id := ids.Canonical("file:///a.js", "file:///a.js")
	errEv := log.Event{Level: log.Error, Message: "boom"}
	s.Put(&Module{ID: id, Errors: []log.Event{errEv}})

	second := s.Put(&Module{ID: id, Errors: []log.Event{{Level: log.Error, Message: "again"}}})
	assert.Equal(t, StageError, second.Stage())
	assert.Len(t, second.Errors, 2)

	// A later, non-error module never displaces the stored error.
	still := s.Put(&Module{ID: id, Source: "ok"})
	assert.Equal(t, StageError, still.Stage())
}

func TestOnPromotedToFiresOnLaterPut(t *testing.T) {
	t.Parallel()
	s := newTestSet()
	defer s.Close()

	id := ids.Canonical("file:///a.js", "file:///a.js")
	unresolved := &Module{ID: id}
	s.Put(unresolved)

	ch := s.OnPromotedTo(unresolved, Resolved)
	s.Put(&Module{ID: id, Source: "x"})

	got := await(t, ch)
	assert.Equal(t, Resolved, got.Stage())
}

func TestOnPromotedToAlreadyPastStageFiresImmediately(t *testing.T) {
	t.Parallel()
	s := newTestSet()
	defer s.Close()

	id := ids.Canonical("file:///a.js", "file:///a.js")
	s.Put(&Module{ID: id, Source: "x"})

	ch := s.OnPromotedTo(&Module{ID: id}, Unresolved)
	got := await(t, ch)
	assert.Equal(t, Resolved, got.Stage())
}

func TestOnAnyPromotedToFiresForNewModules(t *testing.T) {
	t.Parallel()
	s := newTestSet()
	defer s.Close()

	seen := make(chan *Module, 1)
	s.OnAnyPromotedTo(Unresolved, func(m *Module) { seen <- m })

	id := ids.Tentative("file:///a.js")
	s.Put(&Module{ID: id})

	got := await(t, seen)
	assert.Equal(t, Unresolved, got.Stage())
}
