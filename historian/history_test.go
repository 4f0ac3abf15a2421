package historian

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeObj stands in for a goja.Object: the Recorder only ever needs
// identity (map-key) semantics from its "object" parameter, so a plain
// pointer exercises the bookkeeping without a real runtime.
type fakeObj struct{ name string }

func TestWrapIsIdempotentPerObject(t *testing.T) {
	t.Parallel()
	rec := New()
	obj := &fakeObj{name: "a"}

	h1 := rec.Wrap(obj, Event{Kind: KindGetGlobal})
	h2 := rec.Wrap(obj, Event{Kind: KindGetGlobal})
	assert.Same(t, h1, h2)
	assert.Equal(t, KindGetGlobal, h1.Origin.Kind)
}

func TestRecordAppendsOnlyMutationEvents(t *testing.T) {
	t.Parallel()
	rec := New()
	obj := &fakeObj{name: "a"}
	rec.Wrap(obj, Event{Kind: KindGetGlobal})

	_, ok := rec.Record(obj, Event{Kind: KindSet, Key: "x"})
	require.True(t, ok)
	_, ok = rec.Record(obj, Event{Kind: KindGetPrototypeOf})
	require.True(t, ok)

	h, ok := rec.HistoryForObject(obj)
	require.True(t, ok)
	require.Len(t, h.ChangeEvents, 1)
	assert.Equal(t, KindSet, h.ChangeEvents[0].Kind)
}

func TestRecordOnUnwrappedObjectReportsNotOK(t *testing.T) {
	t.Parallel()
	rec := New()
	_, ok := rec.Record(&fakeObj{}, Event{Kind: KindSet})
	assert.False(t, ok)
}

func TestWrapperRoundTrip(t *testing.T) {
	t.Parallel()
	rec := New()
	obj := &fakeObj{name: "a"}
	h := rec.Wrap(obj, Event{Kind: KindGetGlobal})
	rec.BindWrapper(h, "wrapper-for-a")

	got, ok := rec.HistoryForWrapper("wrapper-for-a")
	require.True(t, ok)
	assert.Equal(t, h.ID, got.ID)
}

func TestCompactCollectsReachableObjectsInSequenceOrder(t *testing.T) {
	t.Parallel()
	rec := New()

	root := &fakeObj{name: "root"}
	child := &fakeObj{name: "child"}

	rec.Wrap(root, Event{Kind: KindGetGlobal})
	rec.Wrap(child, Event{Kind: KindApply})
	// root.set("child", child) links them together for the worklist walk.
	rec.Record(root, Event{Kind: KindSet, Key: "child", Value: rec.RefFor(child)})

	events, err := rec.Compact([]interface{}{root})
	require.NoError(t, err)

	require.NotEmpty(t, events)
	for i := 1; i < len(events); i++ {
		assert.LessOrEqual(t, events[i-1].Seq, events[i].Seq)
	}

	var sawChildOrigin bool
	for _, ev := range events {
		if ev.Kind == KindApply {
			sawChildOrigin = true
		}
	}
	assert.True(t, sawChildOrigin, "child's origin event should be reachable from root's set event")
}

func TestCompactRejectsNeverWrappedRoot(t *testing.T) {
	t.Parallel()
	rec := New()
	_, err := rec.Compact([]interface{}{&fakeObj{name: "stray"}})
	assert.Error(t, err)
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	t.Parallel()
	rec := New()
	root := &fakeObj{name: "root"}
	rec.Wrap(root, Event{Kind: KindGetGlobal})
	rec.Record(root, Event{Kind: KindSet, Key: "x", Value: Ref{Value: float64(42)}})

	events, err := rec.Compact([]interface{}{root})
	require.NoError(t, err)

	blob, err := Serialize(events)
	require.NoError(t, err)
	assert.NotEmpty(t, blob)

	back, err := Deserialize(blob)
	require.NoError(t, err)
	require.Len(t, back, len(events))
	assert.Equal(t, events[0].Kind, back[0].Kind)
	assert.Equal(t, events[1].Key, back[1].Key)
}

func TestBootstrapWrapsWellKnownBindings(t *testing.T) {
	t.Parallel()
	rec := New()
	global := &fakeObj{name: "global"}
	objectCtor := &fakeObj{name: "Object"}

	rec.Bootstrap(global, map[string]interface{}{"Object": objectCtor})

	gh, ok := rec.HistoryForObject(global)
	require.True(t, ok)
	assert.Equal(t, KindGetGlobal, gh.Origin.Kind)

	oh, ok := rec.HistoryForObject(objectCtor)
	require.True(t, ok)
	assert.Equal(t, KindGet, oh.Origin.Kind)
}
