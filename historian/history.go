package historian

import "sync"

// History is the per-object record of §4.5's GLOSSARY: an origin event,
// an ordered list of change events, and the wrapper handed to early code.
type History struct {
	ID           uint64
	Origin       Event
	ChangeEvents []Event
	Wrapper      interface{} // the goja.Value/Object handed to early code
}

// Recorder owns every object's History for the lifetime of a single
// prebake run. Objects are related to their wrappers by two mappings
// (object->history, wrapper->object) so a wrapper can always be resolved
// back to its backing object. Both maps hold strong references, so every
// recorded object and wrapper stays alive as long as the Recorder does.
type Recorder struct {
	mu        sync.Mutex
	seq       sequence
	nextID    uint64
	byID      map[uint64]*History
	objToID   map[interface{}]uint64 // backing object identity -> History.ID
	wrapToID  map[interface{}]uint64 // wrapper identity -> History.ID
}

// New constructs an empty Recorder. It records no event; Bootstrap
// installs the root `get-global` event.
func New() *Recorder {
	r := &Recorder{
		byID:     make(map[uint64]*History),
		objToID:  make(map[interface{}]uint64),
		wrapToID: make(map[interface{}]uint64),
	}
	return r
}

// Bootstrap installs the root get-global event and wraps global's
// well-known constructor bindings, so every object a replayer could need
// is reachable through a deterministic access path: each constructor's
// origin is a `get` of its name on the global. wellKnown maps each
// constructor name to its live value; it is supplied by the caller (the
// goja-backed wiring in proxy.go) rather than discovered here, since this
// package has no opinion on which runtime hosts the global.
func (r *Recorder) Bootstrap(global interface{}, wellKnown map[string]interface{}) uint64 {
	r.mu.Lock()
	rootID := r.newHistoryLocked(global)
	r.byID[rootID].Origin = Event{Seq: r.seq.next(), Kind: KindGetGlobal, Object: rootID}
	r.mu.Unlock()

	for name, v := range wellKnown {
		r.Wrap(v, Event{Kind: KindGet, Key: name, Target: Ref{ObjectID: rootID}})
	}
	return rootID
}

func (r *Recorder) newHistoryLocked(obj interface{}) uint64 {
	r.nextID++
	id := r.nextID
	r.byID[id] = &History{ID: id}
	r.objToID[obj] = id
	return id
}

// Wrap returns the History backing obj, creating one (with the given
// origin event) if this is the first time obj has been seen. Calling Wrap
// twice on the same backing object returns the same History — the
// recorder creates exactly one wrapper per distinct object, per §4.5.
func (r *Recorder) Wrap(obj interface{}, origin Event) *History {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.objToID[obj]; ok {
		return r.byID[id]
	}
	id := r.newHistoryLocked(obj)
	origin.Seq = r.seq.next()
	origin.Object = id
	r.byID[id].Origin = origin
	return r.byID[id]
}

// BindWrapper records which wrapper value stands in for a History's
// backing object, so a later lookup can resolve wrapper -> object.
func (r *Recorder) BindWrapper(h *History, wrapper interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h.Wrapper = wrapper
	r.wrapToID[wrapper] = h.ID
}

// HistoryForWrapper resolves a wrapper value back to its History.
func (r *Recorder) HistoryForWrapper(wrapper interface{}) (*History, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.wrapToID[wrapper]
	if !ok {
		return nil, false
	}
	return r.byID[id], true
}

// HistoryForObject resolves a backing object back to its History.
func (r *Recorder) HistoryForObject(obj interface{}) (*History, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.objToID[obj]
	if !ok {
		return nil, false
	}
	return r.byID[id], true
}

// Record appends a mutation event to obj's history, assigning it the next
// sequence number. obj must already have been Wrap'd. Record is a no-op
// (reported via ok=false) if obj was never wrapped, matching §4.5's
// "presenting a value that was never wrapped ... is an error" — callers
// that need a hard failure should check ok themselves; Record doesn't
// panic because several traps (e.g. a getter invoked on a just-read
// property) fire on values whose wrap status the trap itself cannot
// always guarantee without an extra round trip.
func (r *Recorder) Record(obj interface{}, ev Event) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.objToID[obj]
	if !ok {
		return Event{}, false
	}
	ev.Seq = r.seq.next()
	ev.Object = id
	h := r.byID[id]
	if ev.Kind.IsMutation() {
		h.ChangeEvents = append(h.ChangeEvents, ev)
	}
	return ev, true
}

// RefFor builds a Ref for a value: if the value has already been
// wrapped, an object Ref; otherwise a plain passthrough Ref (booleans,
// numbers, strings pass through unwrapped per §4.5).
func (r *Recorder) RefFor(v interface{}) Ref {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.objToID[v]; ok {
		return Ref{ObjectID: id}
	}
	return Ref{Value: v}
}

// history looks up a History by id without taking r.mu; the caller must
// already hold it (Compact does).
func (r *Recorder) history(id uint64) (*History, bool) {
	h, ok := r.byID[id]
	return h, ok
}
