// Package historian implements spec.md §4.5's object-graph recorder: a
// goja.Proxy-backed interposition layer that records every origin and
// mutation event early code performs on a live object, under a global
// monotonic sequence, and can later compact a root set down to the
// minimal event list needed to recreate it.
package historian

import "sync/atomic"

// Kind tags an Event as an origin (how a value came to exist) or a
// mutation (how it changed after).
type Kind string

const (
	KindGetGlobal               Kind = "get-global"
	KindGet                     Kind = "get"
	KindApply                   Kind = "apply"
	KindConstruct               Kind = "construct"
	KindCodeBind                Kind = "code-bind"
	KindGetPrototypeOf          Kind = "get-prototype-of"
	KindGetOwnPropertyDescriptor Kind = "get-own-property-descriptor"

	KindSet              Kind = "set"
	KindDelete           Kind = "delete"
	KindDefineProperty   Kind = "define-property"
	KindSetPrototypeOf   Kind = "set-prototype-of"
	KindPreventExtensions Kind = "prevent-extensions"
)

// mutationKinds are the Kind values recorded as change events; every other
// Kind only ever appears as an object's origin event. KindGet is present
// in both roles: it is the origin of a value first surfaced by a property
// read, and a change event on the read target's history when the read
// runs a user-defined getter.
var mutationKinds = map[Kind]bool{
	KindSet:               true,
	KindDelete:            true,
	KindDefineProperty:    true,
	KindSetPrototypeOf:    true,
	KindPreventExtensions: true,
	KindGet:               true,
}

// IsMutation reports whether k is recorded as a change-event rather than
// an origin-event.
func (k Kind) IsMutation() bool { return mutationKinds[k] }

// Descriptor mirrors a captured property descriptor, including an
// accessor pair, per §4.5 ("descriptor captured, including accessor
// pair").
type Descriptor struct {
	Value        *Ref
	Getter       *Ref
	Setter       *Ref
	Writable     bool
	Enumerable   bool
	Configurable bool
	HasValue     bool
	HasAccessor  bool
}

// Ref is an operand of an Event: either a wrapped object (ObjectID set)
// or a plain unwrapped primitive value (Value set, used verbatim by a
// replayer).
type Ref struct {
	ObjectID uint64 // 0 means "not an object", see IsObject
	Value    interface{}
}

// IsObject reports whether the ref refers to a recorded object rather
// than a passed-through primitive.
func (r Ref) IsObject() bool { return r.ObjectID != 0 }

// Event is one object-graph record, timestamped by a global monotonic
// sequence number so a replayer can reproduce the same observable graph
// by performing the selected events in sequence order.
type Event struct {
	Seq    uint64
	Kind   Kind
	Object uint64 // the object this event is filed under (history owner)

	Key        string // property key, when applicable
	Target     Ref    // `target` operand (get/set/delete/define/apply/construct callee)
	This       Ref    // `this` operand, for apply
	Args       []Ref  // argument list, for apply/construct
	Value      Ref    // written/returned value
	Descriptor Descriptor
	SourceHandle interface{} // caller-supplied recipe for code-bind
	StackFrames  []Ref       // closed-over frame objects, for code-bind
}

// sequence is the global monotonic counter of §4.5 ("A global monotonic
// counter stamps each event").
type sequence struct{ n uint64 }

func (s *sequence) next() uint64 { return atomic.AddUint64(&s.n, 1) }
