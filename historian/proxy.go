package historian

import (
	"fmt"

	"github.com/dop251/goja"
)

// Instrumenter wires a Recorder to a goja.Runtime: it wraps live values
// in goja.Proxy interposition objects per the trap table in spec.md §4.5.
// goja is the only embeddable ECMAScript runtime in the dependency stack,
// so the recorder's interposition layer is necessarily expressed against
// its Proxy API (Runtime.NewProxy + ProxyTrapConfig) rather than some
// runtime-neutral shim.
type Instrumenter struct {
	rt  *goja.Runtime
	rec *Recorder
}

// NewInstrumenter builds an Instrumenter over rt, backed by rec.
func NewInstrumenter(rt *goja.Runtime, rec *Recorder) *Instrumenter {
	return &Instrumenter{rt: rt, rec: rec}
}

// Bootstrap installs the root get-global event and wraps the runtime's
// well-known constructors (Object, Array, Function, ...), per §4.5.
func (ins *Instrumenter) Bootstrap(wellKnown ...string) goja.Value {
	global := ins.rt.GlobalObject()
	bindings := make(map[string]interface{}, len(wellKnown))
	for _, name := range wellKnown {
		if v := global.Get(name); v != nil && !goja.IsUndefined(v) {
			bindings[name] = v
		}
	}
	ins.rec.Bootstrap(global, toAnyMap(bindings))
	return ins.WrapValue(global)
}

func toAnyMap(m map[string]interface{}) map[string]interface{} { return m }

// WrapValue returns the wrapper for v, creating a fresh goja.Proxy the
// first time an object/function value is seen. Non-object values pass
// through unwrapped per §4.5.
func (ins *Instrumenter) WrapValue(v goja.Value) goja.Value {
	obj, ok := v.(*goja.Object)
	if !ok {
		return v
	}
	if h, ok := ins.rec.HistoryForObject(obj); ok && h.Wrapper != nil {
		return h.Wrapper.(goja.Value)
	}
	h := ins.rec.Wrap(obj, Event{Kind: KindGet})
	proxy := ins.rt.NewProxy(obj, ins.trapConfig(obj, h))
	proxyVal := ins.rt.ToValue(proxy)
	ins.rec.BindWrapper(h, proxyVal)
	return proxyVal
}

// objectStatic looks up one of the standard Object.* static methods
// (getOwnPropertyDescriptor, preventExtensions, isExtensible, ...) and
// returns it as a callable. goja's *Object has no Go-level equivalent for
// these in this version, so the traps below reach them the same way any
// other embedder script would: through the global Object constructor.
func (ins *Instrumenter) objectStatic(name string) (goja.Callable, error) {
	ctor, ok := ins.rt.GlobalObject().Get("Object").(*goja.Object)
	if !ok {
		return nil, fmt.Errorf("global Object constructor is missing")
	}
	fn, ok := goja.AssertFunction(ctor.Get(name))
	if !ok {
		return nil, fmt.Errorf("Object.%s is not callable", name)
	}
	return fn, nil
}

func (ins *Instrumenter) getOwnPropertyDescriptor(target *goja.Object, property string) goja.PropertyDescriptor {
	fn, err := ins.objectStatic("getOwnPropertyDescriptor")
	if err != nil {
		return goja.PropertyDescriptor{}
	}
	result, err := fn(goja.Undefined(), target, ins.rt.ToValue(property))
	if err != nil {
		return goja.PropertyDescriptor{}
	}
	descObj, ok := result.(*goja.Object)
	if !ok {
		return goja.PropertyDescriptor{}
	}
	var desc goja.PropertyDescriptor
	if v := descObj.Get("value"); v != nil && !goja.IsUndefined(v) {
		desc.Value = v
	}
	desc.Writable = goja.ToFlag(descObj.Get("writable") != nil && descObj.Get("writable").ToBoolean())
	desc.Enumerable = goja.ToFlag(descObj.Get("enumerable") != nil && descObj.Get("enumerable").ToBoolean())
	desc.Configurable = goja.ToFlag(descObj.Get("configurable") != nil && descObj.Get("configurable").ToBoolean())
	if g := descObj.Get("get"); g != nil && !goja.IsUndefined(g) {
		desc.Getter = g
	}
	if s := descObj.Get("set"); s != nil && !goja.IsUndefined(s) {
		desc.Setter = s
	}
	return desc
}

func (ins *Instrumenter) trapConfig(target *goja.Object, h *History) *goja.ProxyTrapConfig {
	return &goja.ProxyTrapConfig{
		Get: func(_ *goja.Object, property string, _ goja.Value) goja.Value {
			val := target.Get(property)
			// A plain data read is not itself recorded; only a read that
			// runs a user-defined getter is (per the trap table).
			desc := ins.getOwnPropertyDescriptor(target, property)
			if desc.IsAccessor() {
				ins.rec.Record(target, Event{
					Kind:   KindGet,
					Key:    property,
					Target: ins.rec.RefFor(target),
				})
			}
			return ins.WrapValue(val)
		},
		Set: func(_ *goja.Object, property string, value goja.Value, _ goja.Value) bool {
			if err := target.Set(property, value); err != nil {
				return false
			}
			ins.rec.Record(target, Event{
				Kind:   KindSet,
				Key:    property,
				Target: ins.rec.RefFor(target),
				Value:  ins.rec.RefFor(unwrap(value)),
			})
			return true
		},
		DeleteProperty: func(_ *goja.Object, property string) bool {
			err := target.Delete(property)
			ins.rec.Record(target, Event{Kind: KindDelete, Key: property, Target: ins.rec.RefFor(target)})
			return err == nil
		},
		DefineProperty: func(_ *goja.Object, property string, descriptor goja.PropertyDescriptor) bool {
			var err error
			if descriptor.IsAccessor() {
				err = target.DefineAccessorProperty(
					property, descriptor.Getter, descriptor.Setter, descriptor.Configurable, descriptor.Enumerable,
				)
			} else {
				err = target.DefineDataProperty(
					property, descriptor.Value, descriptor.Writable, descriptor.Configurable, descriptor.Enumerable,
				)
			}
			ins.rec.Record(target, Event{
				Kind:       KindDefineProperty,
				Key:        property,
				Target:     ins.rec.RefFor(target),
				Descriptor: toDescriptor(ins, descriptor),
			})
			return err == nil
		},
		GetOwnPropertyDescriptor: func(_ *goja.Object, property string) goja.PropertyDescriptor {
			// Not a mutation of target, so nothing is recorded here. The
			// descriptor's value, getter and setter are returned as read
			// from target; they are not wrapped.
			return ins.getOwnPropertyDescriptor(target, property)
		},
		GetPrototypeOf: func(_ *goja.Object) *goja.Object {
			// No event per the trap table — reading the prototype just
			// returns a wrapper over it.
			proto := target.Prototype()
			if proto == nil {
				return nil
			}
			wrapped := ins.WrapValue(proto)
			if po, ok := wrapped.(*goja.Object); ok {
				return po
			}
			return proto
		},
		SetPrototypeOf: func(_ *goja.Object, proto *goja.Object) bool {
			if err := target.SetPrototype(proto); err != nil {
				return false
			}
			ins.rec.Record(target, Event{
				Kind:   KindSetPrototypeOf,
				Target: ins.rec.RefFor(target),
				Value:  ins.rec.RefFor(proto),
			})
			return true
		},
		PreventExtensions: func(_ *goja.Object) bool {
			fn, err := ins.objectStatic("preventExtensions")
			if err != nil {
				return false
			}
			if _, err := fn(goja.Undefined(), target); err != nil {
				return false
			}
			ins.rec.Record(target, Event{Kind: KindPreventExtensions, Target: ins.rec.RefFor(target)})
			return true
		},
		Apply: func(_ *goja.Object, this goja.Value, args []goja.Value) goja.Value {
			callable, _ := goja.AssertFunction(target)
			ret, err := callable(this, args...)
			if err != nil {
				panic(ins.rt.NewGoError(err))
			}
			if obj, ok := ret.(*goja.Object); ok {
				ins.rec.Wrap(obj, Event{
					Kind:   KindApply,
					Target: ins.rec.RefFor(target),
					This:   ins.rec.RefFor(unwrap(this)),
					Args:   refsFor(ins, args),
				})
			}
			return ins.WrapValue(ret)
		},
		Construct: func(_ *goja.Object, args []goja.Value, _ *goja.Object) *goja.Object {
			obj, err := ins.rt.New(target, args...)
			if err != nil {
				panic(ins.rt.NewGoError(err))
			}
			ins.rec.Wrap(obj, Event{
				Kind:   KindConstruct,
				Target: ins.rec.RefFor(target),
				Args:   refsFor(ins, args),
			})
			wrapped := ins.WrapValue(obj)
			if wo, ok := wrapped.(*goja.Object); ok {
				return wo
			}
			return obj
		},
	}
}

// CodeBind records the closure-capture origin of §4.5: a caller-supplied
// source handle plus the stack-frame objects the closure reads/writes.
func (ins *Instrumenter) CodeBind(fn goja.Value, sourceHandle interface{}, frames []goja.Value) {
	obj, ok := fn.(*goja.Object)
	if !ok {
		return
	}
	ins.rec.Wrap(obj, Event{
		Kind:         KindCodeBind,
		SourceHandle: sourceHandle,
		StackFrames:  refsFor(ins, frames),
	})
}

func refsFor(ins *Instrumenter, vals []goja.Value) []Ref {
	refs := make([]Ref, len(vals))
	for i, v := range vals {
		refs[i] = ins.rec.RefFor(unwrap(v))
	}
	return refs
}

func unwrap(v goja.Value) interface{} {
	if obj, ok := v.(*goja.Object); ok {
		return obj
	}
	return v
}

func toDescriptor(ins *Instrumenter, d goja.PropertyDescriptor) Descriptor {
	out := Descriptor{Writable: d.Writable.Bool(), Enumerable: d.Enumerable.Bool(), Configurable: d.Configurable.Bool()}
	if d.Value != nil {
		ref := ins.rec.RefFor(unwrap(d.Value))
		out.Value = &ref
		out.HasValue = true
	}
	if d.Getter != nil || d.Setter != nil {
		out.HasAccessor = true
		if d.Getter != nil {
			ref := ins.rec.RefFor(unwrap(d.Getter))
			out.Getter = &ref
		}
		if d.Setter != nil {
			ref := ins.rec.RefFor(unwrap(d.Setter))
			out.Setter = &ref
		}
	}
	return out
}
