package historian

import (
	"github.com/dop251/goja"
	"github.com/tidwall/gjson"
)

// InterceptJSON replaces the runtime's JSON.parse with one that builds
// its result through the recorder rather than goja's native deserializer,
// per §4.5's "JSON-like materialization": every object/array materialized
// out of the input text gets its own construct(%Object%)/construct(%Array%)
// and define-property events, exactly as if early code had built it by
// hand, so nothing slips past interposition. Parsing itself is done with
// tidwall/gjson, which walks the raw text without round-tripping through
// goja's own (uninstrumented) JSON decoder.
func (ins *Instrumenter) InterceptJSON() {
	jsonObj := ins.rt.GlobalObject().Get("JSON")
	obj, ok := jsonObj.(*goja.Object)
	if !ok {
		return
	}
	_ = obj.Set("parse", func(call goja.FunctionCall) goja.Value {
		text := call.Argument(0).String()
		if !gjson.Valid(text) {
			panic(ins.rt.NewTypeError("invalid JSON"))
		}
		result := gjson.Parse(text)
		return ins.materialize(result)
	})
}

// materialize recursively builds result as real goja values, recording a
// construct event (and define-property events for each member) for every
// object/array it creates.
func (ins *Instrumenter) materialize(v gjson.Result) goja.Value {
	switch {
	case v.IsObject():
		obj := ins.rt.NewObject()
		ins.rec.Wrap(obj, Event{Kind: KindConstruct, Target: Ref{Value: "%Object%"}})
		v.ForEach(func(key, val gjson.Result) bool {
			member := ins.materialize(val)
			_ = obj.Set(key.String(), member)
			ins.rec.Record(obj, Event{
				Kind:       KindDefineProperty,
				Key:        key.String(),
				Target:     ins.rec.RefFor(obj),
				Descriptor: Descriptor{HasValue: true, Value: refPtr(ins.rec.RefFor(unwrap(member))), Writable: true, Enumerable: true, Configurable: true},
			})
			return true
		})
		return ins.WrapValue(obj)
	case v.IsArray():
		var elems []goja.Value
		v.ForEach(func(_, val gjson.Result) bool {
			elems = append(elems, ins.materialize(val))
			return true
		})
		arr := ins.rt.NewArray(toAnySlice(elems)...)
		ins.rec.Wrap(arr, Event{Kind: KindConstruct, Target: Ref{Value: "%Array%"}})
		for i, el := range elems {
			ins.rec.Record(arr, Event{
				Kind:       KindDefineProperty,
				Key:        indexKey(i),
				Target:     ins.rec.RefFor(arr),
				Descriptor: Descriptor{HasValue: true, Value: refPtr(ins.rec.RefFor(unwrap(el))), Writable: true, Enumerable: true, Configurable: true},
			})
		}
		return ins.WrapValue(arr)
	case v.Type == gjson.String:
		return ins.rt.ToValue(v.String())
	case v.Type == gjson.Number:
		return ins.rt.ToValue(v.Num)
	case v.Type == gjson.True, v.Type == gjson.False:
		return ins.rt.ToValue(v.Bool())
	default:
		return goja.Null()
	}
}

func refPtr(r Ref) *Ref { return &r }

func toAnySlice(vals []goja.Value) []interface{} {
	out := make([]interface{}, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func indexKey(i int) string {
	if i == 0 {
		return "0"
	}
	digits := "0123456789"
	var out []byte
	for i > 0 {
		out = append([]byte{digits[i%10]}, out...)
		i /= 10
	}
	return string(out)
}
