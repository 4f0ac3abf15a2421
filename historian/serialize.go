package historian

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/klauspost/compress/gzip"
)

// Compact implements §4.5's serialization (compaction) algorithm: given a
// set of root objects, produce the sequence of events needed to recreate
// them.
//
//  1. Start a worklist with the roots (after unwrapping).
//  2. For each unprocessed object, append its origin and change events.
//  3. For each such event, enqueue any object-typed operand.
//  4. Repeat until the worklist empties.
//  5. Stable-sort the collected events by sequence.
func (r *Recorder) Compact(roots []interface{}) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[uint64]bool)
	var worklist []uint64
	for _, root := range roots {
		id, ok := r.objToID[root]
		if !ok {
			return nil, fmt.Errorf("historian: object presented to Compact was never wrapped")
		}
		worklist = append(worklist, id)
	}

	var collected []Event
	for len(worklist) > 0 {
		id := worklist[0]
		worklist = worklist[1:]
		if seen[id] {
			continue
		}
		seen[id] = true

		h, ok := r.history(id)
		if !ok {
			return nil, fmt.Errorf("historian: dangling object id %d", id)
		}
		collected = append(collected, h.Origin)
		collected = append(collected, h.ChangeEvents...)

		for _, ev := range append([]Event{h.Origin}, h.ChangeEvents...) {
			for _, ref := range operands(ev) {
				if ref.IsObject() && !seen[ref.ObjectID] {
					worklist = append(worklist, ref.ObjectID)
				}
			}
		}
	}

	sort.SliceStable(collected, func(i, j int) bool { return collected[i].Seq < collected[j].Seq })
	return collected, nil
}

// operands extracts every object-typed Ref an event carries, per step 3
// of the compaction algorithm ("callee, this-value, arguments, written
// value, descriptor value/getter/setter").
func operands(ev Event) []Ref {
	refs := []Ref{ev.Target, ev.This, ev.Value}
	refs = append(refs, ev.Args...)
	refs = append(refs, ev.StackFrames...)
	if ev.Descriptor.HasValue {
		refs = append(refs, *ev.Descriptor.Value)
	}
	if ev.Descriptor.HasAccessor {
		if ev.Descriptor.Getter != nil {
			refs = append(refs, *ev.Descriptor.Getter)
		}
		if ev.Descriptor.Setter != nil {
			refs = append(refs, *ev.Descriptor.Setter)
		}
	}
	return refs
}

// wireEvent is the JSON-serializable projection of Event; Ref.Value holds
// only plain-old-data in this codec (numbers, strings, booleans, nil) —
// anything else is an object Ref and carries ObjectID instead.
type wireEvent struct {
	Seq          uint64      `json:"seq"`
	Kind         Kind        `json:"kind"`
	Object       uint64      `json:"object"`
	Key          string      `json:"key,omitempty"`
	Target       Ref         `json:"target,omitempty"`
	This         Ref         `json:"this,omitempty"`
	Args         []Ref       `json:"args,omitempty"`
	Value        Ref         `json:"value,omitempty"`
	Descriptor   Descriptor  `json:"descriptor,omitempty"`
	SourceHandle interface{} `json:"sourceHandle,omitempty"`
	StackFrames  []Ref       `json:"stackFrames,omitempty"`
}

// Serialize renders events as gzip-compressed JSON, the on-disk shape a
// reknitter later replays from. Compression via klauspost/compress mirrors
// the teacher's use of the same library for archive output.
func Serialize(events []Event) ([]byte, error) {
	wire := make([]wireEvent, len(events))
	for i, ev := range events {
		wire[i] = wireEvent(ev)
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("historian: marshal events: %w", err)
	}

	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, fmt.Errorf("historian: gzip writer: %w", err)
	}
	if _, err := gz.Write(raw); err != nil {
		return nil, fmt.Errorf("historian: gzip write: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("historian: gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

// Deserialize reverses Serialize.
func Deserialize(blob []byte) ([]Event, error) {
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("historian: gzip reader: %w", err)
	}
	defer gz.Close()

	var wire []wireEvent
	if err := json.NewDecoder(gz).Decode(&wire); err != nil {
		return nil, fmt.Errorf("historian: unmarshal events: %w", err)
	}
	events := make([]Event, len(wire))
	for i, w := range wire {
		events[i] = Event(w)
	}
	return events, nil
}
