package moduleset

import (
	"context"
	"fmt"

	taskqueue "github.com/mstoykov/k6-taskqueue-lib/taskqueue"
	"github.com/mstoykov/prebake/fetch"
	"github.com/mstoykov/prebake/ids"
	"github.com/mstoykov/prebake/internal/mailbox"
	"github.com/mstoykov/prebake/log"
)

// waiter is a one-shot future for a module reaching a target stage.
type waiter struct {
	stage Stage
	done  chan *Module
}

// Set is the module-set bus of spec.md §4.1. All mutation is serialized
// through a single TaskQueue mailbox (mstoykov/k6-taskqueue-lib, the same
// single-consumer queue the teacher uses to funnel callbacks onto one
// event-loop goroutine; here internal/mailbox stands in for the JS event
// loop the library normally drains into) so the map access described
// informally in §4.1 never needs its own lock: every put/get/waiter-
// registration runs on one logical thread, satisfying spec.md §5's "no
// shared-memory synchronization primitives" requirement.
type Set struct {
	diag     *log.Bus
	resolver *fetch.Resolver

	modules map[string]*Module
	waiters map[string][]waiter

	newModuleCbs   []func(*Module)
	anyPromotedCbs map[Stage][]func(*Module)

	queue  *taskqueue.TaskQueue
	cancel context.CancelFunc
}

// New constructs an empty Set, starting its mailbox goroutine.
func New(diag *log.Bus, resolver *fetch.Resolver) *Set {
	s := &Set{
		diag:           diag,
		resolver:       resolver,
		modules:        make(map[string]*Module),
		waiters:        make(map[string][]waiter),
		anyPromotedCbs: make(map[Stage][]func(*Module)),
	}
	s.queue, s.cancel = mailbox.New()
	return s
}

// Close stops the mailbox goroutine. It is not part of spec.md's bus
// contract but is needed so tests don't leak goroutines (see goleak use in
// the package test).
func (s *Set) Close() {
	s.queue.Close()
	s.cancel()
}

// do runs f on the mailbox goroutine and blocks for its result.
func (s *Set) do(f func() any) any {
	result := make(chan any, 1)
	s.queue.Queue(func() error { //nolint:errcheck
		result <- f()
		return nil
	})
	return <-result
}

// Get looks up a module by either its absolute or canonical key.
func (s *Set) Get(id ids.ID) (*Module, bool) {
	v := s.do(func() any {
		if m, ok := s.modules[id.Key()]; ok {
			return m
		}
		if m, ok := s.modules[id.Abs()]; ok {
			return m
		}
		return nil
	})
	if v == nil {
		return nil, false
	}
	return v.(*Module), true
}

func (s *Set) keysFor(m *Module) []string {
	keys := []string{m.ID.Abs()}
	if canon, ok := m.ID.Canon(); ok {
		keys = append(keys, canon)
	}
	return keys
}

// Put reconciles an incoming module under the §4.1 put rules and returns
// the module now occupying that id.
func (s *Set) Put(m *Module) *Module {
	return s.do(func() any { return s.putLocked(m) }).(*Module)
}

func (s *Set) putLocked(incoming *Module) *Module {
	keys := s.keysFor(incoming)

	// Rule 1: either slot already an error module -> merge and return it.
	for _, k := range keys {
		if existing, ok := s.modules[k]; ok && existing.Stage() == StageError {
			merged := existing.MergeErrors(incoming)
			s.storeAt(keys, merged)
			return merged
		}
	}

	// Rule 2: incoming is itself an error -> store at both slots.
	if incoming.Stage() == StageError {
		s.storeAt(keys, incoming)
		s.notify(incoming, nil)
		return incoming
	}

	// Rule 3: either slot already at a later (non-error) stage -> keep it.
	for _, k := range keys {
		if existing, ok := s.modules[k]; ok && Compare(existing.Stage(), incoming.Stage()) >= 0 {
			return existing
		}
	}

	// Rule 4: store the incoming module.
	var olds []*Module
	for _, k := range keys {
		if existing, ok := s.modules[k]; ok {
			olds = append(olds, existing)
		}
	}
	s.storeAt(keys, incoming)
	s.notify(incoming, olds)
	return incoming
}

func (s *Set) storeAt(keys []string, m *Module) {
	for _, k := range keys {
		s.modules[k] = m
	}
}

// notify dispatches new-module and promotion callbacks per §4.1. olds are
// the module values that previously occupied incoming's keys, whose
// waiters must be resolved or transferred.
func (s *Set) notify(incoming *Module, olds []*Module) {
	stage := incoming.Stage()

	if stage == Unresolved {
		for _, cb := range s.newModuleCbs {
			s.safeCall(incoming, cb)
		}
	}

	if incoming.ID.IsCanonical() || stage == StageError {
		for _, old := range olds {
			oldKey := old.ID.Key()
			pending := s.waiters[oldKey]
			delete(s.waiters, oldKey)

			var kept []waiter
			for _, w := range pending {
				switch {
				case stage == StageError:
					w.done <- incoming
					close(w.done)
				case Compare(stage, w.stage) >= 0:
					w.done <- incoming
					close(w.done)
				default:
					kept = append(kept, w)
				}
			}
			if len(kept) > 0 {
				s.waiters[incoming.ID.Key()] = append(s.waiters[incoming.ID.Key()], kept...)
			}
		}
	}

	for _, cb := range s.anyPromotedCbs[stage] {
		s.safeCall(incoming, cb)
	}
}

// safeCall invokes cb, reporting a panic to diagnostics instead of letting
// it abort dispatch to the other callbacks (§4.1: "Callback failures are
// caught and reported to diagnostics").
func (s *Set) safeCall(m *Module, cb func(*Module)) {
	defer func() {
		if r := recover(); r != nil && s.diag != nil {
			s.diag.Errorf(m.ID.String(), 0, "callback panic: %v", r)
		}
	}()
	cb(m)
}

// OnAnyPromotedTo registers interest in any module arriving at stage.
func (s *Set) OnAnyPromotedTo(stage Stage, cb func(*Module)) {
	s.do(func() any {
		s.anyPromotedCbs[stage] = append(s.anyPromotedCbs[stage], cb)
		return nil
	})
}

// OnPromotedTo returns a channel that receives m (or an error module) once
// it reaches stage. The channel is closed after the result is delivered.
func (s *Set) OnPromotedTo(m *Module, stage Stage) <-chan *Module {
	out := make(chan *Module, 1)
	s.do(func() any {
		current, ok := s.modules[m.ID.Key()]
		if !ok {
			current = m
		}
		if Compare(current.Stage(), stage) >= 0 {
			out <- current
			close(out)
			return nil
		}
		s.waiters[current.ID.Key()] = append(s.waiters[current.ID.Key()], waiter{stage: stage, done: out})
		return nil
	})
	return out
}

// Fetch resolves specifier relative to fctx.ImporterBase, constructs a
// tentative id, and Puts a fresh UNRESOLVED module unless one is already
// present under the same absolute key, whichever importer fetched it.
func (s *Set) Fetch(specifier string, fctx FetchContext) (*Module, error) {
	resolved, err := s.resolver.Resolve(specifier, fctx.ImporterBase)
	if err != nil {
		return nil, err
	}
	return s.do(func() any {
		if existing, ok := s.modules[resolved]; ok {
			return existing
		}
		m := &Module{
			ID:       ids.Tentative(resolved),
			Metadata: NewMetadata(fctx.ImporterBase),
			FetchCtx: fctx,
		}
		return s.putLocked(m)
	}).(*Module), nil
}

// PublishError is a convenience used by collaborators (gatherer, rewriter
// driver) to push a terminal error module for id.
func (s *Set) PublishError(id ids.ID, kind string, err error) *Module {
	ev := log.Event{Level: log.Error, ModuleID: id.String(), Message: fmt.Sprintf("%s: %v", kind, err)}
	m := &Module{ID: id, Errors: []log.Event{ev}}
	return s.Put(m)
}
