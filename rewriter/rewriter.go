// Package rewriter implements spec.md §4.4: it drives each resolved module
// through a per-module job state machine (unstarted -> started -> satisfied
// -> complete, *->error) to completion, then publishes the rewritten module.
package rewriter

import (
	"context"
	"fmt"

	taskqueue "github.com/mstoykov/k6-taskqueue-lib/taskqueue"

	"github.com/mstoykov/prebake/astx"
	"github.com/mstoykov/prebake/errext"
	"github.com/mstoykov/prebake/extract"
	"github.com/mstoykov/prebake/ids"
	"github.com/mstoykov/prebake/internal/mailbox"
	"github.com/mstoykov/prebake/log"
	"github.com/mstoykov/prebake/moduleset"
	"github.com/mstoykov/prebake/parse"
)

type jobState int

const (
	unstarted jobState = iota
	started
	satisfied
	complete
	jobError
)

// depRef is one outgoing specifier fetch of a job, matched against the
// finding it came from. The driver tracks settlement by the dep's resolved
// id rather than by AST node pointer identity (findings are plain values,
// not pointers back into the AST) — two findings for the same specifier
// settle independently, same as §4.4 describes.
type depRef struct {
	specifier string
	id        ids.ID
	settled   bool
}

// job is the rewriter's per-module bookkeeping record of spec.md's GLOSSARY.
type job struct {
	id                       ids.ID
	state                    jobState
	original                 *astx.Program
	findings                 []extract.Finding
	deps                     []*depRef
	reverseDeps              []ids.ID
	recursivelyDependsOnSelf bool
}

func (j *job) unresolvedCount() int {
	n := 0
	for _, d := range j.deps {
		if !d.settled {
			n++
		}
	}
	return n
}

// External is "the instrumentation external" of spec.md §4.4: given a
// job's original AST and findings, it produces the rewritten, swiss, and
// output ASTs. The driver is agnostic to how instrumentation works.
type External interface {
	Instrument(original *astx.Program, findings []extract.Finding) (rewritten, swiss, output *astx.Program, err error)
}

// Driver implements spec.md §4.4.
type Driver struct {
	set      *moduleset.Set
	parser   parse.Parser
	external External
	diag     *log.Bus

	jobs map[string]*job

	queue  *taskqueue.TaskQueue
	cancel context.CancelFunc
}

// New constructs a Driver and subscribes it to set's RESOLVED promotions.
// The driver runs its own mailbox (the same mstoykov/k6-taskqueue-lib
// queue moduleset.Set uses, bridged onto a plain goroutine by
// internal/mailbox in place of the JS event loop the library expects) so
// its job bookkeeping is never touched by two goroutines at once, matching
// spec.md §5's "no component is re-entered concurrently with itself".
func New(set *moduleset.Set, parser parse.Parser, external External, diag *log.Bus) *Driver {
	d := &Driver{
		set:      set,
		parser:   parser,
		external: external,
		diag:     diag,
		jobs:     make(map[string]*job),
	}
	d.queue, d.cancel = mailbox.New()
	set.OnAnyPromotedTo(moduleset.Resolved, d.onResolved)
	return d
}

// Close stops the driver's mailbox goroutine.
func (d *Driver) Close() {
	d.queue.Close()
	d.cancel()
}

// post enqueues f onto the driver's mailbox without waiting for it to run.
// It must never be awaited from inside a callback the module set itself
// invokes synchronously from its own mailbox goroutine — doing so would
// make that goroutine wait on the driver's queue while, symmetrically, the
// driver's queue can end up waiting back on the set's queue (e.g. a fetch
// request), deadlocking both single-consumer mailboxes against each other.
func (d *Driver) post(f func()) {
	d.queue.Queue(func() error { //nolint:errcheck
		f()
		return nil
	})
}

func (d *Driver) onResolved(m *moduleset.Module) {
	d.post(func() { d.start(m) })
}

func (d *Driver) start(m *moduleset.Module) {
	key := m.ID.Key()
	if _, ok := d.jobs[key]; ok {
		return
	}
	j := &job{id: m.ID, state: started}
	d.jobs[key] = j

	prog, err := d.parser.Parse(m.Source)
	if err != nil {
		d.fail(j, errext.WithKind(err, errext.KindParse))
		return
	}
	j.original = prog
	j.findings = extract.Extract(prog)

	for _, f := range j.findings {
		if !f.HasSpec {
			continue
		}
		dep := &depRef{specifier: f.Specifier}
		j.deps = append(j.deps, dep)
		d.requestFetch(j, dep, m)
	}
	d.checkSatisfied(j)
}

func (d *Driver) requestFetch(j *job, dep *depRef, m *moduleset.Module) {
	fctx := moduleset.FetchContext{ImporterID: m.ID, ImporterBase: base(m.ID)}
	target, err := d.set.Fetch(dep.specifier, fctx)
	if err != nil {
		d.fail(j, errext.WithKind(err, errext.KindSpecifierResolution))
		return
	}
	ch := d.set.OnPromotedTo(target, moduleset.Resolved)
	go func() {
		settled := <-ch
		d.post(func() { d.onDepSettled(j, dep, settled) })
	}()
}

func base(id ids.ID) string {
	if canon, ok := id.Canon(); ok {
		return canon
	}
	return id.Abs()
}

func (d *Driver) onDepSettled(j *job, dep *depRef, settled *moduleset.Module) {
	if j.state == jobError || j.state == complete {
		return
	}
	dep.id = settled.ID
	dep.settled = true
	d.addReverseDep(settled.ID, j.id)

	if settled.Stage() == moduleset.StageError {
		d.fail(j, errext.WithKind(fmt.Errorf("dependency %s failed", settled.ID), errext.KindDependency))
		return
	}
	d.checkSatisfied(j)
}

func (d *Driver) addReverseDep(depID, jobID ids.ID) {
	depJob, ok := d.jobs[depID.Key()]
	if !ok {
		return
	}
	for _, r := range depJob.reverseDeps {
		if r.Equal(jobID) {
			return
		}
	}
	depJob.reverseDeps = append(depJob.reverseDeps, jobID)
}

func (d *Driver) checkSatisfied(j *job) {
	if j.state != started || j.unresolvedCount() > 0 {
		return
	}
	j.state = satisfied
	d.checkComplete(j)
}

// checkComplete is the bounded re-check "every state transition of a dep
// triggers" per §4.4; it is a no-op unless j is currently satisfied.
func (d *Driver) checkComplete(j *job) {
	if j.state != satisfied {
		return
	}
	if !d.transitivelyComplete(j, nil) {
		return
	}
	j.state = complete
	d.finish(j)
	d.recheckReverseDeps(j)
}

// transitivelyComplete walks j's deps; stack holds the canonical keys of
// jobs on the current walk, implementing §4.4's cycle-tolerance rule.
func (d *Driver) transitivelyComplete(j *job, stack map[string]bool) bool {
	if stack == nil {
		stack = make(map[string]bool)
	}
	if stack[j.id.Key()] {
		j.recursivelyDependsOnSelf = true
		if d.diag != nil {
			d.diag.Infof(j.id.String(), 0, "recursively-depends-on-self")
		}
		return true
	}
	stack[j.id.Key()] = true
	defer delete(stack, j.id.Key())

	for _, dep := range j.deps {
		if !dep.settled {
			return false
		}
		depJob, ok := d.jobs[dep.id.Key()]
		if !ok {
			// Settled without ever becoming a rewriter job of its own (e.g.
			// it failed before reaching RESOLVED) — already accounted for
			// by onDepSettled's error check above.
			continue
		}
		if depJob.state == complete {
			continue
		}
		if !d.transitivelyComplete(depJob, stack) {
			return false
		}
	}
	return true
}

func (d *Driver) recheckReverseDeps(j *job) {
	for _, rd := range j.reverseDeps {
		if rj, ok := d.jobs[rd.Key()]; ok {
			d.checkComplete(rj)
		}
	}
}

func (d *Driver) finish(j *job) {
	rewritten, swiss, output, err := d.external.Instrument(j.original, j.findings)
	if err != nil {
		d.fail(j, err)
		return
	}
	d.set.Put(&moduleset.Module{
		ID:           j.id,
		OriginalAST:  j.original,
		RewrittenAST: rewritten,
		SwissAST:     swiss,
		OutputAST:    output,
	})
}

func (d *Driver) fail(j *job, cause error) {
	j.state = jobError
	ev := log.Event{Level: log.Error, ModuleID: j.id.String(), Message: cause.Error()}
	if d.diag != nil {
		d.diag.Errorf(ev.ModuleID, 0, "%s", ev.Message)
	}
	d.set.Put(&moduleset.Module{ID: j.id, Errors: []log.Event{ev}})
	d.recheckReverseDeps(j)
}
