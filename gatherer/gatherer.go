// Package gatherer implements spec.md §4.2: it listens for unresolved
// modules, canonicalizes and fetches them through a fetcher chain, and
// publishes resolved or error modules back onto the bus.
package gatherer

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/mstoykov/prebake/errext"
	"github.com/mstoykov/prebake/fetch"
	"github.com/mstoykov/prebake/log"
	"github.com/mstoykov/prebake/moduleset"
)

// Gatherer wires a fetcher Chain to a Set.
type Gatherer struct {
	set     *moduleset.Set
	chain   *fetch.Chain
	diag    *log.Bus
	inflight singleflight.Group
}

// New subscribes to set's UNRESOLVED promotions and starts gathering them
// through chain.
func New(set *moduleset.Set, chain *fetch.Chain, diag *log.Bus) *Gatherer {
	g := &Gatherer{set: set, chain: chain, diag: diag}
	set.OnAnyPromotedTo(moduleset.Unresolved, g.handle)
	return g
}

// dedupKey implements the §8 invariant: at most one fetch per
// (importer-abs, importer-canon, target-abs, target-canon) quadruple.
// Canonicalization alone is enough to alias modules together, so the key
// is built from what's known before canonicalizing (importer abs/canon and
// target abs) plus the target's canonical form once it is known; here we
// use only the three pre-canonicalization parts to gate the work itself,
// matching "the gatherer does not re-fetch on retry".
func dedupKey(m *moduleset.Module) string {
	importerCanon, _ := m.FetchCtx.ImporterID.Canon()
	return fmt.Sprintf("%s|%s|%s", m.FetchCtx.ImporterID.Abs(), importerCanon, m.ID.Abs())
}

func (g *Gatherer) handle(m *moduleset.Module) {
	key := dedupKey(m)
	g.inflight.Do(key, func() (interface{}, error) { //nolint:errcheck
		g.gather(m)
		return nil, nil
	})
}

func (g *Gatherer) gather(m *moduleset.Module) {
	ctx := context.Background()
	base := m.FetchCtx.ImporterBase

	canonRes := g.chain.Canonicalize(ctx, m.ID.Abs(), base)
	if canonRes.Outcome != fetch.Understood {
		err := canonRes.Error
		if err == nil {
			err = fmt.Errorf("no fetcher understood %q", m.ID.Abs())
		}
		g.publishError(m, errext.KindCanonicalize, err)
		return
	}
	canonID := m.ID.WithCanonical(canonRes.Value)

	fetchRes := g.chain.Fetch(ctx, canonRes.Value, base)
	if fetchRes.Outcome != fetch.Understood {
		err := fetchRes.Error
		if err == nil {
			err = fmt.Errorf("no fetcher understood %q", canonRes.Value)
		}
		g.publishError(m, errext.KindFetch, err)
		return
	}

	resolved := &moduleset.Module{
		ID:       canonID,
		Metadata: m.Metadata,
		Source:   fetchRes.Value.Source,
	}
	for k, v := range fetchRes.Value.Properties {
		resolved.Metadata.Properties = resolved.Metadata.Properties.Set(k, v)
	}
	g.set.Put(resolved)
}

func (g *Gatherer) publishError(m *moduleset.Module, kind errext.Kind, cause error) {
	err := errext.WithKind(cause, kind)
	ev := log.Event{
		Level:    log.Error,
		ModuleID: m.ID.String(),
		Line:     m.FetchCtx.Line,
		Message:  err.Error(),
	}
	if g.diag != nil {
		g.diag.Errorf(ev.ModuleID, ev.Line, "%s", ev.Message)
	}
	g.set.Put(&moduleset.Module{ID: m.ID, Errors: []log.Event{ev}})
}
