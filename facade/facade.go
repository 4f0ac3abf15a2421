// Package facade implements spec.md §4.6: the prebakery entry point that
// binds module set, gatherer, and rewriter driver together, taking a list
// of entry specifiers and returning the populated module set plus a
// specifier-to-id map.
package facade

import (
	"context"
	"fmt"

	"github.com/mstoykov/prebake/fetch"
	"github.com/mstoykov/prebake/gatherer"
	"github.com/mstoykov/prebake/log"
	"github.com/mstoykov/prebake/moduleset"
	"github.com/mstoykov/prebake/parse"
	"github.com/mstoykov/prebake/rewriter"
)

// Prebakery wires the module-lifecycle pipeline end to end.
type Prebakery struct {
	Set      *moduleset.Set
	Gatherer *gatherer.Gatherer
	Rewriter *rewriter.Driver
}

// New constructs a Prebakery over chain (the fetcher chain), resolver
// (specifier resolution), parser (the external parser), and external
// (the instrumentation external that produces rewritten/swiss/output
// ASTs once a job completes).
func New(diag *log.Bus, resolver *fetch.Resolver, chain *fetch.Chain, parser parse.Parser, external rewriter.External) *Prebakery {
	set := moduleset.New(diag, resolver)
	g := gatherer.New(set, chain, diag)
	r := rewriter.New(set, parser, external, diag)
	return &Prebakery{Set: set, Gatherer: g, Rewriter: r}
}

// Close releases the mailbox goroutines backing the set and the rewriter
// driver.
func (p *Prebakery) Close() {
	p.Rewriter.Close()
	p.Set.Close()
}

// Result is what Run returns: the module set (now populated) and a map
// from each requested entry specifier to the module id it resolved to.
type Result struct {
	Set          *moduleset.Set
	SpecifierIDs map[string]string // entry specifier -> module id key
}

// Run calls fetch on each entry specifier relative to baseID, then awaits
// promotion to REWRITTEN for every one that did not immediately error,
// per §4.6.
func (p *Prebakery) Run(ctx context.Context, entries []string, baseID string) (*Result, error) {
	fctx := moduleset.FetchContext{ImporterBase: baseID}

	specIDs := make(map[string]string, len(entries))
	waits := make([]waitEntry, 0, len(entries))

	for _, spec := range entries {
		m, err := p.Set.Fetch(spec, fctx)
		if err != nil {
			return nil, fmt.Errorf("facade: fetch %q: %w", spec, err)
		}
		specIDs[spec] = m.ID.Key()
		if m.Stage() == moduleset.StageError {
			continue
		}
		waits = append(waits, waitEntry{spec: spec, module: m})
	}

	for _, w := range waits {
		ch := p.Set.OnPromotedTo(w.module, moduleset.Rewritten)
		select {
		case settled := <-ch:
			specIDs[w.spec] = settled.ID.Key()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return &Result{Set: p.Set, SpecifierIDs: specIDs}, nil
}

type waitEntry struct {
	spec   string
	module *moduleset.Module
}
