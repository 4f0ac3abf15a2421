// Package moduleset implements the central message bus of spec.md §4.1:
// a monotonic state store mapping module ids to lifecycle stages, with
// promotion notifications and a single-creator guarantee per canonical id.
package moduleset

import (
	"github.com/mstoykov/prebake/astx"
	"github.com/mstoykov/prebake/ids"
	"github.com/mstoykov/prebake/log"
)

// Stage is the module lifecycle's total order from spec.md §3. ERROR
// compares strictly greater than any non-error stage.
type Stage int

const (
	Unresolved Stage = iota
	Resolved
	Rewritten
	Output
	StageError
)

func (s Stage) String() string {
	switch s {
	case Unresolved:
		return "UNRESOLVED"
	case Resolved:
		return "RESOLVED"
	case Rewritten:
		return "REWRITTEN"
	case Output:
		return "OUTPUT"
	case StageError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Compare returns -1, 0, or 1 comparing a to b, honoring the rule that
// StageError is always greater than any non-error stage and equal only to
// itself.
func Compare(a, b Stage) int {
	switch {
	case a == b:
		return 0
	case a == StageError:
		return 1
	case b == StageError:
		return -1
	case a < b:
		return -1
	default:
		return 1
	}
}

// FetchContext records the importer id and line an UNRESOLVED module was
// discovered through, carried for diagnostics.
type FetchContext struct {
	ImporterID   ids.ID
	ImporterBase string
	Line         int
}

// Module is the lifecycle record of spec.md §3. Which of the optional
// fields are populated determines the module's Stage; Stage itself is
// computed, never stored redundantly, so it can never drift from the
// fields that back it.
type Module struct {
	ID       ids.ID
	Metadata Metadata

	FetchCtx FetchContext // only meaningful while Stage() == Unresolved

	Source       string
	OriginalAST  *astx.Program
	RewrittenAST *astx.Program
	SwissAST     *astx.Program
	OutputAST    *astx.Program

	Errors []log.Event
}

// Stage computes the module's lifecycle stage from which fields are
// populated, per spec.md §3 ("the stage of a module is a function of
// which fields are populated").
func (m *Module) Stage() Stage {
	switch {
	case len(m.Errors) > 0:
		return StageError
	case m.OutputAST != nil:
		return Output
	case m.RewrittenAST != nil:
		return Rewritten
	case m.OriginalAST != nil, m.Source != "":
		return Resolved
	default:
		return Unresolved
	}
}

// WithError returns a copy of m promoted to the error stage, with err
// appended to its diagnostics. Once a module is an error module, further
// WithError calls keep accumulating diagnostics (merge-errors, §7).
func (m *Module) WithError(ev log.Event) *Module {
	cp := *m
	cp.Errors = append(append([]log.Event(nil), m.Errors...), ev)
	return &cp
}

// MergeErrors appends another module's diagnostics onto m's, per the §4.1
// put-rule 1 ("merge the incoming module's diagnostics into it").
func (m *Module) MergeErrors(other *Module) *Module {
	cp := *m
	cp.Errors = append(append([]log.Event(nil), m.Errors...), other.Errors...)
	return &cp
}
