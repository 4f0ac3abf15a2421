// Package errext defines typed errors shared across the prebakery: a Kind
// for each §7 error category plus hint attachment, in the style of the
// teacher's errext package (WithHint/HasHint, but Kind instead of exit
// codes since this library has no process to exit).
package errext

import "fmt"

// Kind enumerates the error categories from spec.md §7.
type Kind string

const (
	// KindSpecifierResolution: a specifier could not be resolved to any
	// absolute URL.
	KindSpecifierResolution Kind = "specifier-resolution"
	// KindCanonicalize: the fetcher chain failed to canonicalize a URL.
	KindCanonicalize Kind = "canonicalize"
	// KindFetch: the fetcher chain failed to fetch a canonical id.
	KindFetch Kind = "fetch"
	// KindParse: the source failed to parse.
	KindParse Kind = "parse"
	// KindDependency: a dependency of this module failed.
	KindDependency Kind = "dependency"
	// KindRecorder: a programmer error in the object-graph recorder.
	KindRecorder Kind = "recorder"
)

// HasHint is implemented by errors carrying a user-facing hint.
type HasHint interface {
	error
	Hint() string
}

// HasKind is implemented by errors carrying an errext.Kind.
type HasKind interface {
	error
	Kind() Kind
}

type hintError struct {
	err  error
	hint string
}

func (e hintError) Error() string { return e.err.Error() }
func (e hintError) Unwrap() error { return e.err }
func (e hintError) Hint() string  { return e.hint }

// WithHint attaches a hint to err. If err already has a hint, the new hint
// is prefixed and the old hint parenthesized, so hints compose outward to
// inward. WithHint(nil, ...) returns nil.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	var existing HasHint
	if asHint(err, &existing) {
		hint = fmt.Sprintf("%s (%s)", hint, existing.Hint())
	}
	return hintError{err: err, hint: hint}
}

type kindError struct {
	err  error
	kind Kind
}

func (e kindError) Error() string { return e.err.Error() }
func (e kindError) Unwrap() error { return e.err }
func (e kindError) Kind() Kind    { return e.kind }

// WithKind attaches kind to err unless err already carries a Kind.
// WithKind(nil, ...) returns nil.
func WithKind(err error, kind Kind) error {
	if err == nil {
		return nil
	}
	var existing HasKind
	if asKind(err, &existing) {
		return err
	}
	return kindError{err: err, kind: kind}
}

// asHint and asKind are small errors.As shims kept local so this package
// does not need to import errors just for two call sites twice over.
func asHint(err error, target *HasHint) bool {
	for err != nil {
		if h, ok := err.(HasHint); ok {
			*target = h
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func asKind(err error, target *HasKind) bool {
	for err != nil {
		if k, ok := err.(HasKind); ok {
			*target = k
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// KindOf returns the Kind carried by err, or "" if none.
func KindOf(err error) Kind {
	var k HasKind
	if asKind(err, &k) {
		return k.Kind()
	}
	return ""
}
