// Package ids implements module identifiers: the tentative/canonical pair
// described as the "module identifier" in the data model.
package ids

// ID identifies a module. A tentative ID carries only the absolute URL it
// was first referenced by; a canonical ID additionally carries the
// canonicalized URL produced by a fetcher's Canonicalize step. IDs are
// immutable once created.
type ID struct {
	abs    string
	canon  string
	hasCan bool
}

// Tentative constructs a tentative ID from an absolute URL.
func Tentative(abs string) ID {
	return ID{abs: abs}
}

// Canonical constructs a canonical ID from an absolute URL and its
// canonicalized form.
func Canonical(abs, canon string) ID {
	return ID{abs: abs, canon: canon, hasCan: true}
}

// Abs returns the absolute URL.
func (i ID) Abs() string { return i.abs }

// Canon returns the canonicalized URL and whether one is present.
func (i ID) Canon() (string, bool) { return i.canon, i.hasCan }

// IsCanonical reports whether i carries a canonicalized URL.
func (i ID) IsCanonical() bool { return i.hasCan }

// Key returns the equality key: the canonical URL when present, otherwise
// the absolute URL.
func (i ID) Key() string {
	if i.hasCan {
		return i.canon
	}
	return i.abs
}

// WithCanonical returns a canonical ID sharing i's absolute URL.
func (i ID) WithCanonical(canon string) ID {
	return Canonical(i.abs, canon)
}

// String renders the ID for diagnostics.
func (i ID) String() string {
	if i.hasCan {
		return i.canon
	}
	return i.abs
}

// Equal reports whether two IDs share an equality key.
func (i ID) Equal(o ID) bool { return i.Key() == o.Key() }
