// Package parse pins the parser external named in spec.md §2/§6: the core
// treats it as a black-box peer behind the Parser interface, and only ever
// inspects the handful of astx node shapes §6 enumerates.
package parse

import "github.com/mstoykov/prebake/astx"

// Parser turns module source text into an astx.Program. Implementations
// are free to keep their own internal representation; only the shapes
// named in spec.md §6 need to surface through the returned Program.
type Parser interface {
	Parse(source string) (*astx.Program, error)
}
