package fetch

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// BuiltinSet reports whether a bare specifier names a built-in module,
// per spec.md §6 ("Bare specifier → built-in lookup first").
type BuiltinSet interface {
	IsBuiltin(specifier string) bool
}

// BuiltinList is a BuiltinSet backed by a plain set of names.
type BuiltinList map[string]struct{}

// IsBuiltin implements BuiltinSet.
func (b BuiltinList) IsBuiltin(specifier string) bool {
	_, ok := b[specifier]
	return ok
}

// Resolver resolves a module specifier string against a base URL using
// node_modules-style lookup, per spec.md §6.
type Resolver struct {
	Builtins BuiltinSet
	// ModulesDir names the directory walked upward from base, "node_modules"
	// by convention.
	ModulesDir string
	// ListDir lists the entries of a directory URL's path segment,
	// substituted in tests; nil means "assume nothing exists there" so bare
	// specifiers fall through to built-ins/URL resolution only.
	ListDir func(dirURL string) ([]string, error)
}

// NewResolver builds a Resolver defaulting ModulesDir to "node_modules".
func NewResolver(builtins BuiltinSet) *Resolver {
	return &Resolver{Builtins: builtins, ModulesDir: "node_modules"}
}

func isBare(specifier string) bool {
	return specifier != "" &&
		!strings.HasPrefix(specifier, "./") &&
		!strings.HasPrefix(specifier, "../") &&
		!strings.HasPrefix(specifier, "/") &&
		!strings.Contains(specifier, "://")
}

// Resolve implements spec.md §6's three-step lookup: built-in, then
// node_modules-style upward walk for bare specifiers, then URL resolution
// against base for everything else.
func (r *Resolver) Resolve(specifier, base string) (string, error) {
	if r.Builtins != nil && r.Builtins.IsBuiltin(specifier) {
		return "builtin:" + specifier, nil
	}
	if isBare(specifier) {
		if resolved, ok := r.walkNodeModules(specifier, base); ok {
			return resolved, nil
		}
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing base %q: %w", base, err)
	}
	specURL, err := url.Parse(specifier)
	if err != nil {
		return "", fmt.Errorf("parsing specifier %q: %w", specifier, err)
	}
	return baseURL.ResolveReference(specURL).String(), nil
}

// walkNodeModules walks dirs upward from base, each time probing
// <dir>/<ModulesDir>/<specifier>, per the node resolution algorithm.
func (r *Resolver) walkNodeModules(specifier, base string) (string, bool) {
	if r.ListDir == nil {
		return "", false
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	dir := path.Dir(baseURL.Path)
	for {
		candidateDir := path.Join(dir, r.ModulesDir)
		candidateURL := (&url.URL{Scheme: baseURL.Scheme, Host: baseURL.Host, Path: candidateDir}).String()
		entries, err := r.ListDir(candidateURL)
		if err == nil {
			for _, e := range entries {
				if e == specifier {
					resolved := (&url.URL{
						Scheme: baseURL.Scheme,
						Host:   baseURL.Host,
						Path:   path.Join(candidateDir, specifier),
					}).String()
					return resolved, true
				}
			}
		}
		if dir == "/" || dir == "." {
			return "", false
		}
		parent := path.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
