package moduleset

import "github.com/mstoykov/atlas"

// Properties is the module metadata's immutable properties-map (spec.md
// §3), backed by mstoykov/atlas's structurally-shared trie — the same
// append-only, copy-on-write map the teacher uses for metric tag sets.
// Branching off an existing Properties (Set) never mutates it, so a
// Module's Metadata can be shared freely across goroutines.
type Properties struct {
	node *atlas.Node
}

// NewProperties returns the empty Properties root.
func NewProperties() Properties {
	return Properties{node: atlas.New()}
}

// Set returns a new Properties with key bound to value, leaving the
// receiver unchanged.
func (p Properties) Set(key, value string) Properties {
	node := p.node
	if node == nil {
		node = atlas.New()
	}
	return Properties{node: node.AddLink(key, value)}
}

// Get looks key up the properties chain.
func (p Properties) Get(key string) (string, bool) {
	if p.node == nil {
		return "", false
	}
	return p.node.ValueByKey(key)
}

// Metadata is the module metadata of spec.md §3: the base id the module
// was first fetched through, plus its properties map.
type Metadata struct {
	BaseID     string
	Properties Properties
}

// NewMetadata builds Metadata rooted at baseID with an empty properties map.
func NewMetadata(baseID string) Metadata {
	return Metadata{BaseID: baseID, Properties: NewProperties()}
}
