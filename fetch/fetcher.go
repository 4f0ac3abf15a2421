package fetch

import "context"

// Fetcher is the three-operation collaborator of spec.md §6. Each
// operation may delegate to next and reinterpret the result; returning
// NotUnderstood advances the chain, anything else terminates it.
type Fetcher interface {
	Canonicalize(ctx context.Context, absURL, base string, next Fetcher) Result[string]
	List(ctx context.Context, glob, base string, next Fetcher) Result[[]string]
	Fetch(ctx context.Context, canonicalURL, base string, next Fetcher) Result[FetchedSource]
}

// terminus is the next-fetcher passed to the innermost link of a Chain; it
// always returns NotUnderstood, so a chain that runs out of delegates
// terminates deterministically.
type terminus struct{}

func (terminus) Canonicalize(context.Context, string, string, Fetcher) Result[string] {
	return NotUnderstoodResult[string]()
}

func (terminus) List(context.Context, string, string, Fetcher) Result[[]string] {
	return NotUnderstoodResult[[]string]()
}

func (terminus) Fetch(context.Context, string, string, Fetcher) Result[FetchedSource] {
	return NotUnderstoodResult[FetchedSource]()
}

// Terminus is the NotUnderstood-returning base of every chain.
var Terminus Fetcher = terminus{}

// Chain links fetchers front-to-back: the first fetcher in links is tried
// first, with the rest (and finally Terminus) available to it as next.
type Chain struct {
	head Fetcher
}

// NewChain builds a Chain from the given fetchers in priority order.
func NewChain(links ...Fetcher) *Chain {
	next := Terminus
	for i := len(links) - 1; i >= 0; i-- {
		next = &boundLink{self: links[i], next: next}
	}
	return &Chain{head: next}
}

// boundLink pins a fetcher's `next` so callers of Canonicalize/List/Fetch
// don't have to thread the chain tail through manually.
type boundLink struct {
	self Fetcher
	next Fetcher
}

func (b *boundLink) Canonicalize(ctx context.Context, absURL, base string, _ Fetcher) Result[string] {
	return b.self.Canonicalize(ctx, absURL, base, b.next)
}

func (b *boundLink) List(ctx context.Context, glob, base string, _ Fetcher) Result[[]string] {
	return b.self.List(ctx, glob, base, b.next)
}

func (b *boundLink) Fetch(ctx context.Context, canonicalURL, base string, _ Fetcher) Result[FetchedSource] {
	return b.self.Fetch(ctx, canonicalURL, base, b.next)
}

// Canonicalize runs the chain's canonicalize operation.
func (c *Chain) Canonicalize(ctx context.Context, absURL, base string) Result[string] {
	return c.head.Canonicalize(ctx, absURL, base, Terminus)
}

// List runs the chain's list operation.
func (c *Chain) List(ctx context.Context, glob, base string) Result[[]string] {
	return c.head.List(ctx, glob, base, Terminus)
}

// Fetch runs the chain's fetch operation.
func (c *Chain) Fetch(ctx context.Context, canonicalURL, base string) Result[FetchedSource] {
	return c.head.Fetch(ctx, canonicalURL, base, Terminus)
}
